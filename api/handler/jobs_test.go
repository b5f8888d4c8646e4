package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/search"
)

type blockingRunner struct {
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, opts search.Options) (*models.SearchOutput, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &models.SearchOutput{Query: opts.Query}, nil
}

func TestJobs_QueueFull(t *testing.T) {
	jobs := NewJobs(&blockingRunner{release: make(chan struct{})}, JobsConfig{QueueSize: 1})

	_, err := jobs.Submit(models.SearchRequest{Query: "a"})
	require.NoError(t, err)
	_, err = jobs.Submit(models.SearchRequest{Query: "b"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, jobs.Stats().Jobs)
}

func TestJobs_RunsSequentiallyAndCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &blockingRunner{release: make(chan struct{})}
	var completed []string
	done := make(chan struct{}, 2)
	jobs := NewJobs(runner, JobsConfig{
		QueueSize: 4,
		OnComplete: func(_ context.Context, out *models.SearchOutput) {
			completed = append(completed, out.Query)
			done <- struct{}{}
		},
	})
	jobs.Start(ctx)

	first, err := jobs.Submit(models.SearchRequest{Query: "a"})
	require.NoError(t, err)
	second, err := jobs.Submit(models.SearchRequest{Query: "b"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return jobs.Stats().Running }, time.Second, 5*time.Millisecond)
	got, ok := jobs.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobQueued, got.Status)

	runner.release <- struct{}{}
	<-done
	runner.release <- struct{}{}
	<-done

	assert.Equal(t, []string{"a", "b"}, completed)
	require.Eventually(t, func() bool {
		j, _ := jobs.Get(first.ID)
		return j.Status == models.JobCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestJobs_TimeoutFreesWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &blockingRunner{release: make(chan struct{})}
	jobs := NewJobs(runner, JobsConfig{QueueSize: 4, Timeout: 50 * time.Millisecond})
	jobs.Start(ctx)

	stuck, err := jobs.Submit(models.SearchRequest{Query: "captcha nobody solves"})
	require.NoError(t, err)
	next, err := jobs.Submit(models.SearchRequest{Query: "b"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		j, _ := jobs.Get(stuck.ID)
		return j.Status == models.JobFailed
	}, 2*time.Second, 5*time.Millisecond)
	j, _ := jobs.Get(stuck.ID)
	require.NotNil(t, j.Error)
	assert.Equal(t, models.ErrCodeTimeout, j.Error.Code)

	require.Eventually(t, func() bool {
		j, _ := jobs.Get(next.ID)
		return j.Status == models.JobRunning
	}, 2*time.Second, 5*time.Millisecond)
	runner.release <- struct{}{}
	require.Eventually(t, func() bool {
		j, _ := jobs.Get(next.ID)
		return j.Status == models.JobCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestJobs_ExpireFinished(t *testing.T) {
	jobs := NewJobs(&blockingRunner{}, JobsConfig{TTL: time.Hour})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs.now = func() time.Time { return now }

	old := now.Add(-2 * time.Hour)
	jobs.store.Store("old", &models.SearchJob{ID: "old", Status: models.JobCompleted, FinishedAt: &old})
	jobs.store.Store("live", &models.SearchJob{ID: "live", Status: models.JobRunning})

	jobs.expire()

	_, ok := jobs.Get("old")
	assert.False(t, ok)
	_, ok = jobs.Get("live")
	assert.True(t, ok)
}
