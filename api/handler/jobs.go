package handler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/report"
	"github.com/use-agent/leadscout/search"
	"github.com/use-agent/leadscout/webhook"
)

// ErrQueueFull is returned by Submit when no more jobs can wait.
var ErrQueueFull = errors.New("search queue is full")

// Runner executes one search. *search.Aggregator satisfies it.
type Runner interface {
	Run(ctx context.Context, opts search.Options) (*models.SearchOutput, error)
}

// JobsConfig controls the job queue.
type JobsConfig struct {
	QueueSize     int
	TTL           time.Duration
	Timeout       time.Duration // per job, manual captcha waits included
	WebhookURL    string
	WebhookSecret string

	// OnComplete, when set, receives every finished output (partial
	// outputs of failed jobs included).
	OnComplete func(ctx context.Context, out *models.SearchOutput)
}

// Jobs runs searches one at a time on a single worker: one browser
// drives one search page.
type Jobs struct {
	runner Runner
	cfg    JobsConfig
	queue  chan *models.SearchJob

	store   sync.Map // id → *models.SearchJob
	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewJobs creates a queue. Call Start to begin processing.
func NewJobs(runner Runner, cfg JobsConfig) *Jobs {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &Jobs{
		runner: runner,
		cfg:    cfg,
		queue:  make(chan *models.SearchJob, cfg.QueueSize),
		now:    time.Now,
	}
}

// Start launches the worker and the expiry loop. Both stop when ctx ends.
func (j *Jobs) Start(ctx context.Context) {
	go j.worker(ctx)
	go j.cleanupLoop(ctx)
}

// Submit enqueues a search and returns a snapshot of the new job.
func (j *Jobs) Submit(req models.SearchRequest) (*models.SearchJob, error) {
	job := &models.SearchJob{
		ID:        uuid.NewString(),
		Status:    models.JobQueued,
		Request:   req,
		CreatedAt: j.now().UTC(),
	}
	j.store.Store(job.ID, job)

	select {
	case j.queue <- job:
	default:
		j.store.Delete(job.ID)
		return nil, ErrQueueFull
	}
	slog.Info("search job queued", "jobId", job.ID, "query", req.Query)
	return j.snapshot(job), nil
}

// Get returns a snapshot of job id.
func (j *Jobs) Get(id string) (*models.SearchJob, bool) {
	val, ok := j.store.Load(id)
	if !ok {
		return nil, false
	}
	return j.snapshot(val.(*models.SearchJob)), true
}

// Stats reports queue depth and whether a job is running.
func (j *Jobs) Stats() models.QueueStats {
	n := 0
	j.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	j.mu.Lock()
	running := j.running
	j.mu.Unlock()
	return models.QueueStats{
		Queued:   len(j.queue),
		Capacity: cap(j.queue),
		Running:  running,
		Jobs:     n,
	}
}

func (j *Jobs) snapshot(job *models.SearchJob) *models.SearchJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := *job
	return &cp
}

func (j *Jobs) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-j.queue:
			j.run(ctx, job)
		}
	}
}

func (j *Jobs) run(ctx context.Context, job *models.SearchJob) {
	started := j.now().UTC()
	j.mu.Lock()
	j.running = true
	job.Status = models.JobRunning
	job.StartedAt = &started
	j.mu.Unlock()

	slog.Info("search job started", "jobId", job.ID, "query", job.Request.Query)
	runCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	out, err := j.runner.Run(runCtx, search.Options{
		Query:      job.Request.Query,
		MaxPages:   job.Request.MaxPages,
		ProfileCap: job.Request.ProfileCap,
	})
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err = models.NewScrapeError(models.ErrCodeTimeout,
			"search job exceeded "+j.cfg.Timeout.String(), err)
	}
	cancel()
	if out != nil && j.cfg.OnComplete != nil {
		j.cfg.OnComplete(ctx, out)
	}
	if out != nil && job.Request.OnlyWithPhones {
		out = report.OnlyWithPhones(out)
	}

	finished := j.now().UTC()
	j.mu.Lock()
	j.running = false
	job.FinishedAt = &finished
	job.Output = out
	if err != nil {
		job.Status = models.JobFailed
		job.Error = models.AsScrapeError(err, models.ErrCodeInternal).ToDetail()
	} else {
		job.Status = models.JobCompleted
	}
	snap := *job
	j.mu.Unlock()

	slog.Info("search job finished",
		"jobId", job.ID,
		"status", snap.Status,
		"duration", finished.Sub(started).Round(time.Millisecond),
	)
	j.notify(&snap)
}

// notify delivers the job's webhook event, if configured.
func (j *Jobs) notify(job *models.SearchJob) {
	if j.cfg.WebhookURL == "" {
		return
	}
	event := webhook.EventSearchCompleted
	if job.Status == models.JobFailed {
		event = webhook.EventSearchFailed
	}
	data := map[string]any{
		"status": job.Status,
		"query":  job.Request.Query,
	}
	if job.Output != nil {
		data["total_results"] = job.Output.TotalResults
		data["summary"] = report.Summarize(job.Output.Results)
	}
	if job.Error != nil {
		data["error"] = job.Error
	}
	webhook.DeliverAsync(j.cfg.WebhookURL, j.cfg.WebhookSecret, webhook.NewEvent(event, job.ID, data))
}

// cleanupLoop expires finished jobs older than the TTL.
func (j *Jobs) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.expire()
		}
	}
}

func (j *Jobs) expire() {
	cutoff := j.now().Add(-j.cfg.TTL)
	j.store.Range(func(key, value any) bool {
		job := value.(*models.SearchJob)
		j.mu.Lock()
		stale := job.Done() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff)
		j.mu.Unlock()
		if stale {
			j.store.Delete(key)
		}
		return true
	})
}
