package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/leadscout/api/handler"
	"github.com/use-agent/leadscout/config"
	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/search"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []search.Options
	err   error
}

func (f *fakeRunner) Run(_ context.Context, opts search.Options) (*models.SearchOutput, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	return &models.SearchOutput{
		Query:        opts.Query,
		TotalPages:   1,
		TotalResults: 2,
		Results: []*models.SearchResult{
			{
				URL:    "https://www.instagram.com/padaria/",
				Status: models.StatusInstagramOK,
				Instagram: &models.InstagramData{
					Profile: models.Profile{Username: "padaria"},
					Phones: models.PhoneSet{
						PrimaryE164: "+5511912345678",
						Details:     []models.PhoneDetail{{PhoneE164: "+5511912345678"}},
					},
				},
			},
			{URL: "https://example.com/", Status: models.StatusNotInstagram},
		},
	}, f.err
}

type fakeBrowser struct{ alive bool }

func (p fakeBrowser) Alive(context.Context) bool { return p.alive }
func (p fakeBrowser) ProfileTabs() int           { return 0 }

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"k1"}
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func newTestServer(t *testing.T, runner handler.Runner, alive bool) (http.Handler, *handler.Jobs) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	jobs := handler.NewJobs(runner, handler.JobsConfig{QueueSize: 2, TTL: time.Hour})
	jobs.Start(ctx)
	return NewRouter(ctx, testConfig(), jobs, fakeBrowser{alive: alive}, time.Now()), jobs
}

func do(t *testing.T, h http.Handler, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth_NoAuth(t *testing.T) {
	h, _ := newTestServer(t, &fakeRunner{}, true)

	w := do(t, h, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Browser.Alive)
	assert.Equal(t, 2, resp.Queue.Capacity)
}

func TestHealth_DeadBrowserDegrades(t *testing.T) {
	h, _ := newTestServer(t, &fakeRunner{}, false)

	w := do(t, h, http.MethodGet, "/api/v1/health", nil, "")
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestAuth(t *testing.T) {
	h, _ := newTestServer(t, &fakeRunner{}, true)
	body := models.PhonesRequest{Bio: "x"}

	w := do(t, h, http.MethodPost, "/api/v1/phones/extract", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/phones/extract", body, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/phones/extract", bytes.NewBufferString(`{"bio":"x"}`))
	req.Header.Set("Authorization", "Bearer k1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractPhones(t *testing.T) {
	h, _ := newTestServer(t, &fakeRunner{}, true)

	w := do(t, h, http.MethodPost, "/api/v1/phones/extract",
		models.PhonesRequest{Bio: "Fale comigo: (11) 91234-5678"}, "k1")
	require.Equal(t, http.StatusOK, w.Code)

	var set models.PhoneSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.Equal(t, "+5511912345678", set.PrimaryE164)
	assert.Equal(t, models.ConfidenceLow, set.PrimaryConfidence)
}

func waitForJob(t *testing.T, h http.Handler, id string) map[string]any {
	t.Helper()
	var body map[string]any
	require.Eventually(t, func() bool {
		w := do(t, h, http.MethodGet, "/api/v1/search/"+id, nil, "k1")
		if w.Code != http.StatusOK {
			return false
		}
		body = nil
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			return false
		}
		return body["status"] == string(models.JobCompleted) || body["status"] == string(models.JobFailed)
	}, 2*time.Second, 10*time.Millisecond)
	return body
}

func TestSearch_SubmitAndPoll(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestServer(t, runner, true)

	w := do(t, h, http.MethodPost, "/api/v1/search",
		models.SearchRequest{Query: "  site:instagram.com padaria  ", MaxPages: 2, OnlyWithPhones: true}, "k1")
	require.Equal(t, http.StatusAccepted, w.Code)

	var job models.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)

	body := waitForJob(t, h, job.ID)
	assert.Equal(t, string(models.JobCompleted), body["status"])

	output := body["output"].(map[string]any)
	assert.Equal(t, float64(2), output["total_results"])
	assert.Len(t, output["results"], 1)

	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["unique_phones"])

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "site:instagram.com padaria", runner.calls[0].Query)
	assert.Equal(t, 2, runner.calls[0].MaxPages)
}

func TestSearch_FailedJobKeepsPartialOutput(t *testing.T) {
	runner := &fakeRunner{err: models.NewScrapeError(models.ErrCodeBrowserCrash, "browser died", errors.New("eof"))}
	h, _ := newTestServer(t, runner, true)

	w := do(t, h, http.MethodPost, "/api/v1/search", models.SearchRequest{Query: "padaria"}, "k1")
	require.Equal(t, http.StatusAccepted, w.Code)
	var job models.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))

	body := waitForJob(t, h, job.ID)
	assert.Equal(t, string(models.JobFailed), body["status"])
	assert.Equal(t, models.ErrCodeBrowserCrash, body["error"].(map[string]any)["code"])
	assert.NotNil(t, body["output"])
}

func TestSearch_Validation(t *testing.T) {
	h, _ := newTestServer(t, &fakeRunner{}, true)

	w := do(t, h, http.MethodPost, "/api/v1/search", map[string]any{"query": "   "}, "k1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/search", map[string]any{}, "k1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/search", map[string]any{"query": "x", "max_pages": 50}, "k1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_UnknownJob(t *testing.T) {
	h, _ := newTestServer(t, &fakeRunner{}, true)
	w := do(t, h, http.MethodGet, "/api/v1/search/nope", nil, "k1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	jobs := handler.NewJobs(&fakeRunner{}, handler.JobsConfig{})
	h := NewRouter(ctx, cfg, jobs, fakeBrowser{alive: true}, time.Now())

	body := models.PhonesRequest{Bio: "x"}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/phones/extract", body, "k1").Code)
	w := do(t, h, http.MethodPost, "/api/v1/phones/extract", body, "k1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
