package models

import "time"

// JobStatus is the lifecycle state of a serve-mode search job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// SearchJob is one queued search. Output is set once the job finishes;
// a failed job may still carry partial output.
type SearchJob struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Request    SearchRequest `json:"request"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Output     *SearchOutput `json:"output,omitempty"`
	Error      *ErrorDetail  `json:"error,omitempty"`
}

// Done reports whether the job reached a final state.
func (j *SearchJob) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// ErrorResponse wraps an error for API clients.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string       `json:"status"` // "healthy" or "degraded"
	Uptime  string       `json:"uptime"`
	Browser BrowserStats `json:"browser"`
	Queue   QueueStats   `json:"queue"`
	Version string       `json:"version"`
}

// BrowserStats reports the state of the browser.
type BrowserStats struct {
	Alive       bool `json:"alive"`
	ProfileTabs int  `json:"profile_tabs"`
}

// QueueStats reports the search job queue.
type QueueStats struct {
	Queued   int  `json:"queued"`
	Capacity int  `json:"capacity"`
	Running  bool `json:"running"`
	Jobs     int  `json:"jobs"`
}
