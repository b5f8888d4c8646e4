package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/use-agent/leadscout/models"
)

// Engine is the interface that all profile fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod").
	Name() string

	// Fetch loads and parses one profile page.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a profile.
type FetchRequest struct {
	URL     string
	Cookies []http.Cookie
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	Profile    *models.Profile
	Title      string
	StatusCode int
	EngineName string
}
