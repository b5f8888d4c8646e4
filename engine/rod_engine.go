package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/leadscout/models"
)

// RodFetchFunc loads a profile in a browser tab. It is injected from main
// to avoid an import cycle (engine -> scraper).
type RodFetchFunc func(ctx context.Context, profileURL string) (*models.Profile, error)

// RodEngine renders the profile in the shared browser, so it sees what a
// person would, login dialogs included.
type RodEngine struct {
	fetchFunc RodFetchFunc
}

// NewRodEngine creates a RodEngine around the scraper's fetch callback.
func NewRodEngine(fetchFunc RodFetchFunc) *RodEngine {
	return &RodEngine{fetchFunc: fetchFunc}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("rod: fetchFunc not configured")
	}
	profile, err := e.fetchFunc(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return &FetchResult{Profile: profile, EngineName: e.Name()}, nil
}
