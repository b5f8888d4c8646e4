package search

import (
	"context"
	"time"

	"github.com/use-agent/leadscout/captcha"
	"github.com/use-agent/leadscout/models"
)

// Page is the browser tab that runs the search. Implementations apply
// DefaultTimeout to any wait called with a zero timeout.
type Page interface {
	captcha.Page

	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// ClickLink clicks the link whose accessible text is name.
	ClickLink(ctx context.Context, name string, timeout time.Duration) error
	// TypeText focuses selector and types text like a person would.
	TypeText(ctx context.Context, selector, text string) error
	PressKey(ctx context.Context, key string) error
	URL(ctx context.Context) (string, error)
}

// ProfileFetcher loads one profile page. A nil profile with a nil error
// means the page had no identifiable profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, profileURL string) (*models.Profile, error)
}
