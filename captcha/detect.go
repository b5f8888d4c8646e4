package captcha

import (
	"context"
	"strings"
	"time"
)

// Page is the slice of a browser tab the resolver needs.
type Page interface {
	// WatchSelectors waits up to window for any selector to be added to
	// the DOM and returns the first one seen, or "".
	WatchSelectors(ctx context.Context, selectors []string, window time.Duration) (string, error)
	IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	FrameURLs(ctx context.Context) ([]string, error)
	// BodyText returns at most limit characters of document.body.innerText.
	BodyText(ctx context.Context, limit int) (string, error)
	Reload(ctx context.Context) error
	// WaitStable waits for the DOM to stop changing.
	WaitStable(ctx context.Context) error
	DefaultTimeout() time.Duration
	// SetDefaultTimeout changes the timeout of waits that have none of
	// their own; 0 means no timeout.
	SetDefaultTimeout(d time.Duration)
}

// Via names the probe that produced a signal.
type Via string

const (
	ViaObserver Via = "observer"
	ViaSelector Via = "selector"
	ViaFrame    Via = "frame"
	ViaText     Via = "text"
)

// Signal is the result of one detection pass. It is never stored.
type Signal struct {
	Detected       bool
	TargetSelector string
	Via            Via
}

// HasWidget reports whether the signal came from an interactive challenge
// element rather than from page text alone.
func (s Signal) HasWidget() bool {
	return s.Detected && s.Via != ViaText
}

// Config holds the challenge markers and timings.
type Config struct {
	Selectors     []string
	FramePatterns []string
	Phrases       []string

	ObserveWindow  time.Duration // default: 1.2s
	VisibleTimeout time.Duration // default: 250ms
	PollInterval   time.Duration // default: 1.8s
	ClearPolls     int           // default: 3
	TextScanLimit  int           // default: 6000
	// SettleDeadline bounds retries of a detection pass interrupted by
	// navigation. Default: 20s.
	SettleDeadline time.Duration
}

// DefaultConfig returns the markers known for Google's sorry page,
// reCAPTCHA, hCaptcha and Cloudflare turnstile.
func DefaultConfig() Config {
	return Config{
		Selectors: []string{
			"#captcha-form",
			"form#captcha-form",
			"iframe[src*=\"recaptcha\"]",
			"div.g-recaptcha",
			"#recaptcha",
			"iframe[src*=\"hcaptcha\"]",
		},
		FramePatterns: []string{
			"recaptcha",
			"google.com/sorry",
			"hcaptcha",
			"challenges.cloudflare.com",
		},
		Phrases: []string{
			"recaptcha",
			"captcha",
			"unusual traffic",
			"tráfego incomum",
			"verifique que você é humano",
			"verificare che sei un essere umano",
			"nossos sistemas detectaram",
			"our systems have detected",
		},
		ObserveWindow:  1200 * time.Millisecond,
		VisibleTimeout: 250 * time.Millisecond,
		PollInterval:   1800 * time.Millisecond,
		ClearPolls:     3,
		TextScanLimit:  6000,
		SettleDeadline: 20 * time.Second,
	}
}

// Detect runs the probes in priority order and stops at the first hit:
// DOM mutation watch (only when withObserver is set), selector
// visibility, frame URLs, then body text.
func (r *Resolver) Detect(ctx context.Context, withObserver bool) (Signal, error) {
	if withObserver && r.cfg.ObserveWindow > 0 && len(r.cfg.Selectors) > 0 {
		sel, err := r.page.WatchSelectors(ctx, r.cfg.Selectors, r.cfg.ObserveWindow)
		if err != nil {
			return Signal{}, err
		}
		if sel != "" {
			return Signal{Detected: true, TargetSelector: sel, Via: ViaObserver}, nil
		}
	}

	for _, sel := range r.cfg.Selectors {
		visible, err := r.page.IsVisible(ctx, sel, r.cfg.VisibleTimeout)
		if err != nil {
			return Signal{}, err
		}
		if visible {
			return Signal{Detected: true, TargetSelector: sel, Via: ViaSelector}, nil
		}
	}

	frames, err := r.page.FrameURLs(ctx)
	if err != nil {
		return Signal{}, err
	}
	for _, frameURL := range frames {
		lower := strings.ToLower(frameURL)
		for _, pattern := range r.cfg.FramePatterns {
			if strings.Contains(lower, pattern) {
				return Signal{Detected: true, TargetSelector: r.fallbackSelector(), Via: ViaFrame}, nil
			}
		}
	}

	text, err := r.page.BodyText(ctx, r.cfg.TextScanLimit)
	if err != nil {
		return Signal{}, err
	}
	lower := strings.ToLower(text)
	for _, phrase := range r.cfg.Phrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return Signal{Detected: true, TargetSelector: r.fallbackSelector(), Via: ViaText}, nil
		}
	}

	return Signal{}, nil
}

func (r *Resolver) fallbackSelector() string {
	if len(r.cfg.Selectors) == 0 {
		return ""
	}
	return r.cfg.Selectors[0]
}
