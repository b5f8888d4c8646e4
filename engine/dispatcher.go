package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/leadscout/models"
)

// Dispatcher tries engines from lightest to heaviest, one at a time, and
// remembers per host which engine last worked so later fetches start there.
// It implements search.ProfileFetcher.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
	cookies          []http.Cookie
	timeout          time.Duration
}

// NewDispatcher creates a Dispatcher with the given engines and escalation
// delays. engines[i] is tried escalationDelays[i] after engines[i-1] failed.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
}

// SetCookies attaches cookies (e.g. a logged-in session) to every request.
func (d *Dispatcher) SetCookies(cookies []http.Cookie) {
	d.cookies = cookies
}

// SetTimeout bounds each engine attempt.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	d.timeout = timeout
}

// FetchProfile fetches one profile through the engine chain.
func (d *Dispatcher) FetchProfile(ctx context.Context, profileURL string) (*models.Profile, error) {
	res, err := d.Dispatch(ctx, &FetchRequest{
		URL:     profileURL,
		Cookies: d.cookies,
		Timeout: d.timeout,
	})
	if err != nil {
		return nil, err
	}
	return res.Profile, nil
}

// Dispatch returns the first successful result. If every engine fails it
// returns the error of the last one tried.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	domain := extractDomain(req.URL)

	// Check domain memory for a previously successful engine.
	skip := ""
	if remembered := d.memory.Get(domain); remembered != "" {
		for _, eng := range d.engines {
			if eng.Name() != remembered {
				continue
			}
			slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
			result, err := d.try(ctx, eng, req)
			if err == nil {
				return result, nil
			}
			slog.Info("remembered engine failed, escalating from the start",
				"domain", domain, "engine", remembered, "error", err)
			d.memory.Delete(domain)
			skip = remembered
			break
		}
	}

	return d.escalate(ctx, req, domain, skip)
}

// escalate walks the engine chain in order, skipping the engine that was
// already tried from memory.
func (d *Dispatcher) escalate(ctx context.Context, req *FetchRequest, domain, skip string) (*FetchResult, error) {
	var lastErr error
	tried := 0
	for i, eng := range d.engines {
		if eng.Name() == skip {
			continue
		}
		if tried > 0 && d.escalationDelays[i] > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.escalationDelays[i]):
			}
		}
		tried++

		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := d.try(ctx, eng, req)
		if err != nil {
			slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		d.memory.Set(domain, result.EngineName)
		slog.Debug("engine succeeded", "engine", result.EngineName, "url", req.URL)
		return result, nil
	}

	if lastErr == nil {
		lastErr = models.NewScrapeError(models.ErrCodeProfileFetch,
			fmt.Sprintf("no engine available for %s", req.URL), nil)
	}
	return nil, lastErr
}

func (d *Dispatcher) try(ctx context.Context, eng Engine, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	result, err := eng.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Profile == nil {
		return nil, models.NewScrapeError(models.ErrCodeProfileParse,
			fmt.Sprintf("%s: no profile on page", eng.Name()), nil)
	}
	result.EngineName = eng.Name()
	return result, nil
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
