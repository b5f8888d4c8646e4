// Package search drives a Google dork query page by page and enriches the
// Instagram profiles it finds with contact phones.
package search

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/use-agent/leadscout/captcha"
	"github.com/use-agent/leadscout/metrics"
	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/simhash"
)

// Config holds the selectors and pacing of a search run.
type Config struct {
	SearchURL        string
	SearchInput      string
	ConsentSelectors []string
	ConsentTimeout   time.Duration

	ResultsReady   string
	Rows           RowSelectors
	IgnorePatterns []string

	NextPageSelector string
	NextPageNames    []string
	NextPageTimeout  time.Duration

	// ReadyTimeout bounds one wait for results; ReadyDeadline bounds all
	// retries caused by in-flight navigation.
	ReadyTimeout  time.Duration
	ReadyDeadline time.Duration

	MaxPages   int
	ProfileCap int

	// A fetch waits ProfileDelay plus up to ProfileJitter after the previous one.
	ProfileDelay  time.Duration
	ProfileJitter time.Duration
}

// DefaultConfig returns the selectors for google.com and polite pacing.
func DefaultConfig() Config {
	return Config{
		SearchURL:        "https://www.google.com",
		SearchInput:      `textarea[name="q"], input[name="q"]`,
		ConsentSelectors: []string{"#L2AGLb", `button[aria-label="Aceitar tudo"]`, `button[aria-label="Accept all"]`},
		ConsentTimeout:   2 * time.Second,
		ResultsReady:     "#search h3, #rso h3, h3",
		Rows: RowSelectors{
			Container: `#rso, [role="main"]`,
			Item:      "div[data-hveid]",
			Title:     "h3",
			Link:      `a[href^="http"]`,
		},
		IgnorePatterns: []string{
			"google.com/search",
			"accounts.google",
			"support.google",
			"maps.google",
			"policies.google",
			"youtube.com",
		},
		NextPageSelector: "#pnnext",
		NextPageNames:    []string{"Mais", "Próxima", "Next"},
		NextPageTimeout:  3 * time.Second,
		ReadyTimeout:     15 * time.Second,
		ReadyDeadline:    30 * time.Second,
		MaxPages:         3,
		ProfileCap:       25,
		ProfileDelay:     3500 * time.Millisecond,
		ProfileJitter:    3 * time.Second,
	}
}

// Options are the per-run inputs. Zero values fall back to Config.
type Options struct {
	Query      string
	MaxPages   int
	ProfileCap int
}

const maxReadyAttempts = 5

var errNoNextPage = errors.New("no next page control")

// Aggregator runs one search at a time on its page.
type Aggregator struct {
	page     Page
	captcha  *captcha.Resolver
	profiles ProfileFetcher
	cfg      Config
	metrics  *metrics.Collector

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// New creates an Aggregator. resolver must watch the same page.
func New(page Page, resolver *captcha.Resolver, profiles ProfileFetcher, cfg Config) *Aggregator {
	return &Aggregator{
		page:     page,
		captcha:  resolver,
		profiles: profiles,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
		jitter:   randomJitter,
	}
}

// SetMetrics records operation timings into m.
func (a *Aggregator) SetMetrics(m *metrics.Collector) {
	a.metrics = m
}

// Run submits the query, collects up to MaxPages of results and enriches
// the Instagram rows. Only validation, submission and infrastructure
// failures are returned as errors; everything after submission degrades
// into row statuses. When ctx is cancelled mid-run the partial output is
// returned together with ctx.Err().
func (a *Aggregator) Run(ctx context.Context, opts Options) (*models.SearchOutput, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, models.NewScrapeError(models.ErrCodeEmptyQuery, "search query must not be empty", nil)
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = a.cfg.MaxPages
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	profileCap := opts.ProfileCap
	if profileCap <= 0 {
		profileCap = a.cfg.ProfileCap
	}

	done := a.metrics.Start("search")
	slog.Info("search started", "query", query, "maxPages", maxPages, "profileCap", profileCap)

	if err := a.submit(ctx, query); err != nil {
		done(err)
		return nil, err
	}

	results, err := a.collect(ctx, maxPages)

	out := &models.SearchOutput{
		Query:        query,
		TotalPages:   maxPages,
		TotalResults: len(results),
		Results:      results,
	}
	if err == nil {
		st := a.enrich(ctx, results, profileCap)
		out.Enrichment = &st
	}
	out.ExtractedAt = a.now().UTC()
	if err == nil {
		err = ctx.Err()
	}
	done(err)
	slog.Info("search finished", "query", query, "results", len(results), "error", err)
	return out, err
}

func (a *Aggregator) submit(ctx context.Context, query string) error {
	done := a.metrics.Start("submit")

	if err := a.page.Navigate(ctx, a.cfg.SearchURL); err != nil {
		done(err)
		return models.AsScrapeError(err, models.ErrCodeNavigation)
	}
	a.acceptConsent(ctx)

	if err := a.gate(ctx); err != nil {
		done(err)
		return err
	}
	if err := a.page.TypeText(ctx, a.cfg.SearchInput, query); err != nil {
		done(err)
		return models.AsScrapeError(err, models.ErrCodeNavigation)
	}
	if err := a.page.PressKey(ctx, "Enter"); err != nil {
		done(err)
		return models.AsScrapeError(err, models.ErrCodeNavigation)
	}
	if err := a.page.WaitStable(ctx); err != nil && !models.IsTransient(err) {
		slog.Debug("page did not settle after submit", "error", err)
	}
	if err := a.gate(ctx); err != nil {
		done(err)
		return err
	}
	done(nil)
	return nil
}

func (a *Aggregator) acceptConsent(ctx context.Context) {
	for _, sel := range a.cfg.ConsentSelectors {
		if err := a.page.Click(ctx, sel, a.cfg.ConsentTimeout); err == nil {
			slog.Debug("cookie consent accepted", "selector", sel)
			return
		}
	}
}

// gate blocks while a challenge is on screen.
func (a *Aggregator) gate(ctx context.Context) error {
	done := a.metrics.Start("captcha")
	outcome, err := a.captcha.WaitForResolution(ctx)
	done(err)
	if err != nil {
		return err
	}
	if outcome != captcha.OutcomeClear {
		slog.Info("captcha check finished", "outcome", outcome)
	}
	return nil
}

// collect scrapes pages until maxPages, a missing next control, a failed
// page or a page that repeats the previous one. Per-page failures end
// pagination quietly; infrastructure errors are returned.
func (a *Aggregator) collect(ctx context.Context, maxPages int) ([]*models.SearchResult, error) {
	var all []*models.SearchResult
	var prev uint64

	for n := 1; n <= maxPages; n++ {
		if ctx.Err() != nil {
			break
		}
		rows, fp, err := a.scrapePage(ctx, n)
		if err != nil {
			if models.IsInfrastructure(err) {
				return all, err
			}
			slog.Warn("page failed, stopping pagination", "page", n, "error", err)
			break
		}

		if n > 1 && simhash.Similar(fp, prev, 3) {
			slog.Info("page repeats the previous one, stopping pagination", "page", n)
			break
		}
		prev = fp
		all = append(all, rows...)
		slog.Info("page scraped", "page", n, "results", len(rows))

		if n == maxPages {
			break
		}
		if err := a.nextPage(ctx); err != nil {
			slog.Info("no further pages", "page", n, "reason", err)
			break
		}
	}
	return all, nil
}

// scrapePage returns the rows of page n and a fingerprint of the page.
func (a *Aggregator) scrapePage(ctx context.Context, n int) ([]*models.SearchResult, uint64, error) {
	done := a.metrics.Start("page")

	if err := a.gate(ctx); err != nil {
		done(err)
		return nil, 0, err
	}
	if err := a.waitResults(ctx); err != nil {
		done(err)
		return nil, 0, err
	}
	html, err := a.page.HTML(ctx)
	if err != nil {
		done(err)
		return nil, 0, err
	}
	rows, err := ParseResults(html, a.cfg.Rows, a.cfg.IgnorePatterns, n, a.now().UTC())
	done(err)
	if err != nil {
		return nil, 0, err
	}
	return rows, pageFingerprint(rows, html), nil
}

// waitResults retries the results wait while the page is still navigating,
// up to ReadyDeadline.
func (a *Aggregator) waitResults(ctx context.Context) error {
	deadline := a.now().Add(a.cfg.ReadyDeadline)
	var err error
	for attempt := 0; attempt < maxReadyAttempts; attempt++ {
		err = a.page.WaitVisible(ctx, a.cfg.ResultsReady, a.cfg.ReadyTimeout)
		if err == nil {
			return nil
		}
		if !models.IsTransient(err) || ctx.Err() != nil || !a.now().Before(deadline) {
			return err
		}
		slog.Debug("results wait interrupted by navigation, retrying", "attempt", attempt+1, "error", err)
		if serr := a.page.WaitStable(ctx); serr != nil && !models.IsTransient(serr) {
			return serr
		}
	}
	return err
}

func (a *Aggregator) nextPage(ctx context.Context) error {
	clicked := false
	if a.cfg.NextPageSelector != "" {
		clicked = a.page.Click(ctx, a.cfg.NextPageSelector, a.cfg.NextPageTimeout) == nil
	}
	for _, name := range a.cfg.NextPageNames {
		if clicked {
			break
		}
		clicked = a.page.ClickLink(ctx, name, a.cfg.NextPageTimeout) == nil
	}
	if !clicked {
		return errNoNextPage
	}
	if err := a.page.WaitStable(ctx); err != nil && !models.IsTransient(err) {
		return err
	}
	return nil
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
