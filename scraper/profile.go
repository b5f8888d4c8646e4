package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/models"
)

// FetchProfile renders an Instagram profile in a throwaway tab and parses
// its header. The tab blocks heavy resources and tracker hosts.
func (s *Scraper) FetchProfile(ctx context.Context, profileURL string) (*models.Profile, error) {
	s.activeTabs.Add(1)
	defer s.activeTabs.Add(-1)

	if s.scraperCfg.ProfileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scraperCfg.ProfileTimeout)
		defer cancel()
	}

	// ── 1. Open a fresh tab ──────────────────────────────────────────
	page, err := s.openTab()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = page.Rod().Close()
	}()

	if router := setupHijack(page.Rod(), s.scraperCfg.BlockedResourceTypes, true); router != nil {
		defer func() {
			_ = router.Stop()
		}()
	}

	// ── 2. Navigate ──────────────────────────────────────────────────
	if err := page.Navigate(ctx, profileURL); err != nil {
		return nil, models.AsScrapeError(err, models.ErrCodeProfileFetch)
	}

	// ── 3. Wait for the header; a late header is not fatal ──────────
	if err := page.WaitVisible(ctx, instagram.HeaderSelector, s.scraperCfg.HeaderTimeout); err != nil {
		if ctx.Err() != nil {
			s.dumpDebug(ctx, page, profileURL, err)
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "profile fetch timed out", ctx.Err())
		}
		slog.Debug("profile header did not render in time", "url", profileURL, "error", err)
	}

	// ── 4. Dismiss the login dialog if one covers the page ──────────
	if err := page.Click(ctx, instagram.CloseDialogSelector, 1500*time.Millisecond); err == nil {
		slog.Debug("login dialog dismissed", "url", profileURL)
	}

	// ── 5. Parse ─────────────────────────────────────────────────────
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, models.AsScrapeError(err, models.ErrCodeProfileFetch)
	}
	profile, err := instagram.ParseProfileHTML(html, profileURL)
	if err != nil {
		s.dumpDebug(ctx, page, profileURL, err)
		return nil, err
	}
	if profile.Name == "" {
		profile.Name = evalStringOrEmpty(page.Rod().Context(ctx), `() => document.title.split('(')[0].trim()`)
	}
	return profile, nil
}
