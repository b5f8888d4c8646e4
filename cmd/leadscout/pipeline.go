package main

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/use-agent/leadscout/cache"
	"github.com/use-agent/leadscout/captcha"
	"github.com/use-agent/leadscout/config"
	"github.com/use-agent/leadscout/engine"
	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/metrics"
	"github.com/use-agent/leadscout/scraper"
	"github.com/use-agent/leadscout/search"
	"github.com/use-agent/leadscout/store"
)

// pipeline is everything one browser session needs to run searches.
type pipeline struct {
	scraper    *scraper.Scraper
	aggregator *search.Aggregator
	metrics    *metrics.Collector
	memory     *engine.DomainMemory
	cache      *cache.Cache
	store      *store.Store
}

// newPipeline launches the browser and wires the search stack.
// notices receives the captcha banner.
func newPipeline(cfg *config.Config, notices io.Writer, useCache bool) (*pipeline, error) {
	p := &pipeline{metrics: metrics.New()}

	// ── 1. Browser ───────────────────────────────────────────────────
	sc, err := scraper.NewScraper(cfg)
	if err != nil {
		return nil, err
	}
	p.scraper = sc

	page, err := sc.SearchPage()
	if err != nil {
		p.Close()
		return nil, err
	}

	// ── 2. Captcha gate on the search page ──────────────────────────
	resolver := captcha.NewResolver(page, cfg.CaptchaSettings(), captcha.NewTerminalNotifier(notices, cfg.Captcha.Bell))

	// ── 3. Profile engines: HTTP first, then the browser ────────────
	var engines []engine.Engine
	if cfg.Engine.EnableHTTP {
		engines = append(engines, engine.NewHTTPEngine(cfg.Engine.HTTPTimeout))
	}
	engines = append(engines, engine.NewRodEngine(sc.FetchProfile))

	p.memory = engine.NewDomainMemory(cfg.Engine.MemoryTTL)
	dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, p.memory)
	dispatcher.SetTimeout(cfg.Scraper.ProfileTimeout)
	if id := instagram.SessionIDFromEnv(cfg.Instagram.SessionID); id != "" {
		dispatcher.SetCookies([]http.Cookie{{Name: "sessionid", Value: id}})
	}
	slog.Info("profile engines ready", "engines", len(engines), "delays", cfg.Engine.EscalationDelays)

	var fetcher search.ProfileFetcher = dispatcher
	if useCache {
		p.cache = cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		fetcher = cache.NewFetcher(dispatcher, p.cache)
	}

	// ── 4. Aggregator ────────────────────────────────────────────────
	p.aggregator = search.New(page, resolver, fetcher, cfg.SearchSettings())
	p.aggregator.SetMetrics(p.metrics)

	// ── 5. Lead store (optional) ────────────────────────────────────
	if cfg.Output.DBPath != "" {
		st, err := store.Open(cfg.Output.DBPath)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.store = st
		slog.Info("lead store opened", "path", cfg.Output.DBPath)
	}
	return p, nil
}

// Close saves the cookie sessions and releases everything.
func (p *pipeline) Close() {
	if p.scraper != nil {
		if err := p.scraper.SaveSessions(); err != nil {
			slog.Warn("failed to save sessions", "error", err)
		}
		p.scraper.Close()
	}
	p.memory.Stop()
	if p.cache != nil {
		p.cache.Stop()
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			slog.Warn("failed to close lead store", "error", err)
		}
	}
}
