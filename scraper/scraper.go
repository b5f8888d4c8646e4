package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/leadscout/config"
	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/models"
)

// Scraper owns the browser process, the search tab and the cookie
// sessions. Profile fetches open short-lived tabs of their own and are
// safe for concurrent use.
type Scraper struct {
	browser    *rod.Browser
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	identity   Identity
	human      *humanizer
	sessions   *SessionStore
	debugDir   string

	searchOnce sync.Once
	searchPage *Page
	searchErr  error

	activeTabs atomic.Int32
	closeOnce  sync.Once
}

// NewScraper launches Chromium with stealth flags, applies the proxy and
// restores saved sessions.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	browserCfg := cfg.Browser

	// ── 1. Launch ────────────────────────────────────────────────────
	l, controlURL, err := launch(browserCfg)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"no usable Chromium binary could be launched",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", browserCfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := connectBrowser(browser.Connect, l.Kill); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"failed to connect to browser",
			err,
		)
	}

	// ── 2. Proxy authentication ──────────────────────────────────────
	if browserCfg.Proxy != "" && browserCfg.ProxyUsername != "" {
		go handleProxyAuth(browser, browserCfg.ProxyUsername, browserCfg.ProxyPassword)
	}

	s := &Scraper{
		browser:    browser,
		browserCfg: browserCfg,
		scraperCfg: cfg.Scraper,
		identity:   PickIdentity(browserCfg.Identity).WithGeo(browserCfg.ProxyGeo),
		human:      newHumanizer(cfg.Scraper.Humanize),
	}
	slog.Info("browser identity selected",
		"userAgent", s.identity.UserAgent,
		"locale", s.identity.Locale,
		"timezone", s.identity.TimezoneID,
	)

	// ── 3. Sessions ──────────────────────────────────────────────────
	if cfg.Session.Enabled {
		s.sessions = NewSessionStore(cfg.Session.Dir, cfg.Session.TTL)
		s.restoreSessions()
	}
	if id := instagram.SessionIDFromEnv(cfg.Instagram.SessionID); id != "" {
		if err := browser.SetCookies([]*proto.NetworkCookieParam{sessionCookie(id)}); err != nil {
			slog.Warn("instagram session cookie rejected", "error", err)
		} else {
			slog.Info("instagram session cookie installed", "sessionId", instagram.MaskSessionID(id))
		}
	}

	return s, nil
}

// launch tries the configured binary, then a system Chromium, then rod's
// managed download.
func launch(cfg config.BrowserConfig) (*launcher.Launcher, string, error) {
	var bins []string
	if cfg.BrowserBin != "" {
		bins = append(bins, cfg.BrowserBin)
	}
	if path, ok := launcher.LookPath(); ok {
		bins = append(bins, path)
	}
	bins = append(bins, "")

	var lastErr error
	for _, bin := range bins {
		l := newLauncher(cfg, bin)
		controlURL, err := l.Launch()
		if err == nil {
			return l, controlURL, nil
		}
		slog.Warn("browser launch failed", "bin", displayBin(bin), "error", err)
		lastErr = err
	}
	return nil, "", lastErr
}

// connectBrowser attaches to a launched browser. On failure the launched
// process is killed.
func connectBrowser(connect func() error, kill func()) error {
	if err := connect(); err != nil {
		kill()
		return err
	}
	return nil
}

func displayBin(bin string) string {
	if bin == "" {
		return "rod-managed"
	}
	return bin
}

func newLauncher(cfg config.BrowserConfig, bin string) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if bin != "" {
		l = l.Bin(bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "pt-BR")
	l.Set(flags.Flag("window-size"), "1366,900")
	return l
}

// handleProxyAuth answers every proxy challenge until the browser closes.
func handleProxyAuth(browser *rod.Browser, username, password string) {
	for {
		if err := browser.HandleAuth(username, password)(); err != nil {
			slog.Debug("proxy auth handler stopped", "error", err)
			return
		}
	}
}

func (s *Scraper) restoreSessions() {
	for _, platform := range []string{PlatformGoogle, PlatformInstagram} {
		cookies := s.sessions.Load(platform)
		if len(cookies) == 0 {
			continue
		}
		if err := s.browser.SetCookies(proto.CookiesToParams(cookies)); err != nil {
			slog.Warn("session restore failed", "platform", platform, "error", err)
			continue
		}
		slog.Info("session restored", "platform", platform, "cookies", len(cookies))
	}
}

// SaveSessions persists the browser's current cookies per platform.
func (s *Scraper) SaveSessions() error {
	if s.sessions == nil {
		return nil
	}
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("read browser cookies: %w", err)
	}
	for _, platform := range []string{PlatformGoogle, PlatformInstagram} {
		if err := s.sessions.Save(platform, cookies); err != nil {
			return fmt.Errorf("save %s session: %w", platform, err)
		}
	}
	slog.Info("sessions saved", "cookies", len(cookies))
	return nil
}

// SearchPage returns the long-lived tab used for the search engine. It is
// created on first use.
func (s *Scraper) SearchPage() (*Page, error) {
	s.searchOnce.Do(func() {
		s.searchPage, s.searchErr = s.openTab()
	})
	return s.searchPage, s.searchErr
}

// openTab creates a blank tab with the identity applied.
func (s *Scraper) openTab() (*Page, error) {
	rp, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, categorizeError(err, "failed to open tab")
	}
	if err := s.identity.apply(rp); err != nil {
		_ = rp.Close()
		return nil, categorizeError(err, "failed to apply browser identity")
	}
	return newPage(rp, s.human, s.scraperCfg.DefaultTimeout, s.scraperCfg.NavigationTimeout), nil
}

// ProfileTabs is the number of profile tabs currently open.
func (s *Scraper) ProfileTabs() int {
	return int(s.activeTabs.Load())
}

// Alive reports whether the browser still answers protocol calls.
func (s *Scraper) Alive(ctx context.Context) bool {
	_, err := proto.BrowserGetVersion{}.Call(s.browser.Context(ctx))
	return err == nil
}

// Close kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	s.closeOnce.Do(func() {
		slog.Info("scraper shutting down: closing browser")
		if err := s.browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
		slog.Info("scraper shutdown complete")
	})
}
