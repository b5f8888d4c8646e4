package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/leadscout/models"
)

// Page adapts a rod tab to search.Page. Waits called with a zero timeout
// use the page's default timeout; a default of zero means no deadline.
type Page struct {
	page  *rod.Page
	human *humanizer
	nav   time.Duration

	mu      sync.Mutex
	timeout time.Duration
}

func newPage(p *rod.Page, human *humanizer, defaultTimeout, navTimeout time.Duration) *Page {
	return &Page{page: p, human: human, timeout: defaultTimeout, nav: navTimeout}
}

// Rod exposes the underlying tab.
func (p *Page) Rod() *rod.Page { return p.page }

func (p *Page) DefaultTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

func (p *Page) SetDefaultTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

// bind returns the tab bound to ctx and the effective timeout.
func (p *Page) bind(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc) {
	if timeout <= 0 {
		timeout = p.DefaultTimeout()
	}
	if timeout <= 0 {
		return p.page.Context(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return p.page.Context(ctx), cancel
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	pg, cancel := p.bind(ctx, p.nav)
	defer cancel()

	if err := pg.Navigate(url); err != nil {
		return categorizeError(err, "navigation failed")
	}
	if err := pg.WaitDOMStable(300*time.Millisecond, 0.1); err != nil && !models.IsTransient(err) {
		return categorizeError(err, "page did not settle after navigation")
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	pg, cancel := p.bind(ctx, timeout)
	defer cancel()

	el, err := pg.Element(selector)
	if err != nil {
		return categorizeError(err, fmt.Sprintf("element %q never appeared", selector))
	}
	if err := el.WaitVisible(); err != nil {
		return categorizeError(err, fmt.Sprintf("element %q never became visible", selector))
	}
	return nil
}

func (p *Page) WaitStable(ctx context.Context) error {
	pg, cancel := p.bind(ctx, 0)
	defer cancel()
	return pg.WaitDOMStable(300*time.Millisecond, 0.1)
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	pg, cancel := p.bind(ctx, 0)
	defer cancel()

	html, err := pg.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (p *Page) Click(ctx context.Context, selector string, timeout time.Duration) error {
	pg, cancel := p.bind(ctx, timeout)
	defer cancel()

	el, err := pg.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return p.click(ctx, pg, el)
}

func (p *Page) ClickLink(ctx context.Context, name string, timeout time.Duration) error {
	pg, cancel := p.bind(ctx, timeout)
	defer cancel()

	el, err := pg.ElementR("a", `^\s*`+regexp.QuoteMeta(name)+`\s*$`)
	if err != nil {
		return fmt.Errorf("link %q not found: %w", name, err)
	}
	return p.click(ctx, pg, el)
}

func (p *Page) click(ctx context.Context, pg *rod.Page, el *rod.Element) error {
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	if err := p.human.moveTo(ctx, pg, el); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *Page) TypeText(ctx context.Context, selector, text string) error {
	pg, cancel := p.bind(ctx, 0)
	defer cancel()

	el, err := pg.Element(selector)
	if err != nil {
		return categorizeError(err, fmt.Sprintf("input %q not found", selector))
	}
	if err := p.click(ctx, pg, el); err != nil {
		return categorizeError(err, fmt.Sprintf("input %q not clickable", selector))
	}
	if err := p.human.typeText(ctx, pg, text); err != nil {
		return categorizeError(err, "typing failed")
	}
	return nil
}

var namedKeys = map[string]input.Key{
	"Enter":     input.Enter,
	"Tab":       input.Tab,
	"Escape":    input.Escape,
	"Backspace": input.Backspace,
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	k, ok := namedKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	pg, cancel := p.bind(ctx, 0)
	defer cancel()
	return pg.Keyboard.Type(k)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	pg, cancel := p.bind(ctx, 0)
	defer cancel()

	info, err := pg.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *Page) Reload(ctx context.Context) error {
	pg, cancel := p.bind(ctx, p.nav)
	defer cancel()

	if err := pg.Reload(); err != nil {
		return categorizeError(err, "reload failed")
	}
	if err := pg.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("page did not settle after reload", "error", err)
	}
	return nil
}

// watchJS resolves with the first selector that is (or becomes) visible
// within windowMs, or "" when the window elapses.
const watchJS = `(selectors, windowMs) => new Promise(resolve => {
	const visible = el => {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	};
	const find = () => {
		for (const sel of selectors) {
			const el = document.querySelector(sel);
			if (el && visible(el)) return sel;
		}
		return '';
	};
	const hit = find();
	if (hit) { resolve(hit); return; }
	const obs = new MutationObserver(() => {
		const h = find();
		if (h) { obs.disconnect(); clearTimeout(timer); resolve(h); }
	});
	obs.observe(document.documentElement, { childList: true, subtree: true, attributes: true });
	const timer = setTimeout(() => { obs.disconnect(); resolve(''); }, windowMs);
})`

func (p *Page) WatchSelectors(ctx context.Context, selectors []string, window time.Duration) (string, error) {
	pg, cancel := p.bind(ctx, window+5*time.Second)
	defer cancel()

	res, err := pg.Eval(watchJS, selectors, window.Milliseconds())
	if err != nil {
		return "", categorizeError(err, "challenge watch failed")
	}
	return res.Value.Str(), nil
}

const visibleJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	const r = el.getBoundingClientRect();
	const s = window.getComputedStyle(el);
	return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
}`

func (p *Page) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	pg, cancel := p.bind(ctx, timeout)
	defer cancel()

	res, err := pg.Eval(visibleJS, selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return false, nil
		}
		return false, categorizeError(err, "visibility check failed")
	}
	return res.Value.Bool(), nil
}

func (p *Page) FrameURLs(ctx context.Context) ([]string, error) {
	pg, cancel := p.bind(ctx, 0)
	defer cancel()

	tree, err := proto.PageGetFrameTree{}.Call(pg)
	if err != nil {
		return nil, categorizeError(err, "frame tree unavailable")
	}
	var urls []string
	var walk func(t *proto.PageFrameTree)
	walk = func(t *proto.PageFrameTree) {
		if t == nil {
			return
		}
		if t.Frame != nil && t.Frame.URL != "" {
			urls = append(urls, t.Frame.URL)
		}
		for _, child := range t.ChildFrames {
			walk(child)
		}
	}
	walk(tree.FrameTree)
	return urls, nil
}

func (p *Page) BodyText(ctx context.Context, limit int) (string, error) {
	pg, cancel := p.bind(ctx, 0)
	defer cancel()

	res, err := pg.Eval(`(n) => (document.body ? document.body.innerText || '' : '').slice(0, n)`, limit)
	if err != nil {
		return "", categorizeError(err, "body text unavailable")
	}
	return res.Value.Str(), nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// crashMarkers show up when the tab or the browser process is gone.
var crashMarkers = []string{
	"target closed",
	"websocket: close",
	"use of closed network connection",
	"session with given id not found",
	"no target with given id found",
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell a dead browser from a slow page.
func categorizeError(err error, msg string) *models.ScrapeError {
	lower := strings.ToLower(err.Error())
	for _, m := range crashMarkers {
		if strings.Contains(lower, m) {
			return models.NewScrapeError(models.ErrCodeBrowserCrash, msg, err)
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
