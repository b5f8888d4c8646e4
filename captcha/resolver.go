// Package captcha detects anti-automation challenges on a page and holds
// the caller until a human has cleared them.
package captcha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/leadscout/models"
)

// Outcome tells the caller how WaitForResolution ended.
type Outcome string

const (
	OutcomeClear         Outcome = "clear"
	OutcomeFalsePositive Outcome = "false_positive"
	OutcomeResolved      Outcome = "resolved"
	OutcomeIgnored       Outcome = "ignored"
)

// Notifier tells the human at the keyboard that a challenge needs them.
type Notifier interface {
	Notify(sig Signal)
}

// TerminalNotifier prints a banner and, optionally, the terminal bell.
type TerminalNotifier struct {
	w    io.Writer
	bell bool
}

// NewTerminalNotifier writes notices to w.
func NewTerminalNotifier(w io.Writer, bell bool) *TerminalNotifier {
	return &TerminalNotifier{w: w, bell: bell}
}

func (n *TerminalNotifier) Notify(sig Signal) {
	if n.bell {
		fmt.Fprint(n.w, "\a")
	}
	fmt.Fprintln(n.w, "")
	fmt.Fprintln(n.w, "================================================================")
	fmt.Fprintln(n.w, "  CAPTCHA DETECTED: solve it in the browser window to continue")
	if sig.TargetSelector != "" {
		fmt.Fprintf(n.w, "  element: %s (via %s)\n", sig.TargetSelector, sig.Via)
	}
	fmt.Fprintln(n.w, "================================================================")
	fmt.Fprintln(n.w, "")
}

// Resolver is the challenge state machine for one page. The re-entrancy
// flag lives here, so each page gets its own Resolver.
type Resolver struct {
	page     Page
	cfg      Config
	notifier Notifier
	waiting  atomic.Bool

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewResolver creates a Resolver. A nil notifier disables notices.
func NewResolver(page Page, cfg Config, notifier Notifier) *Resolver {
	if cfg.ClearPolls <= 0 {
		cfg.ClearPolls = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1800 * time.Millisecond
	}
	if cfg.TextScanLimit <= 0 {
		cfg.TextScanLimit = 6000
	}
	if cfg.SettleDeadline <= 0 {
		cfg.SettleDeadline = 20 * time.Second
	}
	return &Resolver{
		page:     page,
		cfg:      cfg,
		notifier: notifier,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Waiting reports whether a manual wait is in progress.
func (r *Resolver) Waiting() bool {
	return r.waiting.Load()
}

// WaitForResolution returns immediately when the page is clear. A
// text-only signal gets one reload; if no widget shows up afterwards the
// page is treated as clear. Otherwise it blocks until ClearPolls
// consecutive polls see no challenge, or ctx is done.
//
// Only infrastructure errors and context errors are returned.
func (r *Resolver) WaitForResolution(ctx context.Context) (Outcome, error) {
	sig, err := r.detectSettled(ctx)
	if err != nil {
		return "", err
	}
	if !sig.Detected {
		return OutcomeClear, nil
	}

	if !sig.HasWidget() {
		slog.Info("challenge phrase found without a widget, reloading once")
		if err := r.page.Reload(ctx); err != nil && !models.IsTransient(err) {
			return "", err
		}
		sig, err = r.detectSettled(ctx)
		if err != nil {
			return "", err
		}
		if !sig.HasWidget() {
			slog.Info("no challenge widget after reload, treating page as clear")
			return OutcomeFalsePositive, nil
		}
	}

	return r.manualWait(ctx, sig)
}

// manualWait is the MANUAL_WAIT state.
func (r *Resolver) manualWait(ctx context.Context, sig Signal) (Outcome, error) {
	if !r.waiting.CompareAndSwap(false, true) {
		slog.Debug("challenge wait already active, ignoring trigger")
		return OutcomeIgnored, nil
	}
	defer r.waiting.Store(false)

	restore := suspendTimeouts(r.page)
	defer restore()

	if r.notifier != nil {
		r.notifier.Notify(sig)
	}
	slog.Warn("captcha detected, waiting for manual resolution",
		"selector", sig.TargetSelector,
		"via", sig.Via,
	)

	started := time.Now()
	streak := 0
	for streak < r.cfg.ClearPolls {
		if err := r.sleep(ctx, r.cfg.PollInterval); err != nil {
			return "", err
		}

		s, err := r.Detect(ctx, false)
		switch {
		case err != nil && models.IsTransient(err):
			streak = 0
		case err != nil:
			return "", err
		case s.Detected:
			streak = 0
		default:
			streak++
		}
	}

	slog.Info("captcha resolved", "waited", time.Since(started).Round(time.Second).String())
	return OutcomeResolved, nil
}

// detectSettled runs Detect with the observer. While the page is
// mid-navigation it waits for the DOM to settle and tries again, until
// SettleDeadline has passed.
func (r *Resolver) detectSettled(ctx context.Context) (Signal, error) {
	deadline := r.now().Add(r.cfg.SettleDeadline)
	for attempt := 1; ; attempt++ {
		sig, err := r.Detect(ctx, true)
		if err == nil || !models.IsTransient(err) {
			return sig, err
		}
		if ctx.Err() != nil || !r.now().Before(deadline) {
			return Signal{}, err
		}
		slog.Debug("challenge check interrupted by navigation, retrying", "attempt", attempt, "error", err)
		if serr := r.page.WaitStable(ctx); serr != nil && !models.IsTransient(serr) {
			return Signal{}, serr
		}
		if serr := r.sleep(ctx, r.cfg.PollInterval); serr != nil {
			return Signal{}, serr
		}
	}
}

// suspendTimeouts switches the page's default timeout off and returns the
// function that puts the previous value back.
func suspendTimeouts(p Page) (restore func()) {
	prev := p.DefaultTimeout()
	p.SetDefaultTimeout(0)
	return func() { p.SetDefaultTimeout(prev) }
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
