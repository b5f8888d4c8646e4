package captcha

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageState is what the fake page shows between two ticks.
type pageState struct {
	observed string
	visible  string
	frames   []string
	text     string
	err      error
}

// fakePage advances to its next state on every tick (resolver sleep) and
// on every reload; the last state repeats forever.
type fakePage struct {
	mu       sync.Mutex
	states   []pageState
	idx      int
	timeout  time.Duration
	reloads  int
	watched  int
	settles  int
	timeouts []time.Duration // default timeout seen at each tick
}

func newFakePage(states ...pageState) *fakePage {
	return &fakePage{states: states, timeout: 30 * time.Second}
}

func (p *fakePage) current() pageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[p.idx]
}

func (p *fakePage) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeouts = append(p.timeouts, p.timeout)
	if p.idx < len(p.states)-1 {
		p.idx++
	}
}

func (p *fakePage) WatchSelectors(_ context.Context, selectors []string, _ time.Duration) (string, error) {
	p.mu.Lock()
	p.watched++
	p.mu.Unlock()
	s := p.current()
	return s.observed, s.err
}

func (p *fakePage) IsVisible(_ context.Context, selector string, _ time.Duration) (bool, error) {
	s := p.current()
	if s.err != nil {
		return false, s.err
	}
	return s.visible == selector, nil
}

func (p *fakePage) FrameURLs(context.Context) ([]string, error) {
	s := p.current()
	return s.frames, s.err
}

func (p *fakePage) BodyText(_ context.Context, limit int) (string, error) {
	s := p.current()
	text := s.text
	if len(text) > limit {
		text = text[:limit]
	}
	return text, s.err
}

func (p *fakePage) Reload(context.Context) error {
	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	p.tick()
	return nil
}

func (p *fakePage) WaitStable(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settles++
	return nil
}

func (p *fakePage) DefaultTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

func (p *fakePage) SetDefaultTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

type countingNotifier struct{ calls []Signal }

func (n *countingNotifier) Notify(sig Signal) { n.calls = append(n.calls, sig) }

func newTestResolver(page *fakePage) (*Resolver, *countingNotifier) {
	n := &countingNotifier{}
	r := NewResolver(page, DefaultConfig(), n)
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		page.tick()
		return nil
	}
	return r, n
}

var (
	clearState  = pageState{text: "Resultados da pesquisa"}
	widgetState = pageState{visible: "div.g-recaptcha", text: "Nossos sistemas detectaram tráfego incomum"}
	textOnly    = pageState{text: "Post sobre como funciona o reCAPTCHA"}
)

func TestWaitForResolution_ClearPage(t *testing.T) {
	page := newFakePage(clearState)
	r, n := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeClear, outcome)
	assert.Empty(t, n.calls)
	assert.Zero(t, page.reloads)
}

func TestWaitForResolution_TextOnlyFalsePositive(t *testing.T) {
	page := newFakePage(textOnly, textOnly)
	r, n := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFalsePositive, outcome)
	assert.Equal(t, 1, page.reloads)
	assert.Empty(t, n.calls, "a text-only hit must not prompt the user")
	assert.Equal(t, 30*time.Second, page.DefaultTimeout())
}

func TestWaitForResolution_WidgetAppearsAfterReload(t *testing.T) {
	page := newFakePage(textOnly, widgetState, clearState)
	r, n := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, outcome)
	assert.Equal(t, 1, page.reloads)
	require.Len(t, n.calls, 1)
	assert.Equal(t, ViaSelector, n.calls[0].Via)
}

func TestWaitForResolution_NeedsThreeConsecutiveClearPolls(t *testing.T) {
	page := newFakePage(
		widgetState,
		clearState,  // poll 1
		widgetState, // poll 2: widget re-rendered, streak resets
		clearState,  // poll 3
		clearState,  // poll 4
		clearState,  // poll 5
	)
	r, n := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, outcome)
	assert.Len(t, n.calls, 1)
	assert.Len(t, page.timeouts, 5)
	for _, d := range page.timeouts {
		assert.Zero(t, d, "timeouts must stay disabled while waiting")
	}
	assert.Equal(t, 30*time.Second, page.DefaultTimeout())
	assert.False(t, r.Waiting())
}

func TestWaitForResolution_ObserverHit(t *testing.T) {
	page := newFakePage(pageState{observed: "#captcha-form"}, clearState)
	r, n := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, outcome)
	require.Len(t, n.calls, 1)
	assert.Equal(t, "#captcha-form", n.calls[0].TargetSelector)
	assert.Equal(t, ViaObserver, n.calls[0].Via)
}

func TestWaitForResolution_ReentrantTriggerIgnored(t *testing.T) {
	page := newFakePage(widgetState)
	r, n := newTestResolver(page)
	r.waiting.Store(true)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, n.calls)
	assert.Equal(t, 30*time.Second, page.DefaultTimeout())
}

func TestWaitForResolution_InfrastructureErrorRestoresTimeouts(t *testing.T) {
	crashed := errors.New("websocket: close 1006 (abnormal closure)")
	page := newFakePage(widgetState, pageState{err: crashed})
	r, _ := newTestResolver(page)

	_, err := r.WaitForResolution(context.Background())

	require.ErrorIs(t, err, crashed)
	assert.Equal(t, 30*time.Second, page.DefaultTimeout())
	assert.False(t, r.Waiting())
}

func TestWaitForResolution_TransientErrorResetsStreak(t *testing.T) {
	noise := errors.New("{-32000 Execution context was destroyed. }")
	page := newFakePage(
		widgetState,
		clearState,
		pageState{err: noise},
		clearState,
		clearState,
		clearState,
	)
	r, _ := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, outcome)
	assert.Len(t, page.timeouts, 5)
}

func TestWaitForResolution_RepeatedNavigationNoiseBeforeDetection(t *testing.T) {
	noise := pageState{err: errors.New("{-32000 Execution context was destroyed. }")}
	page := newFakePage(noise, noise, clearState)
	r, n := newTestResolver(page)

	outcome, err := r.WaitForResolution(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeClear, outcome)
	assert.Equal(t, 2, page.settles)
	assert.Empty(t, n.calls)
}

func TestWaitForResolution_NavigationNoiseGivesUpAtDeadline(t *testing.T) {
	noise := errors.New("Cannot find context with specified id")
	page := newFakePage(pageState{err: noise})
	r, _ := newTestResolver(page)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return ctx.Err()
	}

	_, err := r.WaitForResolution(context.Background())

	require.ErrorIs(t, err, noise)
	// 20s deadline over 1.8s polls.
	assert.Equal(t, 12, page.settles)
}

func TestWaitForResolution_ContextCancelled(t *testing.T) {
	page := newFakePage(widgetState)
	r, _ := newTestResolver(page)

	ctx, cancel := context.WithCancel(context.Background())
	polls := 0
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		polls++
		if polls == 4 {
			cancel()
		}
		return ctx.Err()
	}

	_, err := r.WaitForResolution(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 30*time.Second, page.DefaultTimeout())
	assert.False(t, r.Waiting())
}

func TestDetect_Priority(t *testing.T) {
	tests := []struct {
		name         string
		state        pageState
		withObserver bool
		wantVia      Via
		wantTarget   string
	}{
		{"observer skipped when disabled", pageState{observed: "#recaptcha"}, false, "", ""},
		{"visible selector", pageState{visible: "#recaptcha", frames: []string{"https://www.google.com/recaptcha/api2/anchor"}}, true, ViaSelector, "#recaptcha"},
		{"frame reports first selector", pageState{frames: []string{"https://www.google.com/recaptcha/api2/anchor"}}, true, ViaFrame, "#captcha-form"},
		{"text is case insensitive", pageState{text: "Our systems have detected UNUSUAL TRAFFIC"}, true, ViaText, "#captcha-form"},
		{"clear", clearState, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(newFakePage(tt.state))

			sig, err := r.Detect(context.Background(), tt.withObserver)

			require.NoError(t, err)
			assert.Equal(t, tt.wantVia != "", sig.Detected)
			assert.Equal(t, tt.wantVia, sig.Via)
			assert.Equal(t, tt.wantTarget, sig.TargetSelector)
		})
	}
}

func TestDetect_TextScanLimit(t *testing.T) {
	long := bytes.Repeat([]byte("a"), 7000)
	page := newFakePage(pageState{text: string(long) + " captcha"})
	r, _ := newTestResolver(page)

	sig, err := r.Detect(context.Background(), false)

	require.NoError(t, err)
	assert.False(t, sig.Detected)
}

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	NewTerminalNotifier(&buf, true).Notify(Signal{Detected: true, TargetSelector: "#captcha-form", Via: ViaSelector})

	out := buf.String()
	assert.True(t, len(out) > 0 && out[0] == '\a')
	assert.Contains(t, out, "CAPTCHA DETECTED")
	assert.Contains(t, out, "#captcha-form")
}
