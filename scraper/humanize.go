package scraper

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
	"unicode"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

const typoRate = 0.03

// humanizer types and moves the mouse with human timing. A disabled
// humanizer types instantly and clicks without moving.
type humanizer struct {
	enabled bool
	rnd     *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error
}

func newHumanizer(enabled bool) *humanizer {
	return &humanizer{
		enabled: enabled,
		rnd:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep:   sleepCtx,
	}
}

// between returns a random duration in [min, max] milliseconds.
func (h *humanizer) between(min, max int) time.Duration {
	return time.Duration(min+h.rnd.IntN(max-min+1)) * time.Millisecond
}

// typoFor returns a neighbouring letter to mistype for r. Only ASCII
// letters get typos.
func (h *humanizer) typoFor(r rune) (rune, bool) {
	if r > unicode.MaxASCII || !unicode.IsLetter(r) || h.rnd.Float64() >= typoRate {
		return 0, false
	}
	lower := unicode.ToLower(r)
	next := lower + 1
	if h.rnd.IntN(2) == 0 {
		next = lower - 1
	}
	if next < 'a' || next > 'z' {
		return 0, false
	}
	return next, true
}

func isPauseRune(r rune) bool {
	switch r {
	case ' ', '.', ',', '-':
		return true
	}
	return false
}

// typeText types text into the focused element, occasionally hitting a
// neighbouring key first and correcting it.
func (h *humanizer) typeText(ctx context.Context, p *rod.Page, text string) error {
	if !h.enabled {
		return p.InsertText(text)
	}
	for _, r := range text {
		if typo, ok := h.typoFor(r); ok {
			if err := p.InsertText(string(typo)); err != nil {
				return err
			}
			if err := h.sleep(ctx, h.between(40, 110)); err != nil {
				return err
			}
			if err := p.Keyboard.Type(input.Backspace); err != nil {
				return err
			}
			if err := h.sleep(ctx, h.between(30, 90)); err != nil {
				return err
			}
		}
		if err := p.InsertText(string(r)); err != nil {
			return err
		}
		delay := h.between(30, 110)
		if isPauseRune(r) {
			delay += h.between(90, 260)
		}
		if err := h.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// moveTo glides the mouse from a random point to the centre of el.
func (h *humanizer) moveTo(ctx context.Context, p *rod.Page, el *rod.Element) error {
	if !h.enabled {
		return nil
	}
	shape, err := el.Shape()
	if err != nil {
		return err
	}
	box := shape.Box()
	if box == nil {
		return nil
	}

	width, height := 1366.0, 768.0
	if res, err := p.Eval(`() => [window.innerWidth, window.innerHeight]`); err == nil {
		if arr := res.Value.Arr(); len(arr) == 2 {
			width, height = arr[0].Num(), arr[1].Num()
		}
	}

	start := proto.Point{
		X: width * (0.1 + 0.8*h.rnd.Float64()),
		Y: height * (0.1 + 0.8*h.rnd.Float64()),
	}
	end := proto.Point{X: box.X + box.Width/2, Y: box.Y + box.Height/2}
	steps := 14 + h.rnd.IntN(19)

	for _, pt := range bezierPath(start, end, steps, h.rnd) {
		if err := p.Mouse.MoveTo(pt); err != nil {
			return err
		}
		if err := h.sleep(ctx, h.between(2, 10)); err != nil {
			return err
		}
	}
	return nil
}

// bezierPath returns steps+1 points on a cubic curve from start to end
// with eased spacing and sub-pixel jitter. The last point is end exactly.
func bezierPath(start, end proto.Point, steps int, rnd *rand.Rand) []proto.Point {
	spreadX := math.Abs(end.X-start.X) * 0.35
	spreadY := math.Abs(end.Y-start.Y) * 0.35
	spread := func(s float64) float64 { return (rnd.Float64()*2 - 1) * s }

	ctrlA := proto.Point{X: start.X + spread(spreadX), Y: start.Y + spread(spreadY)}
	ctrlB := proto.Point{X: end.X + spread(spreadX), Y: end.Y + spread(spreadY)}

	pts := make([]proto.Point, 0, steps+1)
	pts = append(pts, start)
	for i := 1; i <= steps; i++ {
		t := easeInOutSine(float64(i) / float64(steps))
		pt := cubicBezier(t, start, ctrlA, ctrlB, end)
		if i < steps {
			pt.X += (rnd.Float64() - 0.5) * 1.6
			pt.Y += (rnd.Float64() - 0.5) * 1.6
		}
		pts = append(pts, pt)
	}
	return pts
}

func easeInOutSine(v float64) float64 {
	return -(math.Cos(math.Pi*v) - 1) / 2
}

func cubicBezier(t float64, p0, p1, p2, p3 proto.Point) proto.Point {
	k := 1 - t
	return proto.Point{
		X: k*k*k*p0.X + 3*k*k*t*p1.X + 3*k*t*t*p2.X + t*t*t*p3.X,
		Y: k*k*k*p0.Y + 3*k*k*t*p1.Y + 3*k*t*t*p2.Y + t*t*t*p3.Y,
	}
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
