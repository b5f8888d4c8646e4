// Package metrics records per-operation timings for one session and, when
// a telemetry system is attached, forwards them to gofulmen telemetry.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
)

// OpStats aggregates every run of one operation.
type OpStats struct {
	Name      string        `json:"name"`
	Count     int           `json:"count"`
	Errors    int           `json:"errors"`
	Total     time.Duration `json:"total"`
	Max       time.Duration `json:"max"`
	Successes int           `json:"successes"`
	// successTotal only counts successful runs; Average is based on it.
	successTotal time.Duration
}

// Average is the mean duration of successful runs.
func (s OpStats) Average() time.Duration {
	if s.Successes == 0 {
		return 0
	}
	return s.successTotal / time.Duration(s.Successes)
}

// Collector is safe for concurrent use. A nil *Collector is valid and
// records nothing.
type Collector struct {
	mu      sync.Mutex
	ops     map[string]*OpStats
	started time.Time
	now     func() time.Time
	sys     *telemetry.System
}

// New creates a Collector whose session starts now.
func New() *Collector {
	return &Collector{
		ops:     make(map[string]*OpStats),
		started: time.Now(),
		now:     time.Now,
	}
}

// Start begins timing op. Call the returned func with the operation's
// error (nil on success) when it finishes.
func (c *Collector) Start(op string) func(err error) {
	if c == nil {
		return func(error) {}
	}
	begin := c.now()
	var once sync.Once
	return func(err error) {
		once.Do(func() { c.record(op, c.now().Sub(begin), err) })
	}
}

func (c *Collector) record(op string, d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	emit(c.sys, op, d, err)

	s, ok := c.ops[op]
	if !ok {
		s = &OpStats{Name: op}
		c.ops[op] = s
	}
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
	if err != nil {
		s.Errors++
		return
	}
	s.Successes++
	s.successTotal += d
}

// Snapshot returns a copy of every operation's stats, sorted by name.
func (c *Collector) Snapshot() []OpStats {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]OpStats, 0, len(c.ops))
	for _, s := range c.ops {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Elapsed is the time since the session started.
func (c *Collector) Elapsed() time.Duration {
	if c == nil {
		return 0
	}
	return c.now().Sub(c.started)
}
