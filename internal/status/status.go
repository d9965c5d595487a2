// Package status tracks whether the application's components are ready to
// serve traffic.
package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotReady is returned by Check while any component is failing.
var ErrNotReady = errors.New("application is not ready")

// Check reports whether a component is usable.
type Check func(ctx context.Context) error

// Component is the last observed state of one registered check.
type Component struct {
	Ready     bool          `json:"ready"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Report is a point-in-time snapshot of the tracker.
type Report struct {
	Ready         bool                 `json:"ready"`
	Initialized   bool                 `json:"initialized"`
	Components    map[string]Component `json:"components"`
	StartupTime   time.Time            `json:"startup_time"`
	LastCheckTime time.Time            `json:"last_check_time,omitzero"`
	UptimeSeconds float64              `json:"uptime_seconds"`
	Errors        []string             `json:"errors"`
}

// Tracker keeps component states in memory and guards access with a RWMutex.
type Tracker struct {
	clock func() time.Time

	mu          sync.RWMutex
	order       []string
	checks      map[string]Check
	components  map[string]Component
	startedAt   time.Time
	lastCheck   time.Time
	initialized bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// NewTracker returns a tracker with no components.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		clock: func() time.Time {
			return time.Now().UTC()
		},
		checks:     make(map[string]Check),
		components: make(map[string]Component),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startedAt = t.clock()
	return t
}

// Register adds a named component. Registering a name twice replaces its check.
func (t *Tracker) Register(name string, check Check) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.checks[name]; !ok {
		t.order = append(t.order, name)
	}
	t.checks[name] = check
}

// Warmup runs every check once and marks the tracker initialized. It returns
// the joined errors of the failing components.
func (t *Tracker) Warmup(ctx context.Context) error {
	err := t.Check(ctx)

	t.mu.Lock()
	t.initialized = true
	t.mu.Unlock()

	return err
}

// Check re-runs all checks in registration order.
func (t *Tracker) Check(ctx context.Context) error {
	t.mu.RLock()
	names := append([]string(nil), t.order...)
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = t.checks[name]
	}
	t.mu.RUnlock()

	results := make(map[string]Component, len(names))
	var errs []error
	for i, name := range names {
		start := t.clock()
		checkErr := checks[i](ctx)
		end := t.clock()

		c := Component{Ready: checkErr == nil, CheckedAt: end, Duration: end.Sub(start)}
		if checkErr != nil {
			c.Error = checkErr.Error()
			errs = append(errs, fmt.Errorf("%s: %w", name, checkErr))
		}
		results[name] = c
	}

	t.mu.Lock()
	for name, c := range results {
		t.components[name] = c
	}
	t.lastCheck = t.clock()
	t.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotReady, errors.Join(errs...))
	}
	return nil
}

// Ready reports whether warmup has completed and every component passed its
// last check.
func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.readyLocked()
}

func (t *Tracker) readyLocked() bool {
	if !t.initialized {
		return false
	}
	for _, name := range t.order {
		if c, ok := t.components[name]; !ok || !c.Ready {
			return false
		}
	}
	return true
}

// Report returns a snapshot safe to serialise.
func (t *Tracker) Report() Report {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r := Report{
		Ready:         t.readyLocked(),
		Initialized:   t.initialized,
		Components:    make(map[string]Component, len(t.components)),
		StartupTime:   t.startedAt,
		LastCheckTime: t.lastCheck,
		UptimeSeconds: t.clock().Sub(t.startedAt).Seconds(),
		Errors:        []string{},
	}
	for _, name := range t.order {
		c, ok := t.components[name]
		if !ok {
			continue
		}
		r.Components[name] = c
		if c.Error != "" {
			r.Errors = append(r.Errors, name+": "+c.Error)
		}
	}
	return r
}
