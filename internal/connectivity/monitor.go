// Package connectivity watches whether the backend is reachable and notifies
// listeners when it comes back.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smera-app/smera/internal/retry"
)

// State is the last observed reachability of the backend.
type State string

// Possible states
const (
	StateUnknown State = "unknown"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Prober checks whether the backend can be reached.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

// Probe calls f(ctx).
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Listener is called after the backend becomes reachable.
type Listener func(ctx context.Context)

// Default timings
const (
	DefaultInterval     = 15 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// Monitor polls a Prober and tracks the backend state. Every transition to
// online, including the first successful probe, runs the OnOnline listeners
// one after another on the checking goroutine; a successful probe while
// already online runs the OnStillOnline listeners instead. Checks are
// serialized, so a listener is never re-entered while it runs.
type Monitor struct {
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	logger       *slog.Logger

	checkMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners []Listener
	steady    []Listener
}

// NewMonitor creates a monitor. Non-positive interval uses DefaultInterval.
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	probeTimeout := DefaultProbeTimeout
	if interval < probeTimeout {
		probeTimeout = interval
	}
	return &Monitor{
		prober:       prober,
		interval:     interval,
		probeTimeout: probeTimeout,
		logger:       logger.With(slog.String("component", "connectivity")),
		state:        StateUnknown,
	}
}

// OnOnline registers a listener.
func (m *Monitor) OnOnline(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// OnStillOnline registers a listener for probes that succeed while the
// backend was already online.
func (m *Monitor) OnStillOnline(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steady = append(m.steady, fn)
}

// State returns the last observed state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Check probes once, records the result and runs the listeners that match
// the outcome. It returns the new state.
func (m *Monitor) Check(ctx context.Context) State {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	next := StateOnline
	if err != nil {
		next = StateOffline
	}

	m.mu.Lock()
	prev := m.state
	m.state = next
	listeners := append([]Listener(nil), m.listeners...)
	steady := append([]Listener(nil), m.steady...)
	m.mu.Unlock()

	if prev == next {
		if next == StateOnline {
			m.notify(ctx, steady)
		}
		return next
	}

	if next == StateOffline {
		m.logger.Warn("backend unreachable",
			slog.String("kind", string(retry.KindOf(err))),
			slog.String("error", err.Error()))
		return next
	}

	m.logger.Info("backend reachable", slog.String("previous", string(prev)))
	m.notify(ctx, listeners)
	return next
}

func (m *Monitor) notify(ctx context.Context, listeners []Listener) {
	for _, fn := range listeners {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}
}

// Run checks immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
