// Package health polls the rover's base address and tracks whether it is
// reachable.
//
// One check runs when the monitor starts. After that a check runs on each
// tick only while the status is connected, so a single failure halts
// polling until Restart is called (normally on an address change).
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/metrics"
	"github.com/teslashibe/go-rover/pkg/rover"
)

// DefaultInterval is the time between health checks.
const DefaultInterval = 5 * time.Second

// Status is the three-valued connection state.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
)

// Label returns the human-readable status shown in the status panel.
func (s Status) Label() string {
	switch s {
	case StatusConnected:
		return "Connected"
	case StatusFailed:
		return "Failed to Connect"
	default:
		return "Connecting..."
	}
}

// Snapshot is the result of the most recent health check.
type Snapshot struct {
	Address   string    `json:"address"`
	Status    Status    `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Monitor runs periodic health checks against one address.
type Monitor struct {
	pinger   rover.Pinger
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	snap   Snapshot
	gen    uint64
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// OnChange is called after every completed check.
	OnChange func(Snapshot)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

// NewMonitor creates a monitor for addr. It does not start polling.
func NewMonitor(pinger rover.Pinger, addr string, opts ...Option) *Monitor {
	m := &Monitor{
		pinger:   pinger,
		interval: DefaultInterval,
		logger:   log.Component("health"),
		snap:     Snapshot{Address: addr, Status: StatusConnecting},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the latest state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Status returns the current connection status.
func (m *Monitor) Status() Status {
	return m.Snapshot().Status
}

// Running reports whether the polling timer is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Start runs one check immediately and then polls every interval while
// connected. It returns at once; ctx cancellation stops polling.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	m.parent = ctx
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(runCtx, done)
}

// Stop clears the polling timer and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Restart stops polling, points the monitor at addr, resets the status to
// connecting and starts again. Results of checks against the previous
// address are discarded.
func (m *Monitor) Restart(addr string) {
	m.Stop()

	m.mu.Lock()
	m.gen++
	m.snap = Snapshot{Address: addr, Status: StatusConnecting}
	parent := m.parent
	m.mu.Unlock()

	m.publish(m.Snapshot())

	if parent == nil {
		parent = context.Background()
	}
	m.Start(parent)
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.Status() != StatusConnected {
				continue
			}
			m.Check(ctx)
		}
	}
}

// Check pings the base address once and updates the status.
func (m *Monitor) Check(ctx context.Context) Snapshot {
	m.mu.Lock()
	addr := m.snap.Address
	gen := m.gen
	m.mu.Unlock()

	start := time.Now()
	_, err := m.pinger.Ping(ctx, addr)
	latency := time.Since(start)

	if ctx.Err() != nil {
		return m.Snapshot()
	}

	snap := Snapshot{Address: addr, CheckedAt: time.Now()}
	if err != nil {
		snap.Status = StatusFailed
		snap.Error = err.Error()
		m.logger.Error("connection check failed", "address", addr, "error", err)
	} else {
		snap.Status = StatusConnected
		snap.LatencyMs = latency.Milliseconds()
		m.logger.Debug("connection check ok", "address", addr, "ms", snap.LatencyMs)
	}
	m.metrics.HealthCheck(err == nil, latency)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return snap
	}
	m.snap = snap
	m.mu.Unlock()

	m.publish(snap)
	return snap
}

func (m *Monitor) publish(s Snapshot) {
	if m.OnChange != nil {
		m.OnChange(s)
	}
}
