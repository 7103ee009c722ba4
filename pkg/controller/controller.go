// Package controller owns the remote-control session state: the device
// address, the input mode and strategy, the current direction and the
// connection status. All state changes go through its setters, and every
// change is published to subscribers.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/dispatch"
	"github.com/teslashibe/go-rover/pkg/gesture"
	"github.com/teslashibe/go-rover/pkg/health"
	"github.com/teslashibe/go-rover/pkg/metrics"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/wifi"
)

// ErrNoScanner is returned by Networks when no discovery panel is wired.
var ErrNoScanner = errors.New("controller: wifi discovery unavailable")

// State is a snapshot of the session shown by the status panel.
type State struct {
	Address      string           `json:"address"`
	Mode         gesture.Mode     `json:"mode"`
	Strategy     gesture.Strategy `json:"strategy"`
	Direction    string           `json:"direction"`
	DisplayLabel string           `json:"display_label"`
	Position     command.Offset   `json:"position"`
	Radius       float64          `json:"radius"`
	Status       health.Status    `json:"status"`
	StatusLabel  string           `json:"status_label"`
	LatencyMs    int64            `json:"latency_ms"`
	CheckedAt    time.Time        `json:"checked_at"`
}

// Controller wires gesture input to the dispatcher and tracks state.
type Controller struct {
	input      *gesture.Input
	dispatcher *dispatch.Dispatcher
	monitor    *health.Monitor
	panel      *wifi.Panel
	deadZone   float64
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu        sync.RWMutex
	address   string
	direction string

	subMu       sync.RWMutex
	subscribers []func(State)
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	notifier alert.Notifier
	metrics  *metrics.Metrics
	panel    *wifi.Panel
	logger   *slog.Logger
}

// WithNotifier sets where failure alerts are shown.
func WithNotifier(n alert.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPanel wires Wi-Fi discovery.
func WithPanel(p *wifi.Panel) Option {
	return func(o *options) {
		o.panel = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a controller for device using cfg. cfg is validated.
func New(device rover.Device, cfg config.Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := gesture.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	strategy, err := gesture.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	o := &options{logger: log.Component("controller")}
	for _, opt := range opts {
		opt(o)
	}

	c := &Controller{
		panel:    o.panel,
		deadZone: cfg.Joystick.LabelDeadZone,
		logger:   o.logger,
		metrics:  o.metrics,
		address:  cfg.Address,
	}

	c.dispatcher = dispatch.New(device, c.Address,
		dispatch.WithNotifier(o.notifier),
		dispatch.WithMetrics(o.metrics),
	)

	c.monitor = health.NewMonitor(device, cfg.Address,
		health.WithInterval(cfg.Health.Interval),
		health.WithMetrics(o.metrics),
	)
	c.monitor.OnChange = func(health.Snapshot) { c.publish() }

	c.input = gesture.NewInput(mode, gesture.NewJoystick(cfg.Joystick.Radius, strategy))
	c.input.Emit = func(cmd command.Command) { c.relay(cmd) }

	return c, nil
}

// Start begins health checking.
func (c *Controller) Start(ctx context.Context) {
	c.monitor.Start(ctx)
}

// Stop clears the health-check timer and waits for in-flight commands.
func (c *Controller) Stop() {
	c.monitor.Stop()
	c.dispatcher.Wait()
}

// Subscribe registers fn to receive every state change.
func (c *Controller) Subscribe(fn func(State)) {
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.subMu.Unlock()
}

// Address returns the current device address.
func (c *Controller) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

// SetAddress validates and switches the device address, then restarts
// the health check against it.
func (c *Controller) SetAddress(addr string) error {
	addr = config.NormalizeAddress(addr)
	if err := config.ValidateAddress(addr); err != nil {
		return err
	}

	c.mu.Lock()
	changed := c.address != addr
	c.address = addr
	c.mu.Unlock()

	if !changed {
		return nil
	}
	c.logger.Info("device address changed", "address", addr)
	c.monitor.Restart(addr)
	return nil
}

// Mode returns the active input mode.
func (c *Controller) Mode() gesture.Mode {
	return c.input.Mode()
}

// SetMode switches the input variant.
func (c *Controller) SetMode(m gesture.Mode) {
	c.input.SetMode(m)
	c.publish()
}

// ToggleMode flips between joystick and direction buttons.
func (c *Controller) ToggleMode() gesture.Mode {
	m := c.input.Mode().Toggle()
	c.SetMode(m)
	return m
}

// SetStrategy selects label or offset reporting for the joystick.
func (c *Controller) SetStrategy(s gesture.Strategy) {
	c.input.Joystick().SetStrategy(s)
	c.publish()
}

// HandleMove feeds a joystick drag update. It reports false when the
// joystick is not active.
func (c *Controller) HandleMove(dx, dy float64) (command.Command, bool) {
	c.metrics.Gesture("move")
	return c.input.Move(dx, dy)
}

// HandleRelease feeds the end of a joystick drag.
func (c *Controller) HandleRelease() (command.Command, bool) {
	c.metrics.Gesture("release")
	return c.input.Release()
}

// HandlePress feeds a direction-button tap.
func (c *Controller) HandlePress(label string) (command.Command, bool, error) {
	c.metrics.Gesture("press")
	return c.input.Press(label)
}

// Send dispatches cmd regardless of the input mode. The CLI, REST API
// and MQTT bridge use it for direct commands. Offsets are clamped to the
// joystick radius.
func (c *Controller) Send(cmd command.Command) string {
	return c.relay(c.Clamp(cmd))
}

// SendWait dispatches cmd and waits for the device's answer.
func (c *Controller) SendWait(ctx context.Context, cmd command.Command) (rover.Response, error) {
	cmd = c.Clamp(cmd)
	c.setDirection(cmd)
	return c.dispatcher.Send(ctx, cmd)
}

// Clamp limits an offset command to the joystick radius. Labels pass
// through unchanged.
func (c *Controller) Clamp(cmd command.Command) command.Command {
	if cmd.Kind != command.KindOffset {
		return cmd
	}
	cmd.Offset = cmd.Offset.Clamp(c.input.Joystick().Radius())
	return cmd
}

// relay records cmd as the current direction and fires it at the device.
func (c *Controller) relay(cmd command.Command) string {
	c.setDirection(cmd)
	return c.dispatcher.Dispatch(cmd)
}

func (c *Controller) setDirection(cmd command.Command) {
	c.mu.Lock()
	c.direction = cmd.String()
	c.mu.Unlock()
	c.publish()
}

// Check runs one health check immediately.
func (c *Controller) Check(ctx context.Context) health.Snapshot {
	return c.monitor.Check(ctx)
}

// Networks runs Wi-Fi discovery.
func (c *Controller) Networks(ctx context.Context) ([]string, error) {
	if c.panel == nil {
		return nil, ErrNoScanner
	}
	return c.panel.Discover(ctx)
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	addr, dir := c.address, c.direction
	c.mu.RUnlock()

	js := c.input.Joystick()
	pos := js.Position()
	snap := c.monitor.Snapshot()

	s := State{
		Address:     addr,
		Mode:        c.input.Mode(),
		Strategy:    js.Strategy(),
		Direction:   dir,
		Position:    pos,
		Radius:      js.Radius(),
		Status:      snap.Status,
		StatusLabel: snap.Status.Label(),
		LatencyMs:   snap.LatencyMs,
		CheckedAt:   snap.CheckedAt,
	}
	if s.Strategy == gesture.StrategyOffset {
		s.DisplayLabel = gesture.DisplayLabel(pos, s.Radius, c.deadZone)
	} else {
		s.DisplayLabel = dir
	}
	return s
}

func (c *Controller) publish() {
	c.subMu.RLock()
	subs := make([]func(State), len(c.subscribers))
	copy(subs, c.subscribers)
	c.subMu.RUnlock()

	if len(subs) == 0 {
		return
	}
	s := c.State()
	for _, fn := range subs {
		fn(s)
	}
}
