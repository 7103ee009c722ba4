// Package dispatch relays directional commands to the rover.
//
// Every call issues exactly one GET. Nothing is queued, coalesced, retried
// or ordered: a fast joystick drag produces many overlapping requests and
// whichever answer lands last wins. A failed request raises exactly one
// network alert.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/rover"
)

// Result describes one finished request.
type Result struct {
	ID       string
	Command  command.Command
	URL      string
	Response rover.Response
	Err      error
	Duration time.Duration
}

// Dispatcher sends commands to the device address returned by addr.
type Dispatcher struct {
	sender rover.CommandSender
	addr   func() string
	cfg    *Config

	wg sync.WaitGroup
}

// New creates a Dispatcher. addr is read on every send so address
// changes take effect immediately.
func New(sender rover.CommandSender, addr func() string, opts ...Option) *Dispatcher {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Dispatcher{sender: sender, addr: addr, cfg: cfg}
}

// Dispatch sends cmd in the background and returns its dispatch ID
// without waiting for the device.
func (d *Dispatcher) Dispatch(cmd command.Command) string {
	id := uuid.NewString()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(context.Background(), id, cmd)
	}()
	return id
}

// Send sends cmd and waits for the device's answer.
func (d *Dispatcher) Send(ctx context.Context, cmd command.Command) (rover.Response, error) {
	res := d.send(ctx, uuid.NewString(), cmd)
	return res.Response, res.Err
}

// Wait blocks until every background dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, id string, cmd command.Command) Result {
	base := d.addr()
	logger := d.cfg.Logger.With("id", id, "command", cmd.String())

	d.cfg.Metrics.DispatchStarted()
	start := time.Now()
	resp, err := d.sender.Send(ctx, base, cmd)
	elapsed := time.Since(start)
	d.cfg.Metrics.DispatchDone(string(cmd.Kind), err == nil, elapsed)

	res := Result{
		ID:       id,
		Command:  cmd,
		URL:      cmd.URL(base),
		Response: resp,
		Err:      err,
		Duration: elapsed,
	}

	if err != nil {
		logger.Error("command failed", "url", res.URL, "error", err)
		d.notify()
	} else {
		logger.Info("command response", "url", res.URL, "status", resp.StatusCode, "body", resp.Body, "ms", elapsed.Milliseconds())
	}

	if d.cfg.OnResult != nil {
		d.cfg.OnResult(res)
	}
	return res
}

func (d *Dispatcher) notify() {
	d.cfg.Metrics.Alert(alert.NetworkTitle)
	if d.cfg.Notifier != nil {
		d.cfg.Notifier.Alert(alert.NetworkTitle, alert.NetworkMessage)
	}
}
