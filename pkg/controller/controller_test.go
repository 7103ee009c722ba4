package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/gesture"
	"github.com/teslashibe/go-rover/pkg/health"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/wifi"
)

// mockDevice records command URLs and ping addresses.
type mockDevice struct {
	mu      sync.Mutex
	urls    []string
	pings   []string
	sendErr error
	pingErr error
}

func (m *mockDevice) Send(ctx context.Context, base string, cmd command.Command) (rover.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, cmd.URL(base))
	return rover.Response{StatusCode: 200}, m.sendErr
}

func (m *mockDevice) Ping(ctx context.Context, base string) (rover.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings = append(m.pings, base)
	return rover.Response{StatusCode: 200}, m.pingErr
}

func (m *mockDevice) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.urls))
	copy(out, m.urls)
	return out
}

func (m *mockDevice) lastPing() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pings) == 0 {
		return ""
	}
	return m.pings[len(m.pings)-1]
}

func newTestController(t *testing.T, dev *mockDevice, mutate func(*config.Config), opts ...Option) *Controller {
	t.Helper()
	cfg := config.Default()
	cfg.Health.Interval = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(dev, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Address = "not a url"
	if _, err := New(&mockDevice{}, cfg); err == nil {
		t.Error("New should reject an invalid address")
	}
}

func TestJoystickFlow_Label(t *testing.T) {
	dev := &mockDevice{}
	c := newTestController(t, dev, func(cfg *config.Config) { cfg.Mode = "joystick" })

	if _, ok := c.HandleMove(80, 10); !ok {
		t.Fatal("HandleMove ignored in joystick mode")
	}
	if got := c.State().Direction; got != "right" {
		t.Errorf("Direction = %q, want right", got)
	}

	c.HandleRelease()
	c.Stop()

	st := c.State()
	if st.Position != (command.Offset{}) {
		t.Errorf("Position = %+v, want origin", st.Position)
	}
	if st.Direction != "stop" {
		t.Errorf("Direction = %q, want stop", st.Direction)
	}

	got := dev.sent()
	if len(got) != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}
	has := map[string]bool{got[0]: true, got[1]: true}
	if !has["http://192.168.4.1/right"] || !has["http://192.168.4.1/stop"] {
		t.Errorf("requests = %v", got)
	}
}

func TestSetMode_MidDragSendsStop(t *testing.T) {
	dev := &mockDevice{}
	c := newTestController(t, dev, func(cfg *config.Config) { cfg.Mode = "joystick" })

	c.HandleMove(80, 10)
	c.SetMode(gesture.ModeDirection)
	c.Stop()

	st := c.State()
	if st.Position != (command.Offset{}) {
		t.Errorf("Position = %+v, want origin", st.Position)
	}
	if st.Direction != "stop" {
		t.Errorf("Direction = %q, want stop", st.Direction)
	}

	got := dev.sent()
	has := map[string]bool{}
	for _, u := range got {
		has[u] = true
	}
	if len(got) != 2 || !has["http://192.168.4.1/right"] || !has["http://192.168.4.1/stop"] {
		t.Errorf("requests = %v, want right and stop", got)
	}
}

func TestSend_ClampsOffset(t *testing.T) {
	dev := &mockDevice{}
	c := newTestController(t, dev, nil)

	if got := c.Clamp(command.Move(500, 0)); got.Offset != (command.Offset{X: 100, Y: 0}) {
		t.Errorf("Clamp = %+v, want {100 0}", got.Offset)
	}
	if got := c.Clamp(command.Label(command.Left)); got.Direction != command.Left {
		t.Errorf("Clamp changed a label: %v", got)
	}

	c.Send(command.Move(500, 0))
	if _, err := c.SendWait(context.Background(), command.Move(0, -300)); err != nil {
		t.Fatalf("SendWait: %v", err)
	}
	c.Stop()

	has := map[string]bool{}
	for _, u := range dev.sent() {
		has[u] = true
	}
	if !has["http://192.168.4.1/?x=100.00&y=0.00"] || !has["http://192.168.4.1/?x=0.00&y=-100.00"] {
		t.Errorf("requests = %v, want offsets clamped to radius 100", dev.sent())
	}
}

func TestJoystickFlow_Offset(t *testing.T) {
	dev := &mockDevice{}
	c := newTestController(t, dev, func(cfg *config.Config) {
		cfg.Mode = "joystick"
		cfg.Strategy = "offset"
	})

	c.HandleMove(80, 10)
	c.Stop()

	got := dev.sent()
	if len(got) != 1 || got[0] != "http://192.168.4.1/?x=80.00&y=10.00" {
		t.Errorf("requests = %v", got)
	}
	if st := c.State(); st.DisplayLabel != "right" {
		t.Errorf("DisplayLabel = %q, want right", st.DisplayLabel)
	}
}

func TestButtonsFlow(t *testing.T) {
	dev := &mockDevice{}
	c := newTestController(t, dev, nil)

	if c.Mode() != gesture.ModeDirection {
		t.Fatalf("default mode = %s, want direction", c.Mode())
	}
	if _, ok, err := c.HandlePress("backward"); !ok || err != nil {
		t.Fatalf("HandlePress: ok=%v err=%v", ok, err)
	}
	if _, ok := c.HandleMove(10, 10); ok {
		t.Error("HandleMove should be ignored in direction mode")
	}
	c.Stop()

	if got := dev.sent(); len(got) != 1 || got[0] != "http://192.168.4.1/backward" {
		t.Errorf("requests = %v", got)
	}
}

func TestToggleMode(t *testing.T) {
	c := newTestController(t, &mockDevice{}, nil)
	if m := c.ToggleMode(); m != gesture.ModeJoystick {
		t.Errorf("ToggleMode = %s, want joystick", m)
	}
	if m := c.ToggleMode(); m != gesture.ModeDirection {
		t.Errorf("ToggleMode = %s, want direction", m)
	}
}

func TestFailedDispatch_AlertsOnceStateUnchanged(t *testing.T) {
	dev := &mockDevice{sendErr: &rover.RequestError{URL: "x", Err: rover.ErrUnreachable}}
	rec := &alert.Recorder{}
	c := newTestController(t, dev, nil, WithNotifier(rec))

	before := c.State()
	c.HandlePress("left")
	c.Stop()
	after := c.State()

	if rec.Count() != 1 {
		t.Errorf("alerts = %d, want 1", rec.Count())
	}
	if after.Address != before.Address || after.Mode != before.Mode || after.Status != before.Status {
		t.Errorf("state changed beyond direction: before=%+v after=%+v", before, after)
	}
}

func TestSetAddress_RestartsHealth(t *testing.T) {
	dev := &mockDevice{}
	c := newTestController(t, dev, nil)
	c.Start(context.Background())
	defer c.Stop()

	if err := c.SetAddress("10.0.0.9/"); err != nil {
		t.Fatalf("SetAddress: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if c.Address() != "http://10.0.0.9" {
		t.Errorf("Address = %q", c.Address())
	}
	if got := dev.lastPing(); got != "http://10.0.0.9" {
		t.Errorf("last ping = %q, want new address", got)
	}

	c.HandlePress("stop")
	c.dispatcher.Wait()
	sent := dev.sent()
	if sent[len(sent)-1] != "http://10.0.0.9/stop" {
		t.Errorf("last request = %q", sent[len(sent)-1])
	}
}

func TestSetAddress_Invalid(t *testing.T) {
	c := newTestController(t, &mockDevice{}, nil)
	if err := c.SetAddress("ftp://nope"); !errors.Is(err, config.ErrInvalidAddress) {
		t.Errorf("SetAddress error = %v, want ErrInvalidAddress", err)
	}
	if c.Address() != config.DefaultAddress {
		t.Errorf("Address changed to %q", c.Address())
	}
}

func TestHealthFailureHaltsPolling(t *testing.T) {
	dev := &mockDevice{pingErr: errors.New("down")}
	c := newTestController(t, dev, nil)
	c.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	if st := c.State(); st.Status != health.StatusFailed || st.StatusLabel != "Failed to Connect" {
		t.Errorf("status = %s (%s), want failed", st.Status, st.StatusLabel)
	}
	dev.mu.Lock()
	pings := len(dev.pings)
	dev.mu.Unlock()
	if pings != 1 {
		t.Errorf("pings = %d, want 1", pings)
	}
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	c := newTestController(t, &mockDevice{}, nil)

	var mu sync.Mutex
	var states []State
	c.Subscribe(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	c.SetMode(gesture.ModeJoystick)
	c.HandleMove(0, -50)
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 {
		t.Fatalf("states = %d, want at least 2", len(states))
	}
	last := states[len(states)-1]
	if last.Direction != "forward" || last.Mode != gesture.ModeJoystick {
		t.Errorf("last state = %+v", last)
	}
}

func TestNetworks(t *testing.T) {
	c := newTestController(t, &mockDevice{}, nil)
	if _, err := c.Networks(context.Background()); !errors.Is(err, ErrNoScanner) {
		t.Errorf("error = %v, want ErrNoScanner", err)
	}

	panel := wifi.NewPanel(wifi.StaticPermission(wifi.PermissionGranted), scannerFunc(func() []wifi.Network {
		return []wifi.Network{{SSID: "ESP-Rover"}, {SSID: "ESP-Rover"}}
	}))
	c = newTestController(t, &mockDevice{}, nil, WithPanel(panel))
	names, err := c.Networks(context.Background())
	if err != nil || len(names) != 1 || names[0] != "ESP-Rover" {
		t.Errorf("Networks = %v, %v", names, err)
	}
}

type scannerFunc func() []wifi.Network

func (f scannerFunc) Scan(context.Context) ([]wifi.Network, error) {
	return f(), nil
}
