package mqttbridge

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/controller"
)

// mockTarget records what the bridge asked for.
type mockTarget struct {
	moves    []command.Offset
	releases int
	presses  []string
	sent     []command.Command
	pressErr error
}

func (m *mockTarget) HandleMove(dx, dy float64) (command.Command, bool) {
	m.moves = append(m.moves, command.Offset{X: dx, Y: dy})
	return command.Move(dx, dy), true
}

func (m *mockTarget) HandleRelease() (command.Command, bool) {
	m.releases++
	return command.Label(command.Stop), true
}

func (m *mockTarget) HandlePress(label string) (command.Command, bool, error) {
	m.presses = append(m.presses, label)
	return command.Command{}, m.pressErr == nil, m.pressErr
}

func (m *mockTarget) Send(cmd command.Command) string {
	m.sent = append(m.sent, cmd)
	return "id"
}

func (m *mockTarget) Subscribe(fn func(controller.State)) {}

func newTestBridge(target Target) *Bridge {
	return New(config.MQTTConfig{Broker: "localhost", Prefix: "/garage/rover/"}, target)
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost", "tcp://localhost:1883"},
		{"10.0.0.5:1884", "tcp://10.0.0.5:1884"},
		{"ssl://broker.example.com", "ssl://broker.example.com:1883"},
		{"ws://broker:9001", "ws://broker:9001"},
	}
	for _, tt := range tests {
		if got := BrokerURL(tt.in); got != tt.want {
			t.Errorf("BrokerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTopics(t *testing.T) {
	b := newTestBridge(&mockTarget{})
	if b.CommandTopic() != "garage/rover/command" {
		t.Errorf("CommandTopic = %s", b.CommandTopic())
	}
	if b.StateTopic() != "garage/rover/state" {
		t.Errorf("StateTopic = %s", b.StateTopic())
	}

	b = New(config.MQTTConfig{Broker: "localhost"}, &mockTarget{})
	if b.CommandTopic() != "rover/command" {
		t.Errorf("default CommandTopic = %s", b.CommandTopic())
	}
}

func TestHandle_BareLabel(t *testing.T) {
	target := &mockTarget{}
	b := newTestBridge(target)

	if err := b.Handle([]byte(" left\n")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(target.sent) != 1 || target.sent[0].Direction != command.Left {
		t.Errorf("sent = %v, want [left]", target.sent)
	}

	if err := b.Handle([]byte("sideways")); !errors.Is(err, command.ErrUnknownDirection) {
		t.Errorf("unknown label error = %v, want ErrUnknownDirection", err)
	}
	if err := b.Handle([]byte("  ")); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("empty payload error = %v, want ErrEmptyPayload", err)
	}
}

func TestHandle_ProtocolMessages(t *testing.T) {
	target := &mockTarget{}
	b := newTestBridge(target)

	if err := b.Handle([]byte(`{"type":"move","data":{"dx":80,"dy":10}}`)); err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(target.moves) != 1 || target.moves[0] != (command.Offset{X: 80, Y: 10}) {
		t.Errorf("moves = %v", target.moves)
	}

	if err := b.Handle([]byte(`{"type":"release"}`)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if target.releases != 1 {
		t.Errorf("releases = %d, want 1", target.releases)
	}

	if err := b.Handle([]byte(`{"type":"press","data":{"direction":"forward"}}`)); err != nil {
		t.Fatalf("press: %v", err)
	}
	if len(target.presses) != 1 || target.presses[0] != "forward" {
		t.Errorf("presses = %v", target.presses)
	}
}

func TestHandle_Rejects(t *testing.T) {
	target := &mockTarget{pressErr: command.ErrUnknownDirection}
	b := newTestBridge(target)

	cases := map[string]string{
		"bad json":     `{"type":`,
		"missing type": `{"data":{}}`,
		"state":        `{"type":"state"}`,
		"bad press":    `{"type":"press","data":{"direction":"up"}}`,
		"bad move":     `{"type":"move","data":{"dx":"far"}}`,
	}
	for name, payload := range cases {
		if err := b.Handle([]byte(payload)); err == nil {
			t.Errorf("%s: Handle should fail", name)
		}
	}
	if len(target.sent) != 0 {
		t.Errorf("rejected payloads sent %d commands", len(target.sent))
	}
}
