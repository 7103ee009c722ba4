// Package mqttbridge drives the controller from an MQTT broker and
// mirrors its state back, so home-automation setups can steer the rover.
package mqttbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/controller"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

const (
	connectTimeout = 10 * time.Second
	disconnectWait = 250 // ms
	defaultPort    = "1883"
)

// ErrEmptyPayload is returned for a command message with no content.
var ErrEmptyPayload = errors.New("mqttbridge: empty command payload")

// Target is the part of the controller the bridge drives.
type Target interface {
	HandleMove(dx, dy float64) (command.Command, bool)
	HandleRelease() (command.Command, bool)
	HandlePress(label string) (command.Command, bool, error)
	Send(cmd command.Command) string
	Subscribe(fn func(controller.State))
}

var _ Target = (*controller.Controller)(nil)

// Bridge connects one controller to one broker.
type Bridge struct {
	client MQTT.Client
	target Target
	prefix string
	logger *slog.Logger
}

// New creates a bridge for cfg. It does not connect until Start.
func New(cfg config.MQTTConfig, target Target) *Bridge {
	b := &Bridge{
		target: target,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: log.Component("mqtt"),
	}
	if b.prefix == "" {
		b.prefix = config.DefaultMQTTPrefix
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "rover-" + uuid.NewString()[:8]
	}

	opts := MQTT.NewClientOptions().AddBroker(BrokerURL(cfg.Broker))
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	// Subscriptions are not persisted across reconnects with a clean session
	opts.SetOnConnectHandler(func(MQTT.Client) {
		if err := b.subscribe(); err != nil {
			b.logger.Error("subscribe failed", "topic", b.CommandTopic(), "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		b.logger.Warn("broker connection lost", "error", err)
	})

	b.client = MQTT.NewClient(opts)
	return b
}

// BrokerURL adds the tcp:// scheme and default port to a bare host.
func BrokerURL(broker string) string {
	broker = strings.TrimSpace(broker)
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	hostPart := broker[strings.Index(broker, "://")+3:]
	if !strings.Contains(hostPart, ":") {
		broker += ":" + defaultPort
	}
	return broker
}

// CommandTopic is where commands are received.
func (b *Bridge) CommandTopic() string {
	return b.prefix + "/command"
}

// StateTopic is where state snapshots are published.
func (b *Bridge) StateTopic() string {
	return b.prefix + "/state"
}

// Start connects to the broker and begins mirroring state.
func (b *Bridge) Start() error {
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	b.logger.Info("connected to broker", "command_topic", b.CommandTopic(), "state_topic", b.StateTopic())

	b.target.Subscribe(b.publishState)
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	if b.client.IsConnected() {
		b.client.Disconnect(disconnectWait)
		b.logger.Info("disconnected from broker")
	}
}

func (b *Bridge) subscribe() error {
	token := b.client.Subscribe(b.CommandTopic(), 0, func(_ MQTT.Client, msg MQTT.Message) {
		if err := b.Handle(msg.Payload()); err != nil {
			b.logger.Warn("rejected command", "topic", msg.Topic(), "payload", string(msg.Payload()), "error", err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (b *Bridge) publishState(st controller.State) {
	if !b.client.IsConnected() {
		return
	}
	payload, err := json.Marshal(st)
	if err != nil {
		b.logger.Error("encode state", "error", err)
		return
	}
	b.client.Publish(b.StateTopic(), 0, false, payload)
}

// Handle applies one command payload. A JSON payload is read as a
// protocol message; anything else is a bare direction label, which is
// sent whatever the input mode.
func (b *Bridge) Handle(payload []byte) error {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return ErrEmptyPayload
	}

	if !strings.HasPrefix(text, "{") {
		dir, err := command.ParseDirection(text)
		if err != nil {
			return err
		}
		b.target.Send(command.Label(dir))
		return nil
	}

	msg, err := protocol.ParseMessage([]byte(text))
	if err != nil {
		return err
	}
	switch msg.Type {
	case protocol.TypeMove:
		var move protocol.MoveData
		if err := msg.ParseData(&move); err != nil {
			return err
		}
		b.target.HandleMove(move.DX, move.DY)
	case protocol.TypeRelease:
		b.target.HandleRelease()
	case protocol.TypePress:
		var press protocol.PressData
		if err := msg.ParseData(&press); err != nil {
			return err
		}
		if _, _, err := b.target.HandlePress(press.Direction); err != nil {
			return err
		}
	default:
		return fmt.Errorf("mqttbridge: unsupported message type %q", msg.Type)
	}
	return nil
}
