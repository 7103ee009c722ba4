// Package config loads go-rover configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Commands apply their flags on top.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAddress is the ESP8266 address in soft-AP mode.
const DefaultAddress = "http://192.168.4.1"

// Defaults for the remaining settings.
const (
	DefaultListen         = ":8080"
	DefaultMode           = "direction"
	DefaultStrategy       = "label"
	DefaultHealthInterval = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultRadius         = 100.0
	DefaultLabelDeadZone  = 0.25
	DefaultMQTTPrefix     = "rover"
)

// Sentinel errors returned by Validate.
var (
	ErrInvalidAddress  = errors.New("config: invalid device address")
	ErrInvalidInterval = errors.New("config: health interval must be positive")
	ErrInvalidRadius   = errors.New("config: joystick radius must be positive")
	ErrInvalidMode     = errors.New("config: mode must be joystick or direction")
	ErrInvalidStrategy = errors.New("config: strategy must be label or offset")
)

// Config is the full go-rover configuration.
type Config struct {
	Address        string        `yaml:"address"`
	Listen         string        `yaml:"listen"`
	Mode           string        `yaml:"mode"`
	Strategy       string        `yaml:"strategy"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Health   HealthConfig   `yaml:"health"`
	Joystick JoystickConfig `yaml:"joystick"`
	Log      LogConfig      `yaml:"log"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	WiFi     WiFiConfig     `yaml:"wifi"`
}

// HealthConfig controls the connection health check.
type HealthConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// JoystickConfig controls gesture interpretation.
type JoystickConfig struct {
	Radius float64 `yaml:"radius"`
	// LabelDeadZone is the fraction of Radius below which no label is shown.
	LabelDeadZone float64 `yaml:"label_dead_zone"`
}

// LogConfig controls internal/log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MQTTConfig enables the MQTT bridge when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Prefix   string `yaml:"prefix"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WiFiConfig selects the permission backend: "polkit", "granted" or "denied".
type WiFiConfig struct {
	Permission string `yaml:"permission"`
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Address:        DefaultAddress,
		Listen:         DefaultListen,
		Mode:           DefaultMode,
		Strategy:       DefaultStrategy,
		RequestTimeout: DefaultRequestTimeout,
		Health:         HealthConfig{Interval: DefaultHealthInterval},
		Joystick: JoystickConfig{
			Radius:        DefaultRadius,
			LabelDeadZone: DefaultLabelDeadZone,
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		MQTT: MQTTConfig{Prefix: DefaultMQTTPrefix},
		WiFi: WiFiConfig{Permission: "polkit"},
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty,
// otherwise ROVER_CONFIG) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ROVER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	cfg.Address = NormalizeAddress(cfg.Address)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROVER_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("ROVER_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("ROVER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
		cfg.MQTT.Password = os.Getenv("MQTT_PASSWORD")
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if err := ValidateAddress(c.Address); err != nil {
		return err
	}
	if c.Health.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.Joystick.Radius <= 0 {
		return ErrInvalidRadius
	}
	if c.Mode != "joystick" && c.Mode != "direction" {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Strategy != "label" && c.Strategy != "offset" {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Strategy)
	}
	return nil
}

// ValidateAddress reports whether addr is an absolute http(s) URL.
func ValidateAddress(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https: %q", ErrInvalidAddress, addr)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host: %q", ErrInvalidAddress, addr)
	}
	return nil
}

// NormalizeAddress trims whitespace and trailing slashes, and adds an
// http:// scheme to bare hosts like "192.168.4.1".
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}
