// Package wifi lists nearby Wi-Fi networks for the discovery panel.
//
// Reading scan results requires a permission grant first. The panel is
// read-only: it never connects to any listed network.
package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/metrics"
)

// ErrPermissionDenied is returned by Discover when the scan permission is
// not granted.
var ErrPermissionDenied = errors.New("wifi: scan permission denied")

// Permission is the outcome of a permission check or request.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionUnknown Permission = "unknown"
)

// Network is one visible access point.
type Network struct {
	SSID      string `json:"ssid"`
	BSSID     string `json:"bssid,omitempty"`
	Strength  uint8  `json:"strength"`
	Frequency uint32 `json:"frequency,omitempty"`
}

// Scanner returns the networks currently visible.
type Scanner interface {
	Scan(ctx context.Context) ([]Network, error)
}

// Permissions checks and requests the scan permission.
type Permissions interface {
	Check(ctx context.Context) (Permission, error)
	Request(ctx context.Context) (Permission, error)
}

// Dedupe returns network names with duplicates removed by name. The first
// occurrence wins and scanner order is kept. Hidden (empty) names are
// dropped.
func Dedupe(networks []Network) []string {
	seen := make(map[string]bool, len(networks))
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		if n.SSID == "" || seen[n.SSID] {
			continue
		}
		seen[n.SSID] = true
		names = append(names, n.SSID)
	}
	return names
}

// Panel runs permission-gated discovery.
type Panel struct {
	perms    Permissions
	scanner  Scanner
	notifier alert.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	refused bool
}

// PanelOption configures a Panel.
type PanelOption func(*Panel)

// WithNotifier sets where permission and scan failures are shown.
func WithNotifier(n alert.Notifier) PanelOption {
	return func(p *Panel) {
		p.notifier = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) PanelOption {
	return func(p *Panel) {
		p.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) PanelOption {
	return func(p *Panel) {
		p.metrics = m
	}
}

// NewPanel creates a discovery panel.
func NewPanel(perms Permissions, scanner Scanner, opts ...PanelOption) *Panel {
	p := &Panel{
		perms:   perms,
		scanner: scanner,
		logger:  log.Component("wifi"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refused reports whether a previous permission request was refused.
func (p *Panel) Refused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refused
}

// Discover ensures the scan permission and returns the distinct visible
// network names.
//
// A refused permission alerts once and returns ErrPermissionDenied; later
// calls skip scanning silently and return an empty list.
func (p *Panel) Discover(ctx context.Context) ([]string, error) {
	if p.Refused() {
		return []string{}, nil
	}

	granted, err := p.ensurePermission(ctx)
	if err != nil || !granted {
		p.mu.Lock()
		p.refused = true
		p.mu.Unlock()

		p.logger.Warn("scan permission not granted", "error", err)
		p.alert(alert.PermissionTitle, alert.PermissionMessage)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, ErrPermissionDenied
	}

	networks, err := p.scanner.Scan(ctx)
	if err != nil {
		p.logger.Error("wifi scan failed", "error", err)
		p.alert(alert.NetworkTitle, "Unable to scan for Wi-Fi networks.")
		return nil, fmt.Errorf("wifi: scan: %w", err)
	}

	names := Dedupe(networks)
	p.metrics.Networks(len(names))
	p.logger.Info("wifi scan", "visible", len(networks), "distinct", len(names))
	return names, nil
}

func (p *Panel) ensurePermission(ctx context.Context) (bool, error) {
	perm, err := p.perms.Check(ctx)
	if err == nil && perm == PermissionGranted {
		return true, nil
	}

	perm, err = p.perms.Request(ctx)
	if err != nil {
		return false, err
	}
	return perm == PermissionGranted, nil
}

func (p *Panel) alert(title, message string) {
	p.metrics.Alert(title)
	if p.notifier != nil {
		p.notifier.Alert(title, message)
	}
}

// StaticPermission always answers with the same result. It serves
// headless hosts where no permission authority is running.
type StaticPermission Permission

// Check implements Permissions.
func (s StaticPermission) Check(context.Context) (Permission, error) {
	return Permission(s), nil
}

// Request implements Permissions.
func (s StaticPermission) Request(context.Context) (Permission, error) {
	return Permission(s), nil
}
