package wifi

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	polkitBusName = "org.freedesktop.PolicyKit1"
	polkitPath    = "/org/freedesktop/PolicyKit1/Authority"
	polkitMethod  = "org.freedesktop.PolicyKit1.Authority.CheckAuthorization"

	// ScanAction is the NetworkManager action guarding Wi-Fi scans.
	ScanAction = "org.freedesktop.NetworkManager.wifi.scan"

	polkitAllowInteraction uint32 = 1
)

type polkitSubject struct {
	Kind    string
	Details map[string]dbus.Variant
}

type polkitResult struct {
	IsAuthorized bool
	IsChallenge  bool
	Details      map[string]string
}

// PolkitPermission asks PolicyKit whether this process may scan.
type PolkitPermission struct {
	conn   *dbus.Conn
	action string
}

// NewPolkitPermission connects to the system bus.
func NewPolkitPermission() (*PolkitPermission, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return &PolkitPermission{conn: conn, action: ScanAction}, nil
}

// Check queries the authorization without prompting.
func (p *PolkitPermission) Check(ctx context.Context) (Permission, error) {
	return p.authorize(ctx, 0)
}

// Request queries the authorization, letting an agent prompt the user.
func (p *PolkitPermission) Request(ctx context.Context) (Permission, error) {
	return p.authorize(ctx, polkitAllowInteraction)
}

func (p *PolkitPermission) authorize(ctx context.Context, flags uint32) (Permission, error) {
	names := p.conn.Names()
	if len(names) == 0 {
		return PermissionUnknown, fmt.Errorf("polkit: no unique bus name")
	}
	subject := polkitSubject{
		Kind:    "system-bus-name",
		Details: map[string]dbus.Variant{"name": dbus.MakeVariant(names[0])},
	}

	var res polkitResult
	err := p.conn.Object(polkitBusName, polkitPath).CallWithContext(ctx, polkitMethod, 0,
		subject, p.action, map[string]string{}, flags, "").Store(&res)
	if err != nil {
		return PermissionUnknown, fmt.Errorf("polkit: check authorization: %w", err)
	}
	return permissionFromPolkit(res), nil
}

// permissionFromPolkit maps an authorization result. A pending challenge
// is unknown: the user has not answered yet.
func permissionFromPolkit(r polkitResult) Permission {
	switch {
	case r.IsAuthorized:
		return PermissionGranted
	case r.IsChallenge:
		return PermissionUnknown
	default:
		return PermissionDenied
	}
}
