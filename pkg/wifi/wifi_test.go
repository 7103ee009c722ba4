package wifi

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/teslashibe/go-rover/pkg/alert"
)

type mockScanner struct {
	networks []Network
	err      error
	calls    int
}

func (m *mockScanner) Scan(context.Context) ([]Network, error) {
	m.calls++
	return m.networks, m.err
}

// mockPermissions answers Check and Request independently.
type mockPermissions struct {
	check, request Permission
	requestErr     error
	requests       int
}

func (m *mockPermissions) Check(context.Context) (Permission, error) {
	return m.check, nil
}

func (m *mockPermissions) Request(context.Context) (Permission, error) {
	m.requests++
	return m.request, m.requestErr
}

func TestDedupe(t *testing.T) {
	in := []Network{
		{SSID: "ESP-Rover", BSSID: "aa"},
		{SSID: "HomeNet"},
		{SSID: ""},
		{SSID: "ESP-Rover", BSSID: "bb"},
		{SSID: "Cafe"},
		{SSID: "HomeNet"},
	}
	got := Dedupe(in)
	want := []string{"ESP-Rover", "HomeNet", "Cafe"}
	if len(got) != len(want) {
		t.Fatalf("Dedupe = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dedupe[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscover_Granted(t *testing.T) {
	scanner := &mockScanner{networks: []Network{{SSID: "A"}, {SSID: "A"}, {SSID: "B"}}}
	perms := &mockPermissions{check: PermissionGranted}
	rec := &alert.Recorder{}
	p := NewPanel(perms, scanner, WithNotifier(rec))

	names, err := p.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("names = %v, want [A B]", names)
	}
	if perms.requests != 0 {
		t.Errorf("Request called %d times, want 0 when already granted", perms.requests)
	}
	if rec.Count() != 0 {
		t.Errorf("alerts = %d, want 0", rec.Count())
	}
}

func TestDiscover_RequestsWhenUnknown(t *testing.T) {
	scanner := &mockScanner{networks: []Network{{SSID: "A"}}}
	perms := &mockPermissions{check: PermissionUnknown, request: PermissionGranted}
	p := NewPanel(perms, scanner)

	names, err := p.Discover(context.Background())
	if err != nil || len(names) != 1 {
		t.Fatalf("Discover = %v, %v", names, err)
	}
	if perms.requests != 1 {
		t.Errorf("requests = %d, want 1", perms.requests)
	}
}

func TestDiscover_DeniedAlertsOnceThenSkips(t *testing.T) {
	scanner := &mockScanner{networks: []Network{{SSID: "A"}}}
	perms := &mockPermissions{check: PermissionDenied, request: PermissionDenied}
	rec := &alert.Recorder{}
	p := NewPanel(perms, scanner, WithNotifier(rec))

	_, err := p.Discover(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrPermissionDenied", err)
	}

	names, err := p.Discover(context.Background())
	if err != nil || len(names) != 0 {
		t.Errorf("second Discover = %v, %v, want empty and nil", names, err)
	}

	if rec.Count() != 1 {
		t.Errorf("alerts = %d, want 1", rec.Count())
	}
	if rec.Alerts()[0].Title != alert.PermissionTitle {
		t.Errorf("alert title = %q", rec.Alerts()[0].Title)
	}
	if scanner.calls != 0 {
		t.Errorf("scanner called %d times, want 0", scanner.calls)
	}
	if !p.Refused() {
		t.Error("Refused should be true")
	}
}

func TestDiscover_RequestError(t *testing.T) {
	perms := &mockPermissions{check: PermissionUnknown, requestErr: errors.New("no agent")}
	p := NewPanel(perms, &mockScanner{})

	_, err := p.Discover(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("error = %v, want ErrPermissionDenied", err)
	}
}

func TestDiscover_ScanError(t *testing.T) {
	scanner := &mockScanner{err: errors.New("nm down")}
	rec := &alert.Recorder{}
	p := NewPanel(StaticPermission(PermissionGranted), scanner, WithNotifier(rec))

	if _, err := p.Discover(context.Background()); err == nil {
		t.Fatal("Discover should fail when the scan fails")
	}
	if rec.Count() != 1 || rec.Alerts()[0].Title != alert.NetworkTitle {
		t.Errorf("alerts = %+v, want one network alert", rec.Alerts())
	}
	if p.Refused() {
		t.Error("scan failures should not mark the permission refused")
	}
}

func TestNetworkFromProps(t *testing.T) {
	n := networkFromProps(map[string]dbus.Variant{
		"Ssid":      dbus.MakeVariant([]byte("ESP-Rover")),
		"HwAddress": dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
		"Strength":  dbus.MakeVariant(byte(72)),
		"Frequency": dbus.MakeVariant(uint32(2437)),
	})
	if n.SSID != "ESP-Rover" || n.BSSID != "AA:BB:CC:DD:EE:FF" || n.Strength != 72 || n.Frequency != 2437 {
		t.Errorf("network = %+v", n)
	}

	if empty := networkFromProps(map[string]dbus.Variant{}); empty != (Network{}) {
		t.Errorf("empty props = %+v", empty)
	}
}

func TestPermissionFromPolkit(t *testing.T) {
	tests := []struct {
		res  polkitResult
		want Permission
	}{
		{polkitResult{IsAuthorized: true}, PermissionGranted},
		{polkitResult{IsChallenge: true}, PermissionUnknown},
		{polkitResult{}, PermissionDenied},
	}
	for _, tt := range tests {
		if got := permissionFromPolkit(tt.res); got != tt.want {
			t.Errorf("permissionFromPolkit(%+v) = %s, want %s", tt.res, got, tt.want)
		}
	}
}
