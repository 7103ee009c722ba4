package wifi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/teslashibe/go-rover/internal/log"
)

const (
	nmBusName       = "org.freedesktop.NetworkManager"
	nmPath          = "/org/freedesktop/NetworkManager"
	nmIface         = "org.freedesktop.NetworkManager"
	nmDeviceIface   = "org.freedesktop.NetworkManager.Device"
	nmWirelessIface = "org.freedesktop.NetworkManager.Device.Wireless"
	nmAPIface       = "org.freedesktop.NetworkManager.AccessPoint"
	propsIface      = "org.freedesktop.DBus.Properties"

	// nmDeviceTypeWifi is NM_DEVICE_TYPE_WIFI.
	nmDeviceTypeWifi uint32 = 2
)

// NMScanner scans through NetworkManager on the system D-Bus.
type NMScanner struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewNMScanner connects to the system bus.
func NewNMScanner() (*NMScanner, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return &NMScanner{conn: conn, logger: log.Component("wifi.nm")}, nil
}

// Close releases the bus connection.
func (s *NMScanner) Close() error {
	return s.conn.Close()
}

// Scan asks every Wi-Fi device for a fresh scan and returns the access
// points it currently knows about.
func (s *NMScanner) Scan(ctx context.Context) ([]Network, error) {
	var devices []dbus.ObjectPath
	err := s.conn.Object(nmBusName, nmPath).CallWithContext(ctx, nmIface+".GetDevices", 0).Store(&devices)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var networks []Network
	for _, dev := range devices {
		typ, err := s.getProp(ctx, dev, nmDeviceIface, "DeviceType")
		if err != nil {
			continue
		}
		if t, ok := typ.Value().(uint32); !ok || t != nmDeviceTypeWifi {
			continue
		}

		obj := s.conn.Object(nmBusName, dev)
		// NetworkManager rate-limits scans; cached results are still valid.
		if err := obj.CallWithContext(ctx, nmWirelessIface+".RequestScan", 0, map[string]dbus.Variant{}).Err; err != nil {
			s.logger.Debug("scan request refused", "device", dev, "error", err)
		}

		var aps []dbus.ObjectPath
		if err := obj.CallWithContext(ctx, nmWirelessIface+".GetAllAccessPoints", 0).Store(&aps); err != nil {
			return nil, fmt.Errorf("list access points on %s: %w", dev, err)
		}
		for _, ap := range aps {
			n, err := s.accessPoint(ctx, ap)
			if err != nil {
				s.logger.Debug("skip access point", "path", ap, "error", err)
				continue
			}
			networks = append(networks, n)
		}
	}
	return networks, nil
}

func (s *NMScanner) accessPoint(ctx context.Context, path dbus.ObjectPath) (Network, error) {
	var props map[string]dbus.Variant
	err := s.conn.Object(nmBusName, path).CallWithContext(ctx, propsIface+".GetAll", 0, nmAPIface).Store(&props)
	if err != nil {
		return Network{}, err
	}
	return networkFromProps(props), nil
}

func (s *NMScanner) getProp(ctx context.Context, path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	err := s.conn.Object(nmBusName, path).CallWithContext(ctx, propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

// networkFromProps decodes an AccessPoint property map.
func networkFromProps(props map[string]dbus.Variant) Network {
	var n Network
	if v, ok := props["Ssid"]; ok {
		if b, ok := v.Value().([]byte); ok {
			n.SSID = string(b)
		}
	}
	if v, ok := props["HwAddress"]; ok {
		n.BSSID, _ = v.Value().(string)
	}
	if v, ok := props["Strength"]; ok {
		n.Strength, _ = v.Value().(byte)
	}
	if v, ok := props["Frequency"]; ok {
		n.Frequency, _ = v.Value().(uint32)
	}
	return n
}
