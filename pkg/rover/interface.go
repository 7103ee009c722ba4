// Package rover talks to the ESP8266 receiver's HTTP server.
//
// The firmware accepts plain GET requests and answers with arbitrary text.
// Small interfaces are defined so consumers depend only on what they use:
// the dispatcher needs a CommandSender and the health check a Pinger.
package rover

import (
	"context"

	"github.com/teslashibe/go-rover/pkg/command"
)

// CommandSender relays one directional command to the device.
type CommandSender interface {
	Send(ctx context.Context, base string, cmd command.Command) (Response, error)
}

// Pinger probes the device's base address.
type Pinger interface {
	Ping(ctx context.Context, base string) (Response, error)
}

// Device is the composite interface for full device access.
type Device interface {
	CommandSender
	Pinger
}

// Ensure HTTPClient implements Device
var _ Device = (*HTTPClient)(nil)
