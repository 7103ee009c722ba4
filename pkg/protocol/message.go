// Package protocol defines the WebSocket messages exchanged between the
// control page and the rover daemon.
//
// Every message is a JSON envelope with a type, a timestamp and an
// optional data payload. The page streams raw gestures; the daemon
// answers with state snapshots and alerts.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Page → daemon
	TypeMove    MessageType = "move"    // Joystick drag update
	TypeRelease MessageType = "release" // Joystick released
	TypePress   MessageType = "press"   // Direction button tapped
	TypeMode    MessageType = "mode"    // Switch input mode

	// Daemon → page
	TypeState MessageType = "state" // Controller state snapshot
	TypeAlert MessageType = "alert" // One-shot user alert
	TypeError MessageType = "error" // Rejected message

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// MoveData is a drag offset from the joystick origin, in screen units.
type MoveData struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// PressData names the tapped direction button.
type PressData struct {
	Direction string `json:"direction"`
}

// ModeData selects the input mode.
type ModeData struct {
	Mode string `json:"mode"`
}

// AlertData is a user-facing alert.
type AlertData struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorData explains why a message was rejected.
type ErrorData struct {
	Message string `json:"message"`
}

// PongData answers a ping.
type PongData struct {
	PingTS   int64 `json:"ping_ts"`
	ServerTS int64 `json:"server_ts"`
}

// NewMoveMessage creates a move message.
func NewMoveMessage(dx, dy float64) (*Message, error) {
	return NewMessage(TypeMove, MoveData{DX: dx, DY: dy})
}

// NewPressMessage creates a press message.
func NewPressMessage(direction string) (*Message, error) {
	return NewMessage(TypePress, PressData{Direction: direction})
}

// NewAlertMessage creates an alert message.
func NewAlertMessage(title, message string) (*Message, error) {
	return NewMessage(TypeAlert, AlertData{Title: title, Message: message})
}

// NewErrorMessage creates an error message.
func NewErrorMessage(message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: message})
}

// NewPongMessage creates a pong answering a ping sent at pingTS.
func NewPongMessage(pingTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{PingTS: pingTS, ServerTS: time.Now().UnixMilli()})
}
