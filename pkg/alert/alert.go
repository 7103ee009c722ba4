// Package alert carries user-facing, one-shot failure notifications.
//
// Failures collapse to two kinds: a network error and a permission error.
// How an alert is shown (browser dialog, stderr line) is up to the Notifier.
package alert

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Titles and messages for the two alert kinds.
const (
	NetworkTitle      = "Network Error"
	NetworkMessage    = "Unable to connect to ESP8266. Please check your connection."
	PermissionTitle   = "Permission Error"
	PermissionMessage = "Location permission is required to scan for Wi-Fi networks."
)

// Alert is a single notification.
type Alert struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier shows alerts to the user.
type Notifier interface {
	Alert(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

// Alert calls f.
func (f NotifierFunc) Alert(title, message string) {
	f(title, message)
}

// Writer prints alerts as lines to an io.Writer.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

// Alert implements Notifier.
func (w *Writer) Alert(title, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.W, "⚠️  %s: %s\n", title, message)
}

// Recorder keeps every alert in memory. Useful in tests and for the
// status API.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

// Alert implements Notifier.
func (r *Recorder) Alert(title, message string) {
	r.mu.Lock()
	r.alerts = append(r.alerts, Alert{Title: title, Message: message, Time: time.Now()})
	r.mu.Unlock()
}

// Alerts returns a copy of the recorded alerts.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// Count returns the number of recorded alerts.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// Multi fans an alert out to several notifiers.
type Multi []Notifier

// Alert implements Notifier.
func (m Multi) Alert(title, message string) {
	for _, n := range m {
		if n != nil {
			n.Alert(title, message)
		}
	}
}
