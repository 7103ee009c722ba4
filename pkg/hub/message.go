// Package hub provides a thread-safe websocket fan-out hub for the
// control page, using the channel-based register/unregister/broadcast
// pattern. Clients may also send messages back; each inbound frame is
// handed to the client's handler on the read goroutine.
package hub

// Message is one pre-encoded JSON document queued for a client. It is
// written as a single text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
