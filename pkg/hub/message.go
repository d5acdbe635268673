// Package hub fans dashboard messages out to websocket viewers through a
// single goroutine that owns the viewer set.
package hub

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// MessageType is the websocket frame type a message is written as.
type MessageType int

const (
	// JSONMessage is a text frame carrying JSON (status updates).
	JSONMessage MessageType = iota
	// BinaryMessage is a binary frame (JPEG canvas frames).
	BinaryMessage
)

// Message is one payload queued for every viewer.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// EncodeJSON marshals v into a JSON message.
func EncodeJSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}

// frameType maps the message to its websocket opcode.
func (m Message) frameType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
