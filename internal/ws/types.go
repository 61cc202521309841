package ws

import "encoding/json"

// Message types
const (
	TypeSystem = "system"
	TypeEval   = "eval"
	TypeEvent  = "event"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeError  = "error"
)

// Message is one WebSocket frame in either direction
type Message struct {
	Type      string          `json:"type"`
	Script    string          `json:"script,omitempty"`
	Event     string          `json:"event,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Label     string          `json:"label,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}
