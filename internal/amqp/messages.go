package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEventMessage announces a committed ledger mutation. It carries only
// the operation and the record id; consumers fetch current state from the
// durable store, so stale deliveries are harmless.
type LedgerEventMessage struct {
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for the given operation and record id.
func NewLedgerEventMessage(op, id string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
