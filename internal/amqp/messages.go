package amqp

import (
	"encoding/json"
	"time"

	"invoicer/internal/events"
)

// ChangeMessage is the wire form of a committed change. It carries only
// identifiers; consumers fetch the full entity from the record store.
type ChangeMessage struct {
	Kind       events.Kind   `json:"kind"`
	Entity     events.Entity `json:"entity"`
	ID         string        `json:"id"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewChangeMessage builds the wire message for an event.
func NewChangeMessage(e events.Event) *ChangeMessage {
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return &ChangeMessage{Kind: e.Kind, Entity: e.Entity, ID: e.ID, OccurredAt: occurred}
}

// RoutingKey is "<entity>.<kind>", e.g. "expense.updated".
func (m *ChangeMessage) RoutingKey() string {
	return string(m.Entity) + "." + string(m.Kind)
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
