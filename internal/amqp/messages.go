package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ChangeMessage announces that a collection changed. Receivers re-read the
// collection; the message carries no record data.
type ChangeMessage struct {
	Path      string    `json:"path"`
	Op        string    `json:"op"`
	ID        string    `json:"id,omitempty"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message stamped with the current time.
func NewChangeMessage(origin, path, op, id string) *ChangeMessage {
	return &ChangeMessage{
		Path:      path,
		Op:        op,
		ID:        id,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects one without a path.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Path == "" {
		return nil, errors.New("change message without path")
	}
	return &msg, nil
}
