package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidMessage = errors.New("invalid import request")

// ImportRequestMessage asks the worker to reload the dataset from a source
// and persist it.
type ImportRequestMessage struct {
	Source      string    `json:"source"`
	Location    string    `json:"location,omitempty"`
	Sheet       string    `json:"sheet,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewImportRequestMessage(source, location, sheet string) *ImportRequestMessage {
	return &ImportRequestMessage{
		Source:      source,
		Location:    location,
		Sheet:       sheet,
		RequestedAt: time.Now(),
	}
}

// Validate checks the fields a worker needs before touching a source.
func (m *ImportRequestMessage) Validate() error {
	if strings.TrimSpace(m.Source) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("source is required"))
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ImportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportRequestMessageFromJSON(data []byte) (*ImportRequestMessage, error) {
	var msg ImportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
