package amqp

import (
	"encoding/json"
	"time"
)

// GenerationMessage announces that a recurring template materialized
// transactions. It carries only identifiers and counts; consumers fetch
// the full rows from the ledger database.
type GenerationMessage struct {
	TemplateID string    `json:"template_id"`
	Generated  int       `json:"generated"`
	Through    string    `json:"through"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewGenerationMessage creates a generation announcement for one
// template.
func NewGenerationMessage(templateID string, generated int, through string) *GenerationMessage {
	return &GenerationMessage{
		TemplateID: templateID,
		Generated:  generated,
		Through:    through,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *GenerationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GenerationMessageFromJSON creates a message from JSON bytes
func GenerationMessageFromJSON(data []byte) (*GenerationMessage, error) {
	var msg GenerationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
