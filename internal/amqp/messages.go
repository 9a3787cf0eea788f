package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"ledger/internal/core"
)

// ChangeMessage announces a completed ledger write. It carries no row data;
// consumers re-read the store.
type ChangeMessage struct {
	core.Change
	Source string `json:"source,omitempty"`
}

// NewChangeMessage wraps c, stamping it if the timestamp is unset.
func NewChangeMessage(c core.Change) *ChangeMessage {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return &ChangeMessage{Change: c}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Collection {
	case core.CollectionTransactions, core.CollectionCategories:
	default:
		return nil, errors.New("unknown collection " + msg.Collection)
	}
	return &msg, nil
}
