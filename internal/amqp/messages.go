package amqp

import (
	"encoding/json"
	"time"

	"budgetcal/internal/core"
)

// Change operations carried on the wire.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
	OpImport = "import"
	OpReset  = "reset"
)

// ChangeMessage describes one mutation of the budget dataset. The worker
// mirrors add/update changes to Google Sheets; delete/import/reset are
// logged only. Transaction fields are populated for add and update.
type ChangeMessage struct {
	Op            string    `json:"op"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Version       uint64    `json:"version"`
	Kind          string    `json:"kind,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Description   string    `json:"description,omitempty"`
	StartDate     string    `json:"start_date,omitempty"`
	Frequency     string    `json:"frequency,omitempty"`
	Category      string    `json:"category,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewChangeMessage builds a message for a transaction mutation.
func NewChangeMessage(op string, version uint64, t core.Transaction) *ChangeMessage {
	return &ChangeMessage{
		Op:            op,
		TransactionID: t.ID,
		Version:       version,
		Kind:          string(t.Kind),
		AmountCents:   t.Amount.Cents,
		Description:   t.Description,
		StartDate:     t.StartDate.Key(),
		Frequency:     string(t.Frequency),
		Category:      t.Category,
		Timestamp:     time.Now(),
	}
}

// NewDatasetMessage builds a message for a dataset-wide change (import, reset).
func NewDatasetMessage(op string, version uint64) *ChangeMessage {
	return &ChangeMessage{
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
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
