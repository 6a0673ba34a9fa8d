package amqp

import (
	"testing"

	"budgetcal/internal/core"
)

func TestNewChangeMessage(t *testing.T) {
	txn := core.Transaction{
		ID:          "t1",
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 4200},
		Description: "internet",
		StartDate:   core.NewDate(2025, 3, 5),
		Frequency:   core.Monthly,
		Category:    "Utilities",
	}

	msg := NewChangeMessage(OpAdd, 7, txn)

	if msg.Op != OpAdd {
		t.Errorf("op = %q, want %q", msg.Op, OpAdd)
	}
	if msg.TransactionID != "t1" {
		t.Errorf("transaction id = %q, want t1", msg.TransactionID)
	}
	if msg.Version != 7 {
		t.Errorf("version = %d, want 7", msg.Version)
	}
	if msg.Kind != "expense" {
		t.Errorf("kind = %q, want expense", msg.Kind)
	}
	if msg.AmountCents != 4200 {
		t.Errorf("amount = %d, want 4200", msg.AmountCents)
	}
	if msg.StartDate != "2025-03-05" {
		t.Errorf("start date = %q, want 2025-03-05", msg.StartDate)
	}
	if msg.Frequency != "monthly" {
		t.Errorf("frequency = %q, want monthly", msg.Frequency)
	}
	if msg.Category != "Utilities" {
		t.Errorf("category = %q, want Utilities", msg.Category)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestNewDatasetMessage(t *testing.T) {
	msg := NewDatasetMessage(OpReset, 3)

	if msg.Op != OpReset || msg.Version != 3 {
		t.Errorf("message = %+v, want op reset version 3", msg)
	}
	if msg.TransactionID != "" || msg.Kind != "" {
		t.Errorf("dataset message should carry no transaction fields: %+v", msg)
	}
}

func TestChangeMessageJSONRoundTrip(t *testing.T) {
	orig := NewChangeMessage(OpUpdate, 12, core.Transaction{
		ID:        "t2",
		Kind:      core.Income,
		Amount:    core.Money{Cents: 250000},
		StartDate: core.NewDate(2025, 1, 15),
		Frequency: core.Biweekly,
		Category:  "Salary",
	})

	data, err := orig.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := ChangeMessageFromJSON(data)
	if err != nil {
		t.Fatalf("ChangeMessageFromJSON: %v", err)
	}
	if got.Op != orig.Op || got.TransactionID != orig.TransactionID ||
		got.Version != orig.Version || got.Kind != orig.Kind ||
		got.AmountCents != orig.AmountCents || got.StartDate != orig.StartDate ||
		got.Frequency != orig.Frequency || got.Category != orig.Category {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, orig)
	}
}

func TestChangeMessageFromJSON_Invalid(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
