// Package storage provides the persistence boundary: the JSON snapshot
// codec shared by export/import and the file store, plus the SQLite store.
//
// All field-level sanitization lives here. The core never sees an
// unparseable date, a non-finite amount or an unknown frequency; bad
// records are dropped or defaulted at this boundary and never propagate as
// hard failures.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetcal/internal/core"
)

// Snapshot is the wire format for export, import and the file store.
type Snapshot struct {
	StartingBalance      float64            `json:"startingBalance"`
	BalanceEffectiveDate *string            `json:"balanceEffectiveDate"`
	GeneratedAt          string             `json:"generatedAt"`
	Transactions         []SnapshotTxn      `json:"transactions"`
	Categories           SnapshotCategories `json:"categories"`
}

// SnapshotTxn is one serialized transaction record.
type SnapshotTxn struct {
	ID          string  `json:"id,omitempty"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Frequency   string  `json:"frequency"`
	Category    string  `json:"category"`
}

// SnapshotCategories mirrors the category registry on the wire.
type SnapshotCategories struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}

// ImportStats reports how a decode went: dropped records are counted, not
// surfaced as errors.
type ImportStats struct {
	Imported int
	Skipped  int
}

// ErrNoTransactions is returned when a structurally valid payload contains
// no usable transaction records.
var ErrNoTransactions = errors.New("no valid transactions in payload")

// EncodeSnapshot serializes a dataset into the exchange format:
// date-sorted transactions, two-decimal amounts, RFC3339 dates.
func EncodeSnapshot(d core.Dataset, generatedAt time.Time) ([]byte, error) {
	d.Normalize()
	snap := Snapshot{
		StartingBalance: d.StartingBalance.Float64(),
		GeneratedAt:     generatedAt.UTC().Format(time.RFC3339),
		Transactions:    make([]SnapshotTxn, 0, len(d.Transactions)),
		Categories: SnapshotCategories{
			Expense: d.Categories.Expense,
			Income:  d.Categories.Income,
		},
	}
	if !d.BalanceDate.IsZero() {
		iso := d.BalanceDate.UTC().Format(time.RFC3339)
		snap.BalanceEffectiveDate = &iso
	}
	for _, t := range d.Transactions {
		snap.Transactions = append(snap.Transactions, SnapshotTxn{
			ID:          t.ID,
			Type:        string(t.Kind),
			Amount:      t.Amount.Float64(),
			Description: t.Description,
			Date:        t.StartDate.UTC().Format(time.RFC3339),
			Frequency:   string(t.Frequency),
			Category:    t.Category,
		})
	}
	return json.MarshalIndent(snap, "", "  ")
}

// DecodeSnapshot parses and sanitizes an import payload. A payload missing
// the transactions array rejects as a whole, as does one yielding no usable
// records; individual bad records are dropped and counted in the stats.
// Duplicates collapse on a stable key: the explicit ID when present, else
// kind:amount:date:description:frequency:category.
func DecodeSnapshot(data []byte) (core.Dataset, ImportStats, error) {
	ds, stats, err := decode(data)
	if err != nil {
		return core.Dataset{}, stats, err
	}
	if stats.Imported == 0 {
		return core.Dataset{}, stats, ErrNoTransactions
	}
	return ds, stats, nil
}

// decode is the lenient form used for loading saved state, where an empty
// transaction list is a legitimate snapshot.
func decode(data []byte) (core.Dataset, ImportStats, error) {
	var raw struct {
		StartingBalance      *float64            `json:"startingBalance"`
		BalanceEffectiveDate *string             `json:"balanceEffectiveDate"`
		Transactions         *[]json.RawMessage  `json:"transactions"`
		Categories           *SnapshotCategories `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.Dataset{}, ImportStats{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if raw.Transactions == nil {
		return core.Dataset{}, ImportStats{}, errors.New("missing transactions array")
	}

	ds := core.EmptyDataset()
	stats := ImportStats{}
	seen := map[string]struct{}{}

	for _, msg := range *raw.Transactions {
		var rec SnapshotTxn
		if err := json.Unmarshal(msg, &rec); err != nil {
			stats.Skipped++
			continue
		}
		t, ok := sanitizeRecord(rec)
		if !ok {
			stats.Skipped++
			continue
		}
		key := dedupeKey(rec.ID, t)
		if _, dup := seen[key]; dup {
			stats.Skipped++
			continue
		}
		seen[key] = struct{}{}
		ds.Transactions = append(ds.Transactions, t)
		stats.Imported++
	}

	if raw.StartingBalance != nil {
		// Starting balance, unlike transaction amounts, may be negative.
		ds.StartingBalance = signedMoney(*raw.StartingBalance)
	}
	if raw.BalanceEffectiveDate != nil {
		if d, err := core.ParseDate(*raw.BalanceEffectiveDate); err == nil {
			ds.BalanceDate = d
		}
	}
	if raw.Categories != nil {
		ds.Categories.Merge(core.Registry{
			Expense: raw.Categories.Expense,
			Income:  raw.Categories.Income,
		})
	}

	ds.Normalize()
	return ds, stats, nil
}

// sanitizeRecord applies the per-record boundary rules. A record without a
// resolvable kind or date is unusable; everything else is defaulted.
func sanitizeRecord(rec SnapshotTxn) (core.Transaction, bool) {
	kind, err := core.NormalizeKind(rec.Type)
	if err != nil {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, false
	}
	t := core.Transaction{
		ID:          strings.TrimSpace(rec.ID),
		Kind:        kind,
		Amount:      core.FromFloat(rec.Amount),
		Description: SanitizeDescription(rec.Description),
		StartDate:   date,
		Frequency:   core.NormalizeFrequency(rec.Frequency),
		Category:    core.NormalizeLabel(rec.Category),
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return t, true
}

// SanitizeDescription strips markup-significant characters and control
// bytes, then caps the length.
func SanitizeDescription(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '<' || r == '>':
			return -1
		case r < 32 && r != '\t':
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	return core.TruncateOnRuneBoundary(s, core.MaxDescriptionLen)
}

func signedMoney(v float64) core.Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return core.Money{}
	}
	return core.Money{Cents: int64(math.Round(v * 100))}
}

// MergeDataset appends imported transactions onto current, skipping any
// that duplicate an existing one by ID or by content. The imported
// starting balance, effective date and categories replace or extend the
// current ones. Returns the merged dataset and the duplicate count.
func MergeDataset(current, imported core.Dataset) (core.Dataset, int) {
	merged := current.Clone()

	seen := make(map[string]struct{}, 2*len(merged.Transactions))
	for _, t := range merged.Transactions {
		seen[dedupeKey(t.ID, t)] = struct{}{}
		seen[dedupeKey("", t)] = struct{}{}
	}

	duplicates := 0
	for _, t := range imported.Transactions {
		idKey := dedupeKey(t.ID, t)
		contentKey := dedupeKey("", t)
		if _, ok := seen[idKey]; ok {
			duplicates++
			continue
		}
		if _, ok := seen[contentKey]; ok {
			duplicates++
			continue
		}
		seen[idKey] = struct{}{}
		seen[contentKey] = struct{}{}
		merged.Transactions = append(merged.Transactions, t)
	}

	merged.StartingBalance = imported.StartingBalance
	if !imported.BalanceDate.IsZero() {
		merged.BalanceDate = imported.BalanceDate
	}
	merged.Categories.Merge(imported.Categories)
	merged.Normalize()

	return merged, duplicates
}

func dedupeKey(explicitID string, t core.Transaction) string {
	if explicitID = strings.TrimSpace(explicitID); explicitID != "" {
		return "id:" + explicitID
	}
	// Quote the free-text fields so a separator inside a description
	// cannot shift content across field boundaries.
	return fmt.Sprintf("%s:%s:%s:%q:%s:%q",
		t.Kind, t.Amount, t.StartDate.Key(), t.Description, t.Frequency, t.Category)
}
