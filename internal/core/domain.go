package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Once     Frequency = "once"
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// MaxDescriptionLen is the cap applied to descriptions at the import boundary.
const MaxDescriptionLen = 500

// TruncateOnRuneBoundary caps s at max bytes, backing up so a multi-byte
// rune is never split.
func TruncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

type (
	Kind      string
	Frequency string

	// Date is a calendar date normalized to midnight UTC. The zero value
	// means "unset".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a recurring or one-off income/expense entry. StartDate
	// anchors the recurrence; occurrences never precede it.
	Transaction struct {
		ID          string
		Kind        Kind
		Amount      Money
		Description string
		StartDate   Date
		Frequency   Frequency
		Category    string
	}

	// Dataset is the full persisted state: the unit of load, save and
	// import/export.
	Dataset struct {
		Transactions    []Transaction
		StartingBalance Money
		BalanceDate     Date // optional effective date for the starting balance
		Categories      Registry
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

// NormalizeKind maps stored kind labels to the canonical enum. The legacy
// "paycheck" label (and bare "income") both become Income.
func NormalizeKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "paycheck":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", ErrInvalidKind
	}
}

// IsIncome reports whether the kind contributes positively to balance.
func (k Kind) IsIncome() bool {
	return k == Income
}

// Valid reports whether the frequency is one the engine understands.
func (f Frequency) Valid() bool {
	switch f {
	case Once, Daily, Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// NormalizeFrequency returns the frequency if valid, falling back to Once.
func NormalizeFrequency(s string) Frequency {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if f.Valid() {
		return f
	}
	return Once
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Negated returns the amount with its sign flipped.
func (m Money) Negated() Money {
	return Money{Cents: -m.Cents}
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Delta is the signed contribution of the transaction to a daily balance:
// positive for income, negative for expense.
func (t Transaction) Delta() Money {
	if t.Kind.IsIncome() {
		return t.Amount
	}
	return t.Amount.Negated()
}

func (t Transaction) Validate() error {
	if t.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if _, err := NormalizeKind(string(t.Kind)); err != nil {
		return err
	}
	if !t.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > MaxDescriptionLen {
		return errors.New("description too long")
	}
	return nil
}

// SortTransactions orders transactions by start date ascending, preserving
// insertion order among equal dates. Occurrence ordering depends on this.
func SortTransactions(ts []Transaction) {
	// insertion sort keeps the tie-break stable without an index column
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].StartDate.Before(ts[j-1].StartDate.Time); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

// EmptyDataset returns a dataset with no transactions, a zero balance and
// the default category registry.
func EmptyDataset() Dataset {
	return Dataset{Categories: DefaultRegistry()}
}

// Normalize sorts transactions and repairs the category registry in place.
func (d *Dataset) Normalize() {
	SortTransactions(d.Transactions)
	d.Categories = d.Categories.Normalized()
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	out := d
	out.Transactions = append([]Transaction(nil), d.Transactions...)
	out.Categories = d.Categories.Clone()
	return out
}
