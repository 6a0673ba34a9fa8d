package engine

import (
	"errors"
	"sync"

	"budgetcal/internal/core"
)

// Engine owns the in-memory dataset and the derived caches. All queries are
// read-only from the caller's perspective; mutations bump a version counter
// that invalidates every cached value before the next read.
type Engine struct {
	mu sync.Mutex

	data    core.Dataset
	version uint64

	cache projectionCache
}

// projectionCache memoizes per-date results. transactionsByDate stores
// indexes into the sorted transaction slice so occurrence ordering can use
// the original position as a tie-break. balanceByDate holds running
// balances in cents, filled incrementally up to computedUntil.
type projectionCache struct {
	version            uint64
	transactionsByDate map[string][]int
	balanceByDate      map[string]int64
	computedUntil      core.Date
}

// New returns an engine holding an empty dataset with default categories.
func New() *Engine {
	e := &Engine{data: core.EmptyDataset()}
	e.resetCacheLocked()
	return e
}

// Load replaces the whole dataset, normalizing it first.
func (e *Engine) Load(d core.Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d.Normalize()
	e.data = d
	e.invalidateLocked()
}

// Dataset returns a deep copy of the current state.
func (e *Engine) Dataset() core.Dataset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// Version returns the current mutation counter. It changes on every
// mutation, so it doubles as a cache key for derived layers.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Transactions returns a copy of the sorted transaction list.
func (e *Engine) Transactions() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Transaction(nil), e.data.Transactions...)
}

// Categories returns a copy of the category registry.
func (e *Engine) Categories() core.Registry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Categories.Clone()
}

// StartingBalance returns the configured balance and its effective date.
func (e *Engine) StartingBalance() (core.Money, core.Date) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.StartingBalance, e.data.BalanceDate
}

// Add inserts a transaction, keeping the list sorted by start date.
func (e *Engine) Add(t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data.Transactions = append(e.data.Transactions, t)
	core.SortTransactions(e.data.Transactions)
	e.data.Categories.Add(t.Kind, t.Category)
	e.invalidateLocked()
	return nil
}

// Update replaces the transaction with the given ID.
func (e *Engine) Update(id string, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.indexOfLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	t.ID = id
	e.data.Transactions[idx] = t
	core.SortTransactions(e.data.Transactions)
	e.data.Categories.Add(t.Kind, t.Category)
	e.invalidateLocked()
	return nil
}

// Delete removes the transaction with the given ID.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.indexOfLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	e.data.Transactions = append(e.data.Transactions[:idx], e.data.Transactions[idx+1:]...)
	e.invalidateLocked()
	return nil
}

// SetStartingBalance sets the starting balance and its optional effective
// date (zero date clears it).
func (e *Engine) SetStartingBalance(amount core.Money, effective core.Date) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data.StartingBalance = amount
	e.data.BalanceDate = effective
	e.invalidateLocked()
}

// AddCategory adds a label to the registry group for the kind.
func (e *Engine) AddCategory(kind core.Kind, label string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := e.data.Categories.Add(kind, label)
	if changed {
		e.version++
	}
	return changed
}

// RemoveCategory removes a label; transactions using it fall back to the
// default label.
func (e *Engine) RemoveCategory(kind core.Kind, label string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := e.data.Categories.Remove(kind, label)
	if !changed {
		return false
	}
	for i := range e.data.Transactions {
		t := &e.data.Transactions[i]
		if t.Kind == kind && core.NormalizeLabel(t.Category) == core.NormalizeLabel(label) {
			t.Category = core.DefaultCategoryLabel
		}
	}
	e.invalidateLocked()
	return true
}

// Reset restores the empty dataset with default categories.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = core.EmptyDataset()
	e.invalidateLocked()
}

// TransactionsOn returns every transaction occurring on the date. Invalid
// dates and dates before the starting-balance effective date yield nil.
func (e *Engine) TransactionsOn(date core.Date) []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	indexes := e.transactionsOnLocked(date)
	if len(indexes) == 0 {
		return nil
	}
	out := make([]core.Transaction, len(indexes))
	for i, idx := range indexes {
		out[i] = e.data.Transactions[idx]
	}
	return out
}

// BalanceOn computes the running account balance as of the date. Invalid
// dates and dates before the effective start return the raw starting
// balance; the computation never fails.
func (e *Engine) BalanceOn(date core.Date) core.Money {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.Money{Cents: e.balanceOnLocked(date)}
}

// ErrNotFound is returned when a transaction ID does not exist.
var ErrNotFound = errors.New("transaction not found")

func (e *Engine) indexOfLocked(id string) int {
	for i, t := range e.data.Transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) invalidateLocked() {
	e.version++
	e.resetCacheLocked()
}

func (e *Engine) resetCacheLocked() {
	e.cache = projectionCache{
		version:            e.version,
		transactionsByDate: make(map[string][]int),
		balanceByDate:      make(map[string]int64),
	}
}

// ensureCacheLocked clears the cache when its version no longer matches the
// state. Stale reads are a correctness bug, not a tradeoff.
func (e *Engine) ensureCacheLocked() {
	if e.cache.version != e.version {
		e.resetCacheLocked()
	}
}

func (e *Engine) transactionsOnLocked(date core.Date) []int {
	if date.IsZero() {
		return nil
	}
	// Nothing is visible before the starting-balance effective date, even
	// transactions whose own start date is earlier.
	if !e.data.BalanceDate.IsZero() && date.BeforeDate(e.data.BalanceDate) {
		return nil
	}
	e.ensureCacheLocked()
	key := date.Key()
	if cached, ok := e.cache.transactionsByDate[key]; ok {
		return cached
	}
	var indexes []int
	for i, t := range e.data.Transactions {
		if OccursOn(t, date) {
			indexes = append(indexes, i)
		}
	}
	e.cache.transactionsByDate[key] = indexes
	return indexes
}

func (e *Engine) balanceOnLocked(date core.Date) int64 {
	starting := e.data.StartingBalance.Cents
	if date.IsZero() {
		return starting
	}
	if !e.data.BalanceDate.IsZero() && date.BeforeDate(e.data.BalanceDate) {
		return starting
	}
	if len(e.data.Transactions) == 0 {
		return starting
	}

	e.ensureCacheLocked()
	key := date.Key()
	if cached, ok := e.cache.balanceByDate[key]; ok {
		return cached
	}

	// Effective start: the earlier of the balance date and the earliest
	// transaction date when both exist, else whichever is set.
	effectiveStart := core.MinDate(e.data.BalanceDate, e.data.Transactions[0].StartDate)
	if effectiveStart.IsZero() || date.BeforeDate(effectiveStart) {
		e.cache.balanceByDate[key] = starting
		return starting
	}

	// Re-anchor the high-water mark when the effective start moved earlier
	// than the current baseline (e.g. after importing older transactions).
	if e.cache.computedUntil.IsZero() || e.cache.computedUntil.BeforeDate(effectiveStart) {
		baseline := effectiveStart.AddDays(-1)
		e.cache.computedUntil = baseline
		e.cache.balanceByDate[baseline.Key()] = starting
	}

	running, ok := e.cache.balanceByDate[e.cache.computedUntil.Key()]
	if !ok {
		running = starting
		e.cache.balanceByDate[e.cache.computedUntil.Key()] = running
	}

	// Walk forward one day at a time, accumulating each day's deltas and
	// advancing the mark, until the requested date is covered.
	for e.cache.computedUntil.BeforeDate(date) {
		next := e.cache.computedUntil.AddDays(1)
		for _, idx := range e.transactionsOnLocked(next) {
			running += e.data.Transactions[idx].Delta().Cents
		}
		e.cache.balanceByDate[next.Key()] = running
		e.cache.computedUntil = next
	}

	if cached, ok := e.cache.balanceByDate[key]; ok {
		return cached
	}
	return starting
}
