package engine

import (
	"sort"

	"budgetcal/internal/core"
)

// MonthOccurrences enumerates every transaction occurrence in the month,
// sorted by occurrence date with the transaction's dataset position as a
// stable tie-break.
func (e *Engine) MonthOccurrences(year, month int) []core.Occurrence {
	e.mu.Lock()
	defer e.mu.Unlock()

	var occurrences []core.Occurrence
	days := core.DaysInMonth(year, month)
	for day := 1; day <= days; day++ {
		date := core.NewDate(year, month, day)
		for _, idx := range e.transactionsOnLocked(date) {
			occurrences = append(occurrences, core.Occurrence{
				Index:       idx,
				Transaction: e.data.Transactions[idx],
				Date:        date,
			})
		}
	}
	sort.SliceStable(occurrences, func(i, j int) bool {
		if !occurrences[i].Date.Equal(occurrences[j].Date.Time) {
			return occurrences[i].Date.BeforeDate(occurrences[j].Date)
		}
		return occurrences[i].Index < occurrences[j].Index
	})
	return occurrences
}

// MonthExpenseBreakdown aggregates the month's expense occurrences by
// category, sorted by total descending. Income is excluded entirely.
func (e *Engine) MonthExpenseBreakdown(year, month int) []core.CategoryAmount {
	return breakdownFromOccurrences(e.MonthOccurrences(year, month))
}

// MonthTotals sums one month's income and expense occurrences.
func (e *Engine) MonthTotals(year, month int) core.MonthTotals {
	totals := core.MonthTotals{Year: year, Month: month}
	for _, occ := range e.MonthOccurrences(year, month) {
		if occ.Transaction.Kind.IsIncome() {
			totals.Income = totals.Income.Add(occ.Transaction.Amount)
		} else {
			totals.Expenses = totals.Expenses.Add(occ.Transaction.Amount)
		}
	}
	totals.Net = totals.Income.Add(totals.Expenses.Negated())
	return totals
}

// RangeDailySummaries computes income, expense and running balance for each
// day in [start, end] inclusive. An inverted or invalid range yields nil.
// Queries run in increasing date order so each day after the first extends
// the balance cache by one step.
func (e *Engine) RangeDailySummaries(start, end core.Date) []core.DaySummary {
	if start.IsZero() || end.IsZero() || end.BeforeDate(start) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var summaries []core.DaySummary
	for cursor := start; !cursor.AfterDate(end); cursor = cursor.AddDays(1) {
		summary := core.DaySummary{Date: cursor}
		for _, idx := range e.transactionsOnLocked(cursor) {
			t := e.data.Transactions[idx]
			if t.Kind.IsIncome() {
				summary.Income = summary.Income.Add(t.Amount)
			} else {
				summary.Expenses = summary.Expenses.Add(t.Amount)
			}
		}
		summary.Balance = core.Money{Cents: e.balanceOnLocked(cursor)}
		summaries = append(summaries, summary)
	}
	return summaries
}

// RangeExpenseBreakdown aggregates expense occurrences by category over an
// inclusive date range, sorted by total descending.
func (e *Engine) RangeExpenseBreakdown(start, end core.Date) []core.CategoryAmount {
	if start.IsZero() || end.IsZero() || end.BeforeDate(start) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	totals := map[string]int64{}
	var order []string
	for cursor := start; !cursor.AfterDate(end); cursor = cursor.AddDays(1) {
		for _, idx := range e.transactionsOnLocked(cursor) {
			t := e.data.Transactions[idx]
			if t.Kind.IsIncome() {
				continue
			}
			label := core.NormalizeLabel(t.Category)
			if label == "" {
				label = core.DefaultCategoryLabel
			}
			if _, ok := totals[label]; !ok {
				order = append(order, label)
			}
			totals[label] += t.Amount.Cents
		}
	}
	return sortedBreakdown(totals, order)
}

// ProjectedMonthEndBalances returns the balance at each of the next count
// month ends, starting with the month containing from.
func (e *Engine) ProjectedMonthEndBalances(from core.Date, count int) []core.ProjectedBalance {
	if from.IsZero() || count <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]core.ProjectedBalance, 0, count)
	for offset := 0; offset < count; offset++ {
		periodEnd := core.MonthEnd(from.Year(), int(from.Month()), offset)
		results = append(results, core.ProjectedBalance{
			Date:    periodEnd,
			Balance: core.Money{Cents: e.balanceOnLocked(periodEnd)},
		})
	}
	return results
}

// WeeklyProjections returns balances at the next count week ends, where a
// week ends on Saturday. The first entry covers the week containing from.
func (e *Engine) WeeklyProjections(from core.Date, count int) []core.ProjectedBalance {
	if from.IsZero() || count <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	daysUntilWeekEnd := (6 - int(from.Weekday()) + 7) % 7
	firstWeekEnd := from.AddDays(daysUntilWeekEnd)
	results := make([]core.ProjectedBalance, 0, count)
	for i := 0; i < count; i++ {
		weekEnd := firstWeekEnd.AddDays(i * 7)
		results = append(results, core.ProjectedBalance{
			Date:    weekEnd,
			Balance: core.Money{Cents: e.balanceOnLocked(weekEnd)},
		})
	}
	return results
}

func breakdownFromOccurrences(occurrences []core.Occurrence) []core.CategoryAmount {
	totals := map[string]int64{}
	var order []string
	for _, occ := range occurrences {
		if occ.Transaction.Kind.IsIncome() {
			continue
		}
		label := core.NormalizeLabel(occ.Transaction.Category)
		if label == "" {
			label = core.DefaultCategoryLabel
		}
		if _, ok := totals[label]; !ok {
			order = append(order, label)
		}
		totals[label] += occ.Transaction.Amount.Cents
	}
	return sortedBreakdown(totals, order)
}

// sortedBreakdown drops zero totals and orders descending by amount,
// falling back to first-seen order for equal totals.
func sortedBreakdown(totals map[string]int64, order []string) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(order))
	for _, label := range order {
		if totals[label] <= 0 {
			continue
		}
		out = append(out, core.CategoryAmount{Name: label, Amount: core.Money{Cents: totals[label]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}
