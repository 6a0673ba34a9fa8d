package core

// CategoryAmount represents an amount aggregated by category label.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Occurrence is one concrete firing of a transaction on a calendar date.
// Index is the transaction's position in the sorted dataset, used as a
// stable tie-break when several transactions fire on the same day.
type Occurrence struct {
	Index       int
	Transaction Transaction
	Date        Date
}

// DaySummary aggregates one day's activity and the running balance as of
// that day.
type DaySummary struct {
	Date     Date
	Income   Money
	Expenses Money
	Balance  Money
}

// MonthTotals is the income/expense/net rollup for one calendar month.
type MonthTotals struct {
	Year     int
	Month    int // 1-12
	Income   Money
	Expenses Money
	Net      Money
}

// ProjectedBalance is a forward-looking balance at a period end (month end
// or week end).
type ProjectedBalance struct {
	Date    Date
	Balance Money
}
