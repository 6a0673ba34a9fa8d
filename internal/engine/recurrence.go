// Package engine implements the balance projection engine: recurrence
// evaluation, the versioned date-keyed cache, and the derived aggregate
// queries built on top of both.
//
// This file implements the Strategy Pattern for recurrence evaluation. Each
// frequency has its own checker that encapsulates the rule for deciding
// whether a transaction fires on a given date.
package engine

import (
	"fmt"

	"budgetcal/internal/core"
)

// OccurrenceChecker is the strategy interface for recurrence evaluation.
// Implementations may assume target is not before start; OccursOn handles
// that guard centrally.
type OccurrenceChecker interface {
	// Occurs reports whether a transaction anchored at start fires on target.
	Occurs(start, target core.Date) bool
}

// OnceChecker fires only on the start date itself.
type OnceChecker struct{}

func (OnceChecker) Occurs(start, target core.Date) bool {
	return target.DaysSince(start) == 0
}

// DailyChecker fires every day from the start date on.
type DailyChecker struct{}

func (DailyChecker) Occurs(start, target core.Date) bool {
	return true
}

// WeeklyChecker fires every 7th day from the start date.
type WeeklyChecker struct{}

func (WeeklyChecker) Occurs(start, target core.Date) bool {
	return target.DaysSince(start)%7 == 0
}

// BiweeklyChecker fires every 14th day from the start date.
type BiweeklyChecker struct{}

func (BiweeklyChecker) Occurs(start, target core.Date) bool {
	return target.DaysSince(start)%14 == 0
}

// MonthlyChecker fires on the start date's day of month. When that day does
// not exist in the target month (start day 31, target February), the
// occurrence rolls to the last calendar day of the target month instead.
type MonthlyChecker struct{}

func (MonthlyChecker) Occurs(start, target core.Date) bool {
	if target.Day() == start.Day() {
		return true
	}
	last := core.DaysInMonth(target.Year(), int(target.Month()))
	if start.Day() > last {
		return target.Day() == last
	}
	return false
}

// occurrenceStrategies maps frequencies to their checkers.
var occurrenceStrategies = map[core.Frequency]OccurrenceChecker{
	core.Once:     OnceChecker{},
	core.Daily:    DailyChecker{},
	core.Weekly:   WeeklyChecker{},
	core.Biweekly: BiweeklyChecker{},
	core.Monthly:  MonthlyChecker{},
}

// GetOccurrenceChecker returns the checker for a frequency, or an error for
// unsupported ones.
func GetOccurrenceChecker(frequency core.Frequency) (OccurrenceChecker, error) {
	checker, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}

// RegisterOccurrenceChecker registers a checker for a new frequency,
// allowing extension without modifying the registry.
func RegisterOccurrenceChecker(frequency core.Frequency, checker OccurrenceChecker) {
	occurrenceStrategies[frequency] = checker
}

// OccursOn reports whether the transaction fires on the target date.
// Invalid dates, dates before the start date and unknown frequencies all
// evaluate to false rather than erroring; recurrence evaluation never fails.
func OccursOn(t core.Transaction, target core.Date) bool {
	if t.StartDate.IsZero() || target.IsZero() {
		return false
	}
	if target.DaysSince(t.StartDate) < 0 {
		return false
	}
	checker, ok := occurrenceStrategies[t.Frequency]
	if !ok {
		return false
	}
	return checker.Occurs(t.StartDate, target)
}
