package core

import (
	"sort"
	"strings"
)

// DefaultCategoryLabel is the sentinel category applied to transactions
// without an explicit one. It is always present and always listed first.
const DefaultCategoryLabel = "Uncategorized"

// MaxCategoryLen caps category labels at the normalization boundary.
const MaxCategoryLen = 64

var defaultCategories = map[Kind][]string{
	Expense: {DefaultCategoryLabel, "Housing", "Utilities", "Groceries", "Transportation", "Entertainment"},
	Income:  {DefaultCategoryLabel, "Salary", "Bonus", "Other"},
}

// Registry holds the category label sets for each transaction kind. Labels
// are unique case-insensitively and kept alphabetically sorted with the
// sentinel label first.
type Registry struct {
	Expense []string
	Income  []string
}

// NormalizeLabel trims a label and caps its length. Empty input stays empty.
func NormalizeLabel(label string) string {
	return TruncateOnRuneBoundary(strings.TrimSpace(label), MaxCategoryLen)
}

// DefaultRegistry returns the built-in category sets.
func DefaultRegistry() Registry {
	return Registry{
		Expense: append([]string(nil), defaultCategories[Expense]...),
		Income:  append([]string(nil), defaultCategories[Income]...),
	}
}

// Normalized returns a repaired copy: labels trimmed and capped, duplicates
// removed case-insensitively, defaults merged in, sentinel first, the rest
// sorted case-insensitively.
func (r Registry) Normalized() Registry {
	return Registry{
		Expense: normalizeGroup(r.Expense, Expense),
		Income:  normalizeGroup(r.Income, Income),
	}
}

func normalizeGroup(labels []string, kind Kind) []string {
	seen := map[string]string{}
	order := []string{}
	add := func(label string) {
		normalized := NormalizeLabel(label)
		if normalized == "" {
			return
		}
		lower := strings.ToLower(normalized)
		if lower == strings.ToLower(DefaultCategoryLabel) {
			return
		}
		if _, ok := seen[lower]; ok {
			return
		}
		seen[lower] = normalized
		order = append(order, lower)
	}
	for _, l := range labels {
		add(l)
	}
	for _, l := range defaultCategories[kind] {
		add(l)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]string, 0, len(order)+1)
	out = append(out, DefaultCategoryLabel)
	for _, lower := range order {
		out = append(out, seen[lower])
	}
	return out
}

// Group returns the label set for the given kind.
func (r Registry) Group(kind Kind) []string {
	if kind.IsIncome() {
		return r.Income
	}
	return r.Expense
}

// Contains reports whether the group already holds the label,
// case-insensitively.
func (r Registry) Contains(kind Kind, label string) bool {
	lower := strings.ToLower(NormalizeLabel(label))
	for _, existing := range r.Group(kind) {
		if strings.ToLower(existing) == lower {
			return true
		}
	}
	return false
}

// Add inserts a label into the group and re-normalizes. Empty labels and
// duplicates are no-ops; the returned bool reports whether anything changed.
func (r *Registry) Add(kind Kind, label string) bool {
	normalized := NormalizeLabel(label)
	if normalized == "" || r.Contains(kind, normalized) {
		return false
	}
	if kind.IsIncome() {
		r.Income = append(r.Income, normalized)
	} else {
		r.Expense = append(r.Expense, normalized)
	}
	*r = r.Normalized()
	return true
}

// Remove deletes a label from the group. The sentinel label cannot be
// removed, and removing the last custom label restores the defaults so a
// group is never left with the sentinel alone.
func (r *Registry) Remove(kind Kind, label string) bool {
	lower := strings.ToLower(NormalizeLabel(label))
	if lower == "" || lower == strings.ToLower(DefaultCategoryLabel) {
		return false
	}
	group := r.Group(kind)
	kept := make([]string, 0, len(group))
	removed := false
	for _, existing := range group {
		if strings.ToLower(existing) == lower {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false
	}
	if len(kept) <= 1 {
		kept = append([]string(nil), defaultCategories[kind]...)
	}
	if kind.IsIncome() {
		r.Income = kept
	} else {
		r.Expense = kept
	}
	*r = r.Normalized()
	return true
}

// Merge adds every label from other into r, keeping normalization.
func (r *Registry) Merge(other Registry) {
	r.Expense = append(r.Expense, other.Expense...)
	r.Income = append(r.Income, other.Income...)
	*r = r.Normalized()
}

// Clone returns a deep copy.
func (r Registry) Clone() Registry {
	return Registry{
		Expense: append([]string(nil), r.Expense...),
		Income:  append([]string(nil), r.Income...),
	}
}
