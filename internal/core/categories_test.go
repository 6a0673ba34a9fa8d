package core

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	if r.Expense[0] != DefaultCategoryLabel {
		t.Errorf("expense group starts with %q, want %q", r.Expense[0], DefaultCategoryLabel)
	}
	if r.Income[0] != DefaultCategoryLabel {
		t.Errorf("income group starts with %q, want %q", r.Income[0], DefaultCategoryLabel)
	}
	if !r.Contains(Expense, "Groceries") {
		t.Error("default expense categories should include Groceries")
	}
	if !r.Contains(Income, "Salary") {
		t.Error("default income categories should include Salary")
	}
}

func TestRegistryAdd(t *testing.T) {
	r := DefaultRegistry()

	if !r.Add(Expense, "  Pets  ") {
		t.Fatal("adding a new label should report a change")
	}
	if !r.Contains(Expense, "Pets") {
		t.Error("label should be present after Add")
	}

	// Case-insensitive duplicate is a no-op.
	if r.Add(Expense, "pets") {
		t.Error("case-insensitive duplicate should not change the registry")
	}
	if r.Add(Expense, "") {
		t.Error("empty label should not change the registry")
	}
	if r.Add(Expense, "   ") {
		t.Error("whitespace label should not change the registry")
	}

	// Sentinel stays first, the rest sorted.
	group := r.Group(Expense)
	if group[0] != DefaultCategoryLabel {
		t.Errorf("group[0] = %q, want sentinel first", group[0])
	}
	for i := 2; i < len(group); i++ {
		if strings.ToLower(group[i]) < strings.ToLower(group[i-1]) {
			t.Errorf("group not sorted at %d: %q before %q", i, group[i-1], group[i])
		}
	}
}

func TestRegistryAddCapsLength(t *testing.T) {
	r := DefaultRegistry()
	long := strings.Repeat("x", MaxCategoryLen+20)

	if !r.Add(Expense, long) {
		t.Fatal("long label should still be added after truncation")
	}
	if !r.Contains(Expense, strings.Repeat("x", MaxCategoryLen)) {
		t.Error("label should be truncated to the cap")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := DefaultRegistry()

	if r.Remove(Expense, DefaultCategoryLabel) {
		t.Error("sentinel label must not be removable")
	}
	if r.Remove(Expense, "DoesNotExist") {
		t.Error("removing an unknown label should report no change")
	}

	if !r.Remove(Expense, "groceries") {
		t.Fatal("case-insensitive removal should succeed")
	}
	if r.Contains(Expense, "Groceries") {
		t.Error("label should be gone after Remove")
	}
}

func TestRegistryRemoveLastCustomRestoresDefaults(t *testing.T) {
	r := Registry{
		Expense: []string{DefaultCategoryLabel, "OnlyOne"},
		Income:  []string{DefaultCategoryLabel, "Salary"},
	}
	r = r.Normalized()

	if !r.Remove(Expense, "OnlyOne") {
		t.Fatal("Remove should succeed")
	}

	group := r.Group(Expense)
	if len(group) < 2 {
		t.Fatalf("group should be restored to defaults, got %v", group)
	}
	if !r.Contains(Expense, "Groceries") {
		t.Error("defaults should be restored when only the sentinel would remain")
	}
}

func TestRegistryNormalized(t *testing.T) {
	r := Registry{
		Expense: []string{"zeta", "  Alpha ", "alpha", "", DefaultCategoryLabel, "ALPHA"},
	}
	n := r.Normalized()

	group := n.Group(Expense)
	if group[0] != DefaultCategoryLabel {
		t.Errorf("group[0] = %q, want sentinel", group[0])
	}

	seen := map[string]bool{}
	for _, label := range group {
		lower := strings.ToLower(label)
		if seen[lower] {
			t.Errorf("duplicate label %q after normalization", label)
		}
		seen[lower] = true
	}

	// Defaults are merged in.
	if !n.Contains(Expense, "Housing") {
		t.Error("defaults should be merged during normalization")
	}
	// First-seen casing wins.
	if !contains(group, "Alpha") {
		t.Errorf("expected first-seen casing Alpha in %v", group)
	}
}

func TestRegistryMerge(t *testing.T) {
	a := DefaultRegistry()
	b := Registry{Expense: []string{"Travel"}, Income: []string{"Dividends"}}

	a.Merge(b)

	if !a.Contains(Expense, "Travel") {
		t.Error("merged expense label missing")
	}
	if !a.Contains(Income, "Dividends") {
		t.Error("merged income label missing")
	}
	if a.Group(Expense)[0] != DefaultCategoryLabel {
		t.Error("sentinel must stay first after merge")
	}
}

func contains(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trimmed", "  Pets  ", "Pets"},
		{"empty stays empty", "   ", ""},
		{"capped", strings.Repeat("x", MaxCategoryLen+5), strings.Repeat("x", MaxCategoryLen)},
		// 1 + 32*2 = 65 bytes; the cap falls inside the final rune, so it
		// must be dropped whole rather than split.
		{"cap lands mid-rune", "a" + strings.Repeat("é", 32), "a" + strings.Repeat("é", 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLabel(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeLabel = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("NormalizeLabel produced invalid UTF-8: %q", got)
			}
		})
	}
}
