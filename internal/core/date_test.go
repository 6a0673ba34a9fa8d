package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain date", "2025-03-15", "2025-03-15", false},
		{"rfc3339", "2025-03-15T14:30:00Z", "2025-03-15", false},
		{"rfc3339 with offset", "2025-03-15T23:30:00+02:00", "2025-03-15", false},
		{"empty", "", "", true},
		{"garbage", "not-a-date", "", true},
		{"wrong format", "15/03/2025", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if got.Key() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Key(), tt.want)
			}
			if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
				t.Errorf("ParseDate(%q) not normalized to midnight", tt.input)
			}
		})
	}
}

func TestDaysSince(t *testing.T) {
	start := NewDate(2025, 1, 1)

	tests := []struct {
		name string
		date Date
		want int
	}{
		{"same day", start, 0},
		{"next day", NewDate(2025, 1, 2), 1},
		{"week later", NewDate(2025, 1, 8), 7},
		{"previous day", NewDate(2024, 12, 31), -1},
		{"across leap february", NewDate(2024, 3, 1), -306},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.date.DaysSince(start); got != tt.want {
				t.Errorf("DaysSince = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2025, 1, 31},
		{2025, 2, 28},
		{2024, 2, 29},
		{2025, 4, 30},
		{2025, 12, 31},
	}

	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestMonthEnd(t *testing.T) {
	tests := []struct {
		year, month, offset int
		want                string
	}{
		{2025, 1, 0, "2025-01-31"},
		{2025, 1, 1, "2025-02-28"},
		{2025, 11, 2, "2026-01-31"},
		{2024, 1, 1, "2024-02-29"},
	}

	for _, tt := range tests {
		if got := MonthEnd(tt.year, tt.month, tt.offset).Key(); got != tt.want {
			t.Errorf("MonthEnd(%d, %d, %d) = %s, want %s", tt.year, tt.month, tt.offset, got, tt.want)
		}
	}
}

func TestMinDate(t *testing.T) {
	a := NewDate(2025, 1, 1)
	b := NewDate(2025, 2, 1)

	if got := MinDate(a, b); !got.Equal(a.Time) {
		t.Errorf("MinDate(a, b) = %s, want %s", got.Key(), a.Key())
	}
	if got := MinDate(b, a); !got.Equal(a.Time) {
		t.Errorf("MinDate(b, a) = %s, want %s", got.Key(), a.Key())
	}
	if got := MinDate(Date{}, b); !got.Equal(b.Time) {
		t.Errorf("MinDate(zero, b) = %s, want %s", got.Key(), b.Key())
	}
	if got := MinDate(a, Date{}); !got.Equal(a.Time) {
		t.Errorf("MinDate(a, zero) = %s, want %s", got.Key(), a.Key())
	}
	if got := MinDate(Date{}, Date{}); !got.IsZero() {
		t.Error("MinDate(zero, zero) should be zero")
	}
}

func TestMidnight(t *testing.T) {
	ts := time.Date(2025, 6, 15, 23, 59, 59, 999, time.UTC)
	got := Midnight(ts)
	if got.Key() != "2025-06-15" {
		t.Errorf("Midnight = %s, want 2025-06-15", got.Key())
	}
	if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
		t.Error("Midnight should zero the clock")
	}
}
