package calendar

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-06-16")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.June || d.Day() != 16 {
		t.Errorf("parsed wrong date: %v", d)
	}
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Errorf("expected midnight UTC, got %v", d)
	}

	for _, bad := range []string{"", "16-06-2025", "2025/06/16", "2025-13-01", "not-a-date"} {
		if _, err := ParseDay(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestFormatDayRoundTrip(t *testing.T) {
	d, _ := ParseDay("2024-02-29")
	if got := FormatDay(d); got != "2024-02-29" {
		t.Errorf("expected 2024-02-29, got %s", got)
	}
}

func TestDayOfWeek(t *testing.T) {
	// 2025-06-15 is a Sunday, 2025-06-16 a Monday.
	sun, _ := ParseDay("2025-06-15")
	mon, _ := ParseDay("2025-06-16")
	sat, _ := ParseDay("2025-06-21")
	if DayOfWeek(sun) != 0 {
		t.Errorf("expected Sunday=0, got %d", DayOfWeek(sun))
	}
	if DayOfWeek(mon) != 1 {
		t.Errorf("expected Monday=1, got %d", DayOfWeek(mon))
	}
	if DayOfWeek(sat) != 6 {
		t.Errorf("expected Saturday=6, got %d", DayOfWeek(sat))
	}
}

func TestOccurrenceOfMonth(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2025-06-01", 1},
		{"2025-06-07", 1},
		{"2025-06-08", 2},
		{"2025-06-14", 2},
		{"2025-06-15", 3},
		{"2025-06-16", 3}, // 3rd Monday of June 2025
		{"2025-06-28", 4},
		{"2025-06-29", 5},
		{"2025-07-31", 5},
	}
	for _, tt := range tests {
		d, _ := ParseDay(tt.date)
		if got := OccurrenceOfMonth(d); got != tt.want {
			t.Errorf("OccurrenceOfMonth(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	a, _ := ParseDay("2025-06-16")
	b, _ := ParseDay("2025-06-18")
	if got := DaysBetween(a, b); got != 3 {
		t.Errorf("expected 3 days inclusive, got %d", got)
	}
	if got := DaysBetween(a, a); got != 1 {
		t.Errorf("expected single day = 1, got %d", got)
	}
	if got := DaysBetween(b, a); got != 0 {
		t.Errorf("expected inverted range = 0, got %d", got)
	}
}

func TestEnumerateDays(t *testing.T) {
	a, _ := ParseDay("2025-02-27")
	b, _ := ParseDay("2025-03-02")
	days := EnumerateDays(a, b)
	want := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i, d := range days {
		if FormatDay(d) != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], FormatDay(d))
		}
	}
	if EnumerateDays(b, a) != nil {
		t.Error("expected nil for inverted range")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"900", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(540); got != "09:00" {
		t.Errorf("expected 09:00, got %s", got)
	}
	if got := FormatClock(1439); got != "23:59" {
		t.Errorf("expected 23:59, got %s", got)
	}
}
