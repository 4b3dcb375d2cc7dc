package dateutil

import (
	"testing"
	"time"
)

func TestWeekKeyOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"monday itself", time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), "2024-06-03"},
		{"midweek", time.Date(2024, 6, 5, 23, 59, 0, 0, time.UTC), "2024-06-03"},
		{"sunday maps to same week", time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), "2024-06-03"},
		{"next monday starts new week", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "2024-06-10"},
		{"year boundary", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), "2024-12-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekKeyOf(tt.date); got != tt.want {
				t.Errorf("WeekKeyOf(%v) = %q, want %q", tt.date, got, tt.want)
			}
		})
	}
}

func TestWeekDays(t *testing.T) {
	days, err := WeekDays("2024-06-03", time.UTC)
	if err != nil {
		t.Fatalf("WeekDays: %v", err)
	}

	want := []string{
		"2024-06-03", "2024-06-04", "2024-06-05", "2024-06-06",
		"2024-06-07", "2024-06-08", "2024-06-09",
	}

	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("day %d = %q, want %q", i, days[i], want[i])
		}
	}
}

func TestWeekDaysRejectsNonMonday(t *testing.T) {
	if _, err := WeekDays("2024-06-04", time.UTC); err == nil {
		t.Fatal("expected error for non-monday week key")
	}
}

func TestWeekElapsed(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"during the week", time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC), false},
		{"sunday evening is not elapsed", time.Date(2024, 6, 9, 23, 0, 0, 0, time.UTC), false},
		{"next monday midnight is elapsed", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), true},
		{"much later", time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekElapsed("2024-06-03", tt.now); got != tt.want {
				t.Errorf("WeekElapsed(2024-06-03, %v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestPrevWeekKey(t *testing.T) {
	now := time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC)
	if got := PrevWeekKey(now); got != "2024-06-03" {
		t.Errorf("PrevWeekKey = %q, want 2024-06-03", got)
	}
}

func TestWeekRange(t *testing.T) {
	got, err := WeekRange("2024-06-03", time.UTC)
	if err != nil {
		t.Fatalf("WeekRange: %v", err)
	}
	if got != "03/06 – 09/06" {
		t.Errorf("WeekRange = %q, want %q", got, "03/06 – 09/06")
	}
}

func TestDaysBetween(t *testing.T) {
	days, err := DaysBetween("2024-06-07", "2024-06-10", time.UTC)
	if err != nil {
		t.Fatalf("DaysBetween: %v", err)
	}
	if len(days) != 4 {
		t.Fatalf("got %d days, want 4", len(days))
	}
	if days[0] != "2024-06-07" || days[3] != "2024-06-10" {
		t.Errorf("unexpected bounds: %v", days)
	}

	empty, err := DaysBetween("2024-06-10", "2024-06-07", time.UTC)
	if err != nil {
		t.Fatalf("DaysBetween reversed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("reversed range must be empty, got %v", empty)
	}
}

func TestDisplayFormats(t *testing.T) {
	date, err := DisplayDate("2024-06-03", time.UTC)
	if err != nil {
		t.Fatalf("DisplayDate: %v", err)
	}
	if date != "03/06/2024" {
		t.Errorf("DisplayDate = %q, want 03/06/2024", date)
	}

	if got := TimeOfDay(time.Date(2024, 6, 3, 6, 45, 0, 0, time.UTC)); got != "06:45" {
		t.Errorf("TimeOfDay = %q, want 06:45", got)
	}
}
