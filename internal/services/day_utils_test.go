package services

import (
	"testing"
	"time"
)

func TestTrackerDayKeepsWallClockDay(t *testing.T) {
	location := time.FixedZone("UTC+3", 3*60*60)
	raw := time.Date(2024, 6, 1, 1, 30, 0, 0, location)

	got := TrackerDay(raw)
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("TrackerDay() = %s, want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestDateAtLocationUsesLocalCalendarDay(t *testing.T) {
	location := time.FixedZone("UTC+3", 3*60*60)
	raw := time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC)

	got := DateAtLocation(raw, location)
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DateAtLocation() = %s, want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC result, got %s", got.Location())
	}
}

func TestDayRangeIsHalfOpenDay(t *testing.T) {
	raw := time.Date(2024, 6, 1, 19, 35, 10, 0, time.UTC)
	start, end := DayRange(raw)

	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Fatalf("expected midnight start, got %s", start.Format(time.RFC3339))
	}
	if !end.Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("expected next day end, got %s", end.Format(time.RFC3339))
	}
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2024-06-01")
	if err != nil {
		t.Fatalf("ParseDay() unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDay() = %s", got.Format(time.RFC3339))
	}

	if _, err := ParseDay("06/01/2024"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}
