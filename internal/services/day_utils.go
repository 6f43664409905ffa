package services

import "time"

// TrackerDay keeps the calendar day shown on value's own wall clock and pins it to
// midnight UTC, so the same local day always compares equal whatever the zone.
func TrackerDay(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateAtLocation reads the calendar day of value in location and returns it as a UTC tracker day.
func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	return TrackerDay(value.In(location))
}

// DayRange returns the half-open [start, end) window covering the tracker day of value.
func DayRange(value time.Time) (time.Time, time.Time) {
	start := TrackerDay(value)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay accepts YYYY-MM-DD and returns the matching tracker day.
func ParseDay(raw string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return TrackerDay(parsed), nil
}
