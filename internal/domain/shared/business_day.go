package shared

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayRange is an inclusive range of business days
type DayRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether day lies within the range
func (r DayRange) Contains(day time.Time) bool {
	return !day.Before(r.From) && !day.After(r.To)
}

// Days lists every business day of the range in order
func (r DayRange) Days() []time.Time {
	var days []time.Time
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// SingleDay returns the range covering one business day
func SingleDay(day time.Time) DayRange {
	return DayRange{From: day, To: day}
}

// ParseBusinessDay parses a YYYY-MM-DD business day into UTC midnight
func ParseBusinessDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, ValidationError{Field: "business_day", Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return day, nil
}

// FormatBusinessDay renders a business day as YYYY-MM-DD
func FormatBusinessDay(day time.Time) string {
	return day.Format(time.DateOnly)
}

// NormalizeDay strips the clock part so any timestamp maps onto its business day
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseISOWeek parses YYYY-Www into the Monday..Sunday range of that ISO week
func ParseISOWeek(s string) (DayRange, error) {
	invalid := ValidationError{Field: "week", Reason: fmt.Sprintf("expected YYYY-Www, got %q", s)}

	parts := strings.Split(strings.TrimSpace(s), "-W")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return DayRange{}, invalid
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return DayRange{}, invalid
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return DayRange{}, invalid
	}

	// January 4th is always in ISO week 1
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)

	if y, w := monday.ISOWeek(); y != year || w != week {
		return DayRange{}, invalid
	}

	return DayRange{From: monday, To: monday.AddDate(0, 0, 6)}, nil
}

// ParseSeason parses a season id (the calendar year) into its day range
func ParseSeason(s string) (DayRange, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 2000 || year > 2999 {
		return DayRange{}, ValidationError{Field: "season_id", Reason: fmt.Sprintf("expected a four digit year, got %q", s)}
	}
	return DayRange{
		From: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}, nil
}
