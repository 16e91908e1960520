// utils/dates.go - Calendar day helpers
package utils

import (
	"sort"
	"time"
)

// DayLayout is the storage format of calendar days.
const DayLayout = "2006-01-02"

// DayKey formats t as a calendar day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string as midnight UTC.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, time.UTC)
}

// ShiftDay returns the calendar day n days after day.
func ShiftDay(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DayLayout), nil
}

// IsNextDay reports whether next is exactly one calendar day after prev.
func IsNextDay(prev, next string) bool {
	shifted, err := ShiftDay(prev, 1)
	return err == nil && shifted == next
}

// SortedUniqueDays returns the valid days in ascending order without duplicates.
func SortedUniqueDays(days []string) []string {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		if _, err := ParseDay(d); err != nil {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	// YYYY-MM-DD sorts lexically in date order
	sort.Strings(out)
	return out
}
