package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKeyUsesLocation(t *testing.T) {
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", DayKey(ts, nil))
	assert.Equal(t, "2024-01-02", DayKey(ts, tokyo))
}

func TestIsNextDay(t *testing.T) {
	tests := []struct {
		prev, next string
		want       bool
	}{
		{"2024-01-01", "2024-01-02", true},
		{"2024-01-31", "2024-02-01", true},
		{"2024-02-28", "2024-02-29", true},
		{"2023-12-31", "2024-01-01", true},
		{"2024-01-01", "2024-01-03", false},
		{"2024-01-02", "2024-01-01", false},
		{"", "2024-01-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.prev+"->"+tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNextDay(tt.prev, tt.next))
		})
	}
}

func TestSortedUniqueDays(t *testing.T) {
	got := SortedUniqueDays([]string{"2024-01-03", "bogus", "2024-01-01", "2024-01-03"})
	assert.Equal(t, []string{"2024-01-01", "2024-01-03"}, got)
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 1, ClampInt(-5, 1, 100))
	assert.Equal(t, 100, ClampInt(500, 1, 100))
	assert.Equal(t, 42, ClampInt(42, 1, 100))
}
