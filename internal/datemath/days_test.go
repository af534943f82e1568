package datemath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{"same day", "2024-01-01", "2024-01-01", 0},
		{"next day", "2024-01-01", "2024-01-02", 1},
		{"leap february", "2024-02-01", "2024-03-01", 29},
		{"quarter", "2024-01-01", "2024-04-01", 91},
		{"tour", "2024-01-01", "2024-10-01", 274},
		{"backwards", "2024-01-10", "2024-01-01", -9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(MustDate(tt.from), MustDate(tt.to)))
		})
	}
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(from, to))
	assert.Equal(t, 0, DaysBetween(to, to.Add(20*time.Hour)))
}

func TestDaysBetween_UsesCivilDateOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 2024-01-02 05:00 local is still 2024-01-01 in UTC.
	local := time.Date(2024, 1, 2, 5, 0, 0, 0, loc)

	assert.Equal(t, 1, DaysBetween(MustDate("2024-01-01"), local))
}

func TestMidpoint(t *testing.T) {
	a := MustDate("2024-01-01")
	b := MustDate("2024-01-03")

	assert.Equal(t, MustDate("2024-01-02"), Midpoint(a, b))
	assert.Equal(t, a.Add(12*time.Hour), Midpoint(a, MustDate("2024-01-02")))
}

func TestCeilAndFloorMonths(t *testing.T) {
	assert.Equal(t, 0, CeilMonths(0))
	assert.Equal(t, 0, CeilMonths(-5))
	assert.Equal(t, 1, CeilMonths(1))
	assert.Equal(t, 1, CeilMonths(30))
	assert.Equal(t, 2, CeilMonths(31))
	assert.Equal(t, 10, CeilMonths(273))
	assert.Equal(t, 10, CeilMonths(274))

	assert.Equal(t, 0, FloorMonths(29))
	assert.Equal(t, 3, FloorMonths(91))
	assert.Equal(t, 0, FloorMonths(-1))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, MustDate("2024-03-01"), MonthStart(MustDate("2024-03-31")))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-10-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("10/01/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse date")

	m, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, MustDate("2024-02-01"), m)
}

func TestClockFunc(t *testing.T) {
	fixed := MustDate("2024-04-01")
	var c Clock = ClockFunc(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}
