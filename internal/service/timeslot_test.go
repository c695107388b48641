package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	minutes, err := parseClock("08:00")
	require.NoError(t, err)
	assert.Equal(t, 480, minutes)

	minutes, err = parseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, 990, minutes)

	for _, bad := range []string{"", "8am", "24:00", "12:60", "12", "12:3"} {
		_, err := parseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestFormatClockRoundTrips(t *testing.T) {
	for _, clock := range []string{"00:00", "08:00", "10:30", "23:59"} {
		minutes, err := parseClock(clock)
		require.NoError(t, err)
		assert.Equal(t, clock, formatClock(minutes))
	}
}

func TestIntervalsOverlap(t *testing.T) {
	assert.True(t, intervalsOverlap(480, 600, 540, 660), "partial overlap")
	assert.True(t, intervalsOverlap(480, 600, 500, 550), "containment")
	assert.False(t, intervalsOverlap(480, 600, 600, 720), "touching edges do not overlap")
	assert.False(t, intervalsOverlap(480, 600, 700, 800), "disjoint")
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 4, daysUntil(day(2026, time.January, 5), day(2026, time.January, 9)))
	assert.Equal(t, 0, daysUntil(day(2026, time.January, 5), day(2026, time.January, 5)))
	assert.Equal(t, -2, daysUntil(day(2026, time.January, 5), day(2026, time.January, 3)))
}
