package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hours*60 + minutes, nil
}

// formatClock converts minutes since midnight back into "HH:MM".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// intervalsOverlap reports whether [s1,e1) and [s2,e2) intersect.
// Shared by the scheduler's feasibility filter and every conflict check
// so room and professor overlap semantics cannot diverge.
func intervalsOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// dateKey normalises a date for map keys, ignoring the time component.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// daysUntil counts whole days from a to b, negative when b precedes a.
func daysUntil(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
