package service

import (
	"fmt"
	"time"

	"github.com/univ-exams/exam-planner-api/pkg/config"
)

// Slot is one candidate (date, start time) pair. Index is the position
// of the start time within the configured daily slots, used for
// time-of-day scoring.
type Slot struct {
	Date  time.Time
	Start int
	Index int
}

// SlotCatalog enumerates candidate slots for a session's date range,
// skipping the weekly rest day and, optionally, weekends. It holds no
// mutable state; enumeration is restartable.
type SlotCatalog struct {
	times           []int
	restDay         time.Weekday
	excludeWeekends bool
}

// NewSlotCatalog parses the configured daily start times. Times must be
// listed chronologically: slot index pairs each time with its weight in
// SlotWeights, so reordering here would silently detach the two.
func NewSlotCatalog(cfg config.SchedulerConfig) (*SlotCatalog, error) {
	if len(cfg.SlotTimes) == 0 {
		return nil, fmt.Errorf("scheduler requires at least one daily slot time")
	}
	times := make([]int, 0, len(cfg.SlotTimes))
	for _, raw := range cfg.SlotTimes {
		minutes, err := parseClock(raw)
		if err != nil {
			return nil, err
		}
		if len(times) > 0 && minutes <= times[len(times)-1] {
			return nil, fmt.Errorf("slot times must be ascending: %s breaks the order", raw)
		}
		times = append(times, minutes)
	}
	return &SlotCatalog{
		times:           times,
		restDay:         cfg.RestDay,
		excludeWeekends: cfg.ExcludeWeekends,
	}, nil
}

// SlotsPerDay returns the number of configured daily start times.
func (c *SlotCatalog) SlotsPerDay() int {
	return len(c.times)
}

// ForEach walks every slot between start and end inclusive, date
// ascending then time ascending. Enumeration stops early when fn
// returns false.
func (c *SlotCatalog) ForEach(start, end time.Time, fn func(Slot) bool) {
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		if c.skipDay(cursor.Weekday()) {
			continue
		}
		for idx, minutes := range c.times {
			if !fn(Slot{Date: cursor, Start: minutes, Index: idx}) {
				return
			}
		}
	}
}

// Slots materialises the full candidate list, mainly for tests and the
// single-exam preview endpoint.
func (c *SlotCatalog) Slots(start, end time.Time) []Slot {
	var slots []Slot
	c.ForEach(start, end, func(s Slot) bool {
		slots = append(slots, s)
		return true
	})
	return slots
}

func (c *SlotCatalog) skipDay(day time.Weekday) bool {
	if day == c.restDay {
		return true
	}
	if c.excludeWeekends && (day == time.Saturday || day == time.Sunday) {
		return true
	}
	return false
}
