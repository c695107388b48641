package service

import (
	"time"

	"github.com/univ-exams/exam-planner-api/pkg/config"
)

const roomFitCeiling = 10

// SlotScorer assigns a deterministic desirability score to a candidate
// (slot, room) pair. Higher wins; ties are broken by the enumeration
// order (date asc, time asc, room load order).
type SlotScorer struct {
	weights []int
}

// NewSlotScorer derives time-of-day weights from configuration. When
// fewer weights than slots are configured the tail extends by steps of
// two, clamped at zero, keeping earlier slots strictly preferred.
func NewSlotScorer(cfg config.SchedulerConfig, slotsPerDay int) *SlotScorer {
	weights := make([]int, slotsPerDay)
	for i := range weights {
		switch {
		case i < len(cfg.SlotWeights):
			weights[i] = cfg.SlotWeights[i]
		case i == 0:
			weights[i] = 10
		default:
			weights[i] = weights[i-1] - 2
			if weights[i] < 0 {
				weights[i] = 0
			}
		}
	}
	return &SlotScorer{weights: weights}
}

// Score computes timeOfDayWeight + roomFitWeight + earlyDateBonus.
//
// Room fit rewards tight-but-sufficient capacity: a perfect fit scores
// 10, every spare seat costs one point down to zero. The early-date
// bonus front-loads the session, leaving slack near the end for
// contingency. The formula follows the documented business intent and
// deliberately does not normalise by room type.
func (s *SlotScorer) Score(slot Slot, roomCapacity, expectedStudents int, sessionEnd time.Time) int {
	return s.timeOfDayWeight(slot.Index) +
		roomFitWeight(roomCapacity, expectedStudents) +
		earlyDateBonus(slot.Date, sessionEnd)
}

func (s *SlotScorer) timeOfDayWeight(index int) int {
	if index >= 0 && index < len(s.weights) {
		return s.weights[index]
	}
	return 0
}

func roomFitWeight(capacity, expectedStudents int) int {
	spare := capacity - expectedStudents
	if spare < 0 {
		spare = 0
	}
	if spare > roomFitCeiling {
		spare = roomFitCeiling
	}
	return roomFitCeiling - spare
}

func earlyDateBonus(date, sessionEnd time.Time) int {
	days := daysUntil(date, sessionEnd)
	if days < 0 {
		return 0
	}
	return days / 2
}
