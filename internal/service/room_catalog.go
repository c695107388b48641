package service

import "github.com/univ-exams/exam-planner-api/internal/models"

// RoomCatalog filters the static room inventory for an exam's capacity
// and equipment requirements. Rooms keep their load order (exam
// capacity ascending) so the smallest fitting room is always tried
// first and tie-breaks stay deterministic.
type RoomCatalog struct {
	rooms []models.Room
}

// NewRoomCatalog wraps an already-ordered room inventory.
func NewRoomCatalog(rooms []models.Room) *RoomCatalog {
	return &RoomCatalog{rooms: rooms}
}

// Candidates returns rooms whose exam capacity and equipment satisfy
// the exam. An empty result signals infeasibility for that exam under
// the current inventory.
func (c *RoomCatalog) Candidates(expectedStudents int, requiresComputer, requiresLab bool) []models.Room {
	var matched []models.Room
	for _, room := range c.rooms {
		if !room.IsActive || !room.IsAvailable {
			continue
		}
		if room.ExamCapacity < expectedStudents {
			continue
		}
		if requiresLab && room.RoomType != models.RoomTypeLab {
			continue
		}
		if requiresComputer && !room.HasComputers {
			continue
		}
		matched = append(matched, room)
	}
	return matched
}
