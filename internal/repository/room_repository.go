package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

// RoomRepository handles read access to the room inventory.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListAvailable returns bookable rooms ordered by exam capacity
// ascending then name. The order is load-bearing: the scheduler tries
// the smallest fitting room first.
func (r *RoomRepository) ListAvailable(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, room_type, total_capacity, exam_capacity,
        has_computers, is_active, is_available
        FROM rooms
        WHERE is_active = TRUE AND is_available = TRUE
        ORDER BY exam_capacity, name`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list available rooms: %w", err)
	}
	return rooms, nil
}
