package models

// RoomType classifies exam rooms.
type RoomType string

const (
	RoomTypeAmphitheater RoomType = "amphitheater"
	RoomTypeClassroom    RoomType = "classroom"
	RoomTypeLab          RoomType = "lab"
)

// Room is a static catalog entry. ExamCapacity is the binding constraint
// for scheduling, not TotalCapacity: exam seating is spread out.
type Room struct {
	ID            string   `db:"id" json:"id"`
	Name          string   `db:"name" json:"name"`
	RoomType      RoomType `db:"room_type" json:"room_type"`
	TotalCapacity int      `db:"total_capacity" json:"total_capacity"`
	ExamCapacity  int      `db:"exam_capacity" json:"exam_capacity"`
	HasComputers  bool     `db:"has_computers" json:"has_computers"`
	IsActive      bool     `db:"is_active" json:"is_active"`
	IsAvailable   bool     `db:"is_available" json:"is_available"`
}
