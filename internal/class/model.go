package class

import "time"

// Class is a scheduled, capacity-bounded class occurrence on a calendar date.
type Class struct {
	ID          int       `db:"id" json:"id"`
	Date        time.Time `db:"date" json:"date"`
	StartTime   string    `db:"start_time" json:"start_time" example:"06:00"`
	EndTime     string    `db:"end_time" json:"end_time" example:"07:00"`
	Capacity    int       `db:"capacity" json:"capacity"`
	ProgramName string    `db:"program_name" json:"program_name" example:"CrossFit"`
	CoachName   string    `db:"coach_name" json:"coach_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ClassWithAvailability struct {
	Class
	ConfirmedCount int  `db:"confirmed_count" json:"confirmed_count"`
	SpotsLeft      int  `json:"spots_left"`
	IsFull         bool `json:"is_full"`
}

type CreateClassRequest struct {
	Date        string `json:"date" validate:"required" example:"2025-06-01"`
	StartTime   string `json:"start_time" validate:"required" example:"06:00"`
	EndTime     string `json:"end_time" validate:"required" example:"07:00"`
	Capacity    int    `json:"capacity" validate:"required,gte=1"`
	ProgramName string `json:"program_name" validate:"required"`
	CoachName   string `json:"coach_name" validate:"required"`
}
