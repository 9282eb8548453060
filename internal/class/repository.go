package class

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateClass(ctx context.Context, date time.Time, startTime, endTime string, capacity int, programName, coachName string) (*Class, error) {
	query := `
		INSERT INTO classes (date, start_time, end_time, capacity, program_name, coach_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, date, start_time, end_time, capacity, program_name, coach_name, created_at
	`

	var cls Class
	err := r.db.GetContext(ctx, &cls, query, date, startTime, endTime, capacity, programName, coachName)
	if err != nil {
		return nil, err
	}

	return &cls, nil
}

func (r *repository) GetClassByID(ctx context.Context, id int) (*Class, error) {
	query := `
		SELECT id, date, start_time, end_time, capacity, program_name, coach_name, created_at
		FROM classes
		WHERE id = $1
	`

	var cls Class
	err := r.db.GetContext(ctx, &cls, query, id)
	if err != nil {
		return nil, err
	}

	return &cls, nil
}

func (r *repository) ListClassesByDate(ctx context.Context, date time.Time) ([]Class, error) {
	query := `
		SELECT id, date, start_time, end_time, capacity, program_name, coach_name, created_at
		FROM classes
		WHERE date = $1
		ORDER BY start_time ASC
	`

	var classes []Class
	err := r.db.SelectContext(ctx, &classes, query, date)
	if err != nil {
		return nil, err
	}

	return classes, nil
}

func (r *repository) ListClassesWithAvailability(ctx context.Context, date time.Time) ([]ClassWithAvailability, error) {
	query := `
		SELECT
			c.id,
			c.date,
			c.start_time,
			c.end_time,
			c.capacity,
			c.program_name,
			c.coach_name,
			c.created_at,
			COUNT(ci.id) FILTER (WHERE ci.status = 'confirmed') AS confirmed_count
		FROM classes c
		LEFT JOIN checkins ci ON ci.class_id = c.id
		WHERE c.date = $1
		GROUP BY c.id
		ORDER BY c.start_time ASC
	`

	var rows []ClassWithAvailability
	err := r.db.SelectContext(ctx, &rows, query, date)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].SpotsLeft = rows[i].Capacity - rows[i].ConfirmedCount
		rows[i].IsFull = rows[i].SpotsLeft <= 0
	}

	return rows, nil
}
