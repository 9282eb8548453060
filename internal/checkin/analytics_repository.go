package checkin

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type CheckInStatsByDay struct {
	Bucket   string `db:"bucket" json:"bucket"`
	CheckIns int    `db:"checkins" json:"checkins"`
	Members  int    `db:"members" json:"members"`
}

type CheckInStatsByProgram struct {
	ProgramName string `db:"program_name" json:"program_name"`
	Classes     int    `db:"classes" json:"classes"`
	CheckIns    int    `db:"checkins" json:"checkins"`
}

type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) GetCheckInStatsByDay(ctx context.Context, from, to time.Time) ([]CheckInStatsByDay, error) {
	query := `
SELECT
  TO_CHAR(c.date, 'YYYY-MM-DD')   AS bucket,
  COUNT(ci.*)                     AS checkins,
  COUNT(DISTINCT ci.member_id)    AS members
FROM checkins ci
JOIN classes c ON ci.class_id = c.id
WHERE ci.status = 'confirmed'
  AND c.date BETWEEN $1 AND $2
GROUP BY c.date
ORDER BY c.date;
`
	var stats []CheckInStatsByDay
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *AnalyticsRepository) GetCheckInStatsByProgram(ctx context.Context, from, to time.Time) ([]CheckInStatsByProgram, error) {
	query := `
SELECT
  c.program_name               AS program_name,
  COUNT(DISTINCT c.id)         AS classes,
  COUNT(ci.*)                  AS checkins
FROM classes c
LEFT JOIN checkins ci ON ci.class_id = c.id AND ci.status = 'confirmed'
WHERE c.date BETWEEN $1 AND $2
GROUP BY c.program_name
ORDER BY checkins DESC;
`
	var stats []CheckInStatsByProgram
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}
