package checkin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// InsertCheckIn writes a confirmed check-in while holding a row lock on
// the class, so two concurrent requests for the last spot cannot both
// pass the capacity check. The partial unique index on
// (member_id, class_id) rejects duplicate confirmed check-ins.
func (r *repository) InsertCheckIn(ctx context.Context, memberID, classID int) (*CheckIn, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var capacity int
	err = tx.GetContext(ctx, &capacity,
		`SELECT capacity FROM classes WHERE id = $1 FOR UPDATE`, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	var confirmed int
	err = tx.GetContext(ctx, &confirmed,
		`SELECT COUNT(*) FROM checkins WHERE class_id = $1 AND status = 'confirmed'`, classID)
	if err != nil {
		return nil, err
	}

	if confirmed >= capacity {
		return nil, ErrClassFull
	}

	var ci CheckIn
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO checkins (member_id, class_id, status)
		VALUES ($1, $2, 'confirmed')
		RETURNING id, member_id, class_id, status, created_at
	`, memberID, classID).StructScan(&ci)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ci, nil
}

// DeleteCheckIn removes the confirmed check-in for the pair if present.
// Deleting a missing row is not an error; the removed count tells the
// caller whether anything actually changed.
func (r *repository) DeleteCheckIn(ctx context.Context, memberID, classID int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM checkins
		WHERE member_id = $1 AND class_id = $2 AND status = 'confirmed'
	`, memberID, classID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *repository) CountConfirmedForClass(ctx context.Context, classID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM checkins
		WHERE class_id = $1 AND status = 'confirmed'
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, classID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) HasConfirmedCheckIn(ctx context.Context, memberID, classID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM checkins
			WHERE member_id = $1 AND class_id = $2 AND status = 'confirmed'
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, memberID, classID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// FindSameDayCheckIns returns the member's confirmed check-ins whose
// class falls on the same calendar date as the target class, excluding
// the target class itself. Row order is whatever the store returns; the
// resolver takes the first row (see Service.RequestCheckIn).
func (r *repository) FindSameDayCheckIns(ctx context.Context, memberID, targetClassID int) ([]CheckInWithClass, error) {
	query := `
		SELECT
			ci.id,
			ci.member_id,
			ci.class_id,
			ci.status,
			ci.created_at,
			c.date AS class_date,
			c.start_time,
			c.end_time,
			c.program_name,
			c.coach_name
		FROM checkins ci
		JOIN classes c ON ci.class_id = c.id
		WHERE ci.member_id = $1
		  AND ci.status = 'confirmed'
		  AND ci.class_id <> $2
		  AND c.date = (SELECT date FROM classes WHERE id = $2)
	`

	var checkins []CheckInWithClass
	err := r.db.SelectContext(ctx, &checkins, query, memberID, targetClassID)
	if err != nil {
		return nil, err
	}

	return checkins, nil
}

func (r *repository) ListMemberCheckIns(ctx context.Context, memberID int) ([]CheckInWithClass, error) {
	query := `
		SELECT
			ci.id,
			ci.member_id,
			ci.class_id,
			ci.status,
			ci.created_at,
			c.date AS class_date,
			c.start_time,
			c.end_time,
			c.program_name,
			c.coach_name
		FROM checkins ci
		JOIN classes c ON ci.class_id = c.id
		WHERE ci.member_id = $1
		ORDER BY c.date DESC, c.start_time DESC
	`

	var checkins []CheckInWithClass
	err := r.db.SelectContext(ctx, &checkins, query, memberID)
	if err != nil {
		return nil, err
	}

	return checkins, nil
}

func (r *repository) ListClassRoster(ctx context.Context, classID int) ([]RosterEntry, error) {
	query := `
		SELECT
			ci.id,
			ci.member_id,
			ci.class_id,
			ci.status,
			ci.created_at,
			m.name AS member_name,
			m.email AS member_email
		FROM checkins ci
		JOIN members m ON ci.member_id = m.id
		WHERE ci.class_id = $1 AND ci.status = 'confirmed'
		ORDER BY ci.created_at ASC
	`

	var roster []RosterEntry
	err := r.db.SelectContext(ctx, &roster, query, classID)
	if err != nil {
		return nil, err
	}

	return roster, nil
}
