package checkin

import (
	"database/sql"
	"time"
)

const StatusConfirmed = "confirmed"

// Fallback labels used when a conflicting class is missing display data.
const (
	defaultProgramName = "Aula"
	defaultStartTime   = "00:00"

	// How a confirmed check-in was settled.
	PaymentSubscription = "subscription"
	PaymentDropIn       = "drop_in"
)

type CheckIn struct {
	ID        int       `db:"id" json:"id"`
	MemberID  int       `db:"member_id" json:"member_id"`
	ClassID   int       `db:"class_id" json:"class_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CheckInWithClass is a check-in joined with its class's schedule data.
type CheckInWithClass struct {
	CheckIn
	ClassDate   time.Time      `db:"class_date" json:"class_date"`
	StartTime   sql.NullString `db:"start_time" json:"-"`
	EndTime     sql.NullString `db:"end_time" json:"-"`
	ProgramName sql.NullString `db:"program_name" json:"-"`
	CoachName   sql.NullString `db:"coach_name" json:"-"`
}

// Conflict describes an existing same-day check-in blocking a new one.
type Conflict struct {
	ClassID     int    `json:"class_id"`
	ProgramName string `json:"program_name" example:"CrossFit"`
	StartTime   string `json:"start_time" example:"06:00"`
}

// CheckInResult is the outcome of a check-in request. Exactly one of
// CheckIn and Conflict is set: a conflict means no row was written and
// the caller should ask the member to confirm a change-class instead.
type CheckInResult struct {
	CheckIn  *CheckIn  `json:"checkin,omitempty"`
	Conflict *Conflict `json:"conflict,omitempty"`
	Payment  string    `json:"payment,omitempty"`
}

// Availability is the pre-flight read for a class/member pair.
type Availability struct {
	ClassExists     bool `json:"class_exists"`
	HasCapacity     bool `json:"has_capacity"`
	MemberCheckedIn bool `json:"member_checked_in"`
	Capacity        int  `json:"capacity"`
	ConfirmedCount  int  `json:"confirmed_count"`
}

type ChangeOutcome string

const (
	// ChangeSucceeded: the member now holds a confirmed check-in on the
	// target class and none on the original.
	ChangeSucceeded ChangeOutcome = "succeeded"
	// ChangeFailedRestored: the change failed but the original check-in
	// is still (or again) in place.
	ChangeFailedRestored ChangeOutcome = "failed_restored"
	// ChangeFailedStateUnknown: the change failed and restoring the
	// original check-in also failed. The caller must re-verify.
	ChangeFailedStateUnknown ChangeOutcome = "failed_state_unknown"
)

type ChangeResult struct {
	Outcome ChangeOutcome `json:"outcome"`
	CheckIn *CheckIn      `json:"checkin,omitempty"`
}

type ChangeCheckInRequest struct {
	FromClassID int `json:"from_class_id" binding:"required"`
	ToClassID   int `json:"to_class_id" binding:"required"`
}

// RosterEntry is one confirmed member on a class roster.
type RosterEntry struct {
	CheckIn
	MemberName  string `db:"member_name" json:"member_name"`
	MemberEmail string `db:"member_email" json:"member_email"`
}
