package subscription

import "time"

type PlanType string
type Status string

const (
	TypeBasic     PlanType = "basic_8"
	TypeStandard  PlanType = "standard_12"
	TypeUnlimited PlanType = "unlimited"

	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

type Subscription struct {
	ID          int       `db:"id" json:"id"`
	MemberID    int       `db:"member_id" json:"member_id"`
	Type        PlanType  `db:"type" json:"type"`
	Status      Status    `db:"status" json:"status"`
	VisitsLimit *int      `db:"visits_limit" json:"visits_limit,omitempty"`
	VisitsUsed  int       `db:"visits_used" json:"visits_used"`
	Period      string    `db:"period" json:"period"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	Currency    string    `db:"currency" json:"currency"`
	ValidFrom   time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil  time.Time `db:"valid_until" json:"valid_until"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
