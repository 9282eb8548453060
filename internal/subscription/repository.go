package subscription

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

func (r *repository) CreateSubscription(
	ctx context.Context,
	memberID int,
	ptype PlanType,
	priceCents int64,
	visitsLimit *int,
) (*Subscription, error) {
	now := time.Now()
	validUntil := now.AddDate(0, 1, 0)

	sub := &Subscription{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (member_id, type, status, visits_limit, visits_used, period, price_cents, currency, valid_from, valid_until)
		VALUES ($1, $2, 'active', $3, 0, 'monthly', $4, 'BRL', $5, $6)
		RETURNING id, member_id, type, status, visits_limit, visits_used, period, price_cents, currency, valid_from, valid_until, created_at, updated_at
	`, memberID, ptype, visitsLimit, priceCents, now, validUntil).StructScan(sub)

	return sub, err
}

// GetActiveForMember prefers the most expensive active plan when a
// member holds several, so the unlimited plan wins over a visit pack.
func (r *repository) GetActiveForMember(ctx context.Context, memberID int) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.GetContext(ctx, sub, `
		SELECT *
		FROM subscriptions
		WHERE member_id = $1
		  AND status = 'active'
		  AND valid_from <= NOW()
		  AND valid_until >= NOW()
		ORDER BY price_cents DESC
		LIMIT 1
	`, memberID)

	return sub, err
}

func (r *repository) IncrementVisits(ctx context.Context, subID int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET visits_used = visits_used + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, subID)
	return err
}

func (r *repository) ListActiveByMember(ctx context.Context, memberID int) ([]*Subscription, error) {
	subs := []*Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT *
		FROM subscriptions
		WHERE member_id = $1
		  AND status = 'active'
		  AND valid_from <= NOW()
		  AND valid_until >= NOW()
		ORDER BY created_at DESC
	`, memberID)
	return subs, err
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]*Subscription, error) {
	subs := []*Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT *
		FROM subscriptions
		WHERE member_id = $1
		ORDER BY created_at DESC
	`, memberID)
	return subs, err
}
