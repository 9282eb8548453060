package subscription

import "context"

type Repository interface {
	CreateSubscription(ctx context.Context, memberID int, ptype PlanType, priceCents int64, visitsLimit *int) (*Subscription, error)
	GetActiveForMember(ctx context.Context, memberID int) (*Subscription, error)
	IncrementVisits(ctx context.Context, subID int) error
	ListActiveByMember(ctx context.Context, memberID int) ([]*Subscription, error)
	ListByMember(ctx context.Context, memberID int) ([]*Subscription, error)
}
