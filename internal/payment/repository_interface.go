package payment

import "context"

type Repository interface {
	GetOrCreateAccount(ctx context.Context, memberID int) (*Account, error)
	AddTransaction(ctx context.Context, memberID int, amountCents int64, txType string) error
	TopUp(ctx context.Context, memberID int, amountCents int64) error
	GetTransactions(ctx context.Context, memberID int, limit, offset int) ([]Transaction, error)
}
