package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateAccount(ctx context.Context, memberID int) (*Account, error) {
	a := &Account{}
	err := r.db.GetContext(ctx, a, `SELECT * FROM accounts WHERE member_id = $1`, memberID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO accounts (member_id)
		 VALUES ($1)
		 RETURNING id, member_id, balance_cents, currency, created_at, updated_at`,
		memberID,
	).StructScan(a)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// AddTransaction applies a signed amount to the member's balance and
// records a ledger row, holding a row lock so concurrent charges cannot
// overdraw the account.
func (r *repository) AddTransaction(ctx context.Context, memberID int, amountCents int64, txType string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var a Account
	err = tx.QueryRowxContext(ctx,
		`SELECT id, member_id, balance_cents, currency, created_at, updated_at
		 FROM accounts
		 WHERE member_id = $1
		 FOR UPDATE`,
		memberID,
	).StructScan(&a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.QueryRowxContext(ctx,
				`INSERT INTO accounts (member_id)
				 VALUES ($1)
				 RETURNING id, member_id, balance_cents, currency, created_at, updated_at`,
				memberID,
			).StructScan(&a)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}

	newBalance := a.BalanceCents + amountCents
	if newBalance < 0 {
		return ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts
		 SET balance_cents = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, a.ID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_transactions (account_id, amount_cents, type, balance_after)
		 VALUES ($1, $2, $3, $4)`,
		a.ID, amountCents, txType, newBalance,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) TopUp(ctx context.Context, memberID int, amountCents int64) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return r.AddTransaction(ctx, memberID, amountCents, "topup")
}

func (r *repository) GetTransactions(ctx context.Context, memberID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var accountID int
	err := r.db.GetContext(ctx, &accountID, `SELECT id FROM accounts WHERE member_id = $1`, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, account_id, amount_cents, type, balance_after, created_at
		FROM payment_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}
