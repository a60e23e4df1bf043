package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Postgres implements Ledger on top of balances and holds tables. Each
// primitive runs in a single transaction so escrow failures cannot leave a
// half-applied balance change.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres returns a Postgres-backed ledger.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Hold(ctx context.Context, userID string, amount int64, ref string) (string, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE balances SET balance = balance - $1, updated_at = $2
		 WHERE user_id = $3 AND balance >= $1`,
		amount, time.Now().UTC(), userID,
	)
	if err != nil {
		return "", fmt.Errorf("%w: debiting balance: %v", ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrInsufficientFunds
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO holds (id, user_id, amount, ref, status, created_at)
		 VALUES ($1, $2, $3, $4, 'active', $5)`,
		id, userID, amount, ref, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("%w: inserting hold: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: committing hold: %v", ErrUnavailable, err)
	}
	return id, nil
}

func (p *Postgres) Release(ctx context.Context, holdID string) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	var amount int64
	err = tx.QueryRowxContext(ctx,
		`UPDATE holds SET status = 'released' WHERE id = $1 AND status = 'active'
		 RETURNING user_id, amount`, holdID,
	).Scan(&userID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		// Already released or captured; releasing twice is a no-op, but a
		// hold that never existed is a caller bug.
		return p.ensureHoldExists(ctx, holdID)
	}
	if err != nil {
		return fmt.Errorf("%w: releasing hold: %v", ErrUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE balances SET balance = balance + $1, updated_at = $2 WHERE user_id = $3`,
		amount, time.Now().UTC(), userID,
	); err != nil {
		return fmt.Errorf("%w: crediting balance: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing release: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Capture(ctx context.Context, holdID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE holds SET status = 'captured' WHERE id = $1 AND status = 'active'`, holdID)
	if err != nil {
		return fmt.Errorf("%w: capturing hold: %v", ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var status string
		err := p.db.GetContext(ctx, &status, `SELECT status FROM holds WHERE id = $1`, holdID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrHoldNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: checking hold: %v", ErrUnavailable, err)
		}
		if status == "captured" {
			return nil
		}
		return ErrHoldNotFound
	}
	return nil
}

func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := p.db.GetContext(ctx, &balance, `SELECT balance FROM balances WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading balance: %v", ErrUnavailable, err)
	}
	return balance, nil
}

func (p *Postgres) ensureHoldExists(ctx context.Context, holdID string) error {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM holds WHERE id = $1)`, holdID)
	if err != nil {
		return fmt.Errorf("%w: checking hold: %v", ErrUnavailable, err)
	}
	if !exists {
		return ErrHoldNotFound
	}
	return nil
}
