package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carlostoek/dianabot-auctions/internal/clock"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// UserRepo implements store.UserRepository with sqlx.
type UserRepo struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewUserRepo returns a new UserRepo.
func NewUserRepo(db *sqlx.DB, clk clock.Clock) *UserRepo {
	return &UserRepo{db: db, clk: clk}
}

func (r *UserRepo) Create(ctx context.Context, u *store.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.clk.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, level, vip, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.Level, u.VIP, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (*store.User, error) {
	var u store.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}
