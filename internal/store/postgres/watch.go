package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carlostoek/dianabot-auctions/internal/clock"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// WatchRepo implements store.WatchRepository with sqlx.
type WatchRepo struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewWatchRepo returns a new WatchRepo.
func NewWatchRepo(db *sqlx.DB, clk clock.Clock) *WatchRepo {
	return &WatchRepo{db: db, clk: clk}
}

func (r *WatchRepo) Create(ctx context.Context, w *store.Watch) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = r.clk.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watches (id, auction_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (auction_id, user_id) DO NOTHING`,
		w.ID, w.AuctionID, w.UserID, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating watch: %w", err)
	}
	return nil
}

func (r *WatchRepo) Delete(ctx context.Context, auctionID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watches WHERE auction_id = $1 AND user_id = $2`, auctionID, userID)
	if err != nil {
		return fmt.Errorf("deleting watch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *WatchRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.Watch, error) {
	var watches []store.Watch
	err := r.db.SelectContext(ctx, &watches,
		`SELECT * FROM watches WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("listing watches: %w", err)
	}
	return watches, nil
}

func (r *WatchRepo) DeleteByAuction(ctx context.Context, auctionID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM watches WHERE auction_id = $1`, auctionID); err != nil {
		return fmt.Errorf("deleting watches for auction: %w", err)
	}
	return nil
}
