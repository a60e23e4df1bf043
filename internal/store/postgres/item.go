package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// ItemRepo implements store.ItemRepository with sqlx.
type ItemRepo struct {
	db *sqlx.DB
}

// NewItemRepo returns a new ItemRepo.
func NewItemRepo(db *sqlx.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) Create(ctx context.Context, it *store.AuctionItem) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO auction_items (id, auction_id, kind, quantity, payload, is_delivered, delivered_at)
		 VALUES (:id, :auction_id, :kind, :quantity, :payload, :is_delivered, :delivered_at)`, it)
	if err != nil {
		return fmt.Errorf("creating auction item: %w", err)
	}
	return nil
}

func (r *ItemRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.AuctionItem, error) {
	var items []store.AuctionItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM auction_items WHERE auction_id = $1 ORDER BY id ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("listing auction items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auction_items SET is_delivered = TRUE, delivered_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("marking item delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
