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

// BidRepo implements store.BidRepository with sqlx.
type BidRepo struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewBidRepo returns a new BidRepo.
func NewBidRepo(db *sqlx.DB, clk clock.Clock) *BidRepo {
	return &BidRepo{db: db, clk: clk}
}

func (r *BidRepo) Create(ctx context.Context, b *store.Bid) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = r.clk.Now().UTC()
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO bids (id, auction_id, user_id, amount, is_auto_bid, max_auto_bid,
		    is_winning, is_refunded, hold_id, idempotency_key, created_at)
		 VALUES (:id, :auction_id, :user_id, :amount, :is_auto_bid, :max_auto_bid,
		    :is_winning, :is_refunded, :hold_id, :idempotency_key, :created_at)`, b)
	if err != nil {
		return fmt.Errorf("creating bid: %w", err)
	}
	return nil
}

func (r *BidRepo) Update(ctx context.Context, b *store.Bid) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bids SET amount = $1, is_winning = $2, is_refunded = $3,
		    hold_id = $4, max_auto_bid = $5
		 WHERE id = $6`,
		b.Amount, b.IsWinning, b.IsRefunded, b.HoldID, b.MaxAutoBid, b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating bid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *BidRepo) Get(ctx context.Context, id string) (*store.Bid, error) {
	var b store.Bid
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bids WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting bid: %w", err)
	}
	return &b, nil
}

func (r *BidRepo) GetByIdempotencyKey(ctx context.Context, key string) (*store.Bid, error) {
	var b store.Bid
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bids WHERE idempotency_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting bid by idempotency key: %w", err)
	}
	return &b, nil
}

func (r *BidRepo) Winning(ctx context.Context, auctionID string) (*store.Bid, error) {
	var b store.Bid
	err := r.db.GetContext(ctx, &b,
		`SELECT * FROM bids WHERE auction_id = $1 AND is_winning = TRUE`, auctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting winning bid: %w", err)
	}
	return &b, nil
}

func (r *BidRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.Bid, error) {
	var bids []store.Bid
	err := r.db.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("listing bids: %w", err)
	}
	return bids, nil
}

func (r *BidRepo) CountBidders(ctx context.Context, auctionID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(DISTINCT user_id) FROM bids WHERE auction_id = $1`, auctionID)
	if err != nil {
		return 0, fmt.Errorf("counting bidders: %w", err)
	}
	return n, nil
}
