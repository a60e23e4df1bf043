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

// AuctionRepo implements store.AuctionRepository with sqlx.
type AuctionRepo struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewAuctionRepo returns a new AuctionRepo.
func NewAuctionRepo(db *sqlx.DB, clk clock.Clock) *AuctionRepo {
	return &AuctionRepo{db: db, clk: clk}
}

func (r *AuctionRepo) Create(ctx context.Context, a *store.Auction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.clk.Now().UTC()
	a.Version = 1
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO auctions (id, title, description, kind, status, starting_price,
		    reserve_price, current_price, buyout_price, min_increment, max_increment,
		    min_level, vip_only, max_participants, starts_at, ends_at, auto_extend,
		    extension_window, ending_soon_sent, winner_id, winning_bid_id, created_by,
		    created_at, version)
		 VALUES (:id, :title, :description, :kind, :status, :starting_price,
		    :reserve_price, :current_price, :buyout_price, :min_increment, :max_increment,
		    :min_level, :vip_only, :max_participants, :starts_at, :ends_at, :auto_extend,
		    :extension_window, :ending_soon_sent, :winner_id, :winning_bid_id, :created_by,
		    :created_at, :version)`, a)
	if err != nil {
		return fmt.Errorf("creating auction: %w", err)
	}
	return nil
}

func (r *AuctionRepo) Get(ctx context.Context, id string) (*store.Auction, error) {
	var a store.Auction
	err := r.db.GetContext(ctx, &a, `SELECT * FROM auctions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting auction: %w", err)
	}
	return &a, nil
}

func (r *AuctionRepo) Update(ctx context.Context, a *store.Auction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET status = $1, current_price = $2, ends_at = $3,
		    ending_soon_sent = $4, winner_id = $5, winning_bid_id = $6,
		    version = version + 1
		 WHERE id = $7 AND version = $8`,
		a.Status, a.CurrentPrice, a.EndsAt, a.EndingSoonSent,
		a.WinnerID, a.WinningBidID, a.ID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("updating auction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("auction %s: stale version %d: %w", a.ID, a.Version, store.ErrNotFound)
	}
	a.Version++
	return nil
}

func (r *AuctionRepo) ListByStatus(ctx context.Context, statuses ...store.Status) ([]store.Auction, error) {
	query, args, err := sqlx.In(
		`SELECT * FROM auctions WHERE status IN (?) ORDER BY created_at ASC`, statuses)
	if err != nil {
		return nil, fmt.Errorf("building status query: %w", err)
	}
	var auctions []store.Auction
	if err := r.db.SelectContext(ctx, &auctions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing auctions by status: %w", err)
	}
	return auctions, nil
}
