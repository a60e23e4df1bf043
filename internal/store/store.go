package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Kind identifies the bidding rules of an auction.
type Kind string

const (
	KindNormal  Kind = "normal"
	KindSealed  Kind = "sealed"
	KindDutch   Kind = "dutch"
	KindReserve Kind = "reserve"
)

// Status identifies the lifecycle state of an auction.
type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusActive       Status = "active"
	StatusPaused       Status = "paused"
	StatusEndedWon     Status = "ended_won"
	StatusEndedNoBids  Status = "ended_no_bids"
	StatusEndedReserve Status = "ended_reserve_not_met"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusEndedWon, StatusEndedNoBids, StatusEndedReserve, StatusCancelled:
		return true
	}
	return false
}

// Auction represents an auction record.
type Auction struct {
	ID              string        `db:"id"`
	Title           string        `db:"title"`
	Description     string        `db:"description"`
	Kind            Kind          `db:"kind"`
	Status          Status        `db:"status"`
	StartingPrice   int64         `db:"starting_price"`
	ReservePrice    *int64        `db:"reserve_price"`
	CurrentPrice    int64         `db:"current_price"`
	BuyoutPrice     *int64        `db:"buyout_price"`
	MinIncrement    int64         `db:"min_increment"`
	MaxIncrement    *int64        `db:"max_increment"`
	MinLevel        int           `db:"min_level"`
	VIPOnly         bool          `db:"vip_only"`
	MaxParticipants int           `db:"max_participants"` // 0 means unlimited
	StartsAt        time.Time     `db:"starts_at"`
	EndsAt          time.Time     `db:"ends_at"`
	AutoExtend      bool          `db:"auto_extend"`
	ExtensionWindow time.Duration `db:"extension_window"` // stored as nanoseconds
	EndingSoonSent  bool          `db:"ending_soon_sent"`
	WinnerID        *string       `db:"winner_id"`
	WinningBidID    *string       `db:"winning_bid_id"`
	CreatedBy       string        `db:"created_by"`
	CreatedAt       time.Time     `db:"created_at"`
	Version         int           `db:"version"`
}

// Bid represents a bid record. A refunded bid is immutable.
type Bid struct {
	ID             string    `db:"id"`
	AuctionID      string    `db:"auction_id"`
	UserID         string    `db:"user_id"`
	Amount         int64     `db:"amount"`
	IsAutoBid      bool      `db:"is_auto_bid"`
	MaxAutoBid     *int64    `db:"max_auto_bid"`
	IsWinning      bool      `db:"is_winning"`
	IsRefunded     bool      `db:"is_refunded"`
	HoldID         string    `db:"hold_id"`
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

// AuctionItem is a payload awarded to the auction winner. The payload is a
// tagged variant: Kind selects the schema of Payload.
type AuctionItem struct {
	ID          string          `db:"id"`
	AuctionID   string          `db:"auction_id"`
	Kind        string          `db:"kind"`
	Quantity    int             `db:"quantity"`
	Payload     json.RawMessage `db:"payload"`
	IsDelivered bool            `db:"is_delivered"`
	DeliveredAt *time.Time      `db:"delivered_at"`
}

// Watch is a user's subscription to an auction's status events.
type Watch struct {
	ID        string    `db:"id"`
	AuctionID string    `db:"auction_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// User represents a registered user as seen by the engine. Authentication
// and onboarding live elsewhere; the engine only reads access attributes.
type User struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Level     int       `db:"level"`
	VIP       bool      `db:"vip"`
	CreatedAt time.Time `db:"created_at"`
}

// AuctionRepository defines auction persistence operations.
type AuctionRepository interface {
	Create(ctx context.Context, a *Auction) error
	Get(ctx context.Context, id string) (*Auction, error)
	// Update persists the full row and bumps the version column. It fails
	// if the stored version does not match a.Version (stale write).
	Update(ctx context.Context, a *Auction) error
	ListByStatus(ctx context.Context, statuses ...Status) ([]Auction, error)
}

// BidRepository defines bid persistence operations.
type BidRepository interface {
	Create(ctx context.Context, b *Bid) error
	Update(ctx context.Context, b *Bid) error
	Get(ctx context.Context, id string) (*Bid, error)
	// GetByIdempotencyKey returns ErrNotFound when no bid carries the key.
	GetByIdempotencyKey(ctx context.Context, key string) (*Bid, error)
	// Winning returns the bid with is_winning=true, or ErrNotFound.
	Winning(ctx context.Context, auctionID string) (*Bid, error)
	ListByAuction(ctx context.Context, auctionID string) ([]Bid, error)
	CountBidders(ctx context.Context, auctionID string) (int, error)
}

// ItemRepository defines auction item persistence operations.
type ItemRepository interface {
	Create(ctx context.Context, it *AuctionItem) error
	ListByAuction(ctx context.Context, auctionID string) ([]AuctionItem, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// WatchRepository defines watch persistence operations.
type WatchRepository interface {
	Create(ctx context.Context, w *Watch) error
	Delete(ctx context.Context, auctionID, userID string) error
	ListByAuction(ctx context.Context, auctionID string) ([]Watch, error)
	DeleteByAuction(ctx context.Context, auctionID string) error
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
}
