package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	AuctionCreated    Type = "auction.created"
	AuctionActivated  Type = "auction.activated"
	AuctionBidPlaced  Type = "auction.bid_placed"
	AuctionOutbid     Type = "auction.outbid"
	AuctionExtended   Type = "auction.extended"
	AuctionEndingSoon Type = "auction.ending_soon"
	AuctionEnded      Type = "auction.ended"
	AuctionCancelled  Type = "auction.cancelled"
	AuctionPaused     Type = "auction.paused"
	AuctionResumed    Type = "auction.resumed"
	ItemDelivered     Type = "item.delivered"
)

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// AuctionCreatedData is the payload for AuctionCreated events.
type AuctionCreatedData struct {
	Title         string `json:"title"`
	Kind          string `json:"kind"`
	StartingPrice int64  `json:"starting_price"`
	CreatedBy     string `json:"created_by"`
}

// BidPlacedData is the payload for AuctionBidPlaced events.
type BidPlacedData struct {
	BidID     string `json:"bid_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	IsAutoBid bool   `json:"is_auto_bid"`
}

// OutbidData is the payload for AuctionOutbid events.
type OutbidData struct {
	BidID        string `json:"bid_id"`
	UserID       string `json:"user_id"`
	CurrentPrice int64  `json:"current_price"`
}

// ExtendedData is the payload for AuctionExtended events.
type ExtendedData struct {
	EndsAt time.Time `json:"ends_at"`
}

// EndedData is the payload for AuctionEnded events.
type EndedData struct {
	Status   string `json:"status"`
	WinnerID string `json:"winner_id,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
}

// CancelledData is the payload for AuctionCancelled events.
type CancelledData struct {
	Reason string `json:"reason"`
}

// DeliveredData is the payload for ItemDelivered events.
type DeliveredData struct {
	ItemID   string `json:"item_id"`
	WinnerID string `json:"winner_id"`
}
