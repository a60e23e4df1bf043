// Package notify translates domain events into notifications on an external
// port. Publishing is fire-and-forget: a dropped notification is never a
// correctness failure and must never block bid acceptance.
package notify

import (
	"context"
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/event"
)

// Notification is a single outbound message. UserID is the recipient; an
// empty UserID means the event is not addressed to anyone in particular.
type Notification struct {
	Type         event.Type `json:"type"`
	AuctionID    string     `json:"auction_id"`
	UserID       string     `json:"user_id,omitempty"`
	Amount       int64      `json:"amount,omitempty"`
	CurrentPrice int64      `json:"current_price,omitempty"`
	EndsAt       time.Time  `json:"ends_at,omitempty"`
}

// Port is the external notification transport.
type Port interface {
	Publish(ctx context.Context, n Notification) error
}

// Nop is a Port that discards everything.
type Nop struct{}

func (Nop) Publish(ctx context.Context, n Notification) error { return nil }
