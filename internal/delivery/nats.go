package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

const deliverySubject = "auctions.delivery"

// request is the wire form consumed by the content backend.
type request struct {
	AuctionID string              `json:"auction_id"`
	WinnerID  string              `json:"winner_id"`
	Items     []store.AuctionItem `json:"items"`
}

// NATSDeliverer requests item delivery from the content backend over NATS
// and waits for an acknowledgement. A timeout or broker outage is reported
// as ErrRetryable so the Retrying wrapper keeps trying.
type NATSDeliverer struct {
	conn    *nats.Conn
	timeout time.Duration
}

// NewNATSDeliverer connects to the broker at url.
func NewNATSDeliverer(url string, timeout time.Duration) (*NATSDeliverer, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATSDeliverer{conn: conn, timeout: timeout}, nil
}

func (d *NATSDeliverer) Deliver(ctx context.Context, auctionID, winnerID string, items []store.AuctionItem) error {
	payload, err := json.Marshal(request{
		AuctionID: auctionID,
		WinnerID:  winnerID,
		Items:     items,
	})
	if err != nil {
		return fmt.Errorf("encoding delivery request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	msg, err := d.conn.RequestWithContext(reqCtx, deliverySubject, payload)
	switch {
	case err == nil:
		// Any reply counts as an acknowledgement unless it says "error".
		if string(msg.Data) == "error" {
			return fmt.Errorf("content backend rejected delivery for auction %s", auctionID)
		}
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrNoResponders):
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	default:
		return fmt.Errorf("requesting delivery: %w", err)
	}
}

// Close drains the connection.
func (d *NATSDeliverer) Close() {
	if err := d.conn.Drain(); err != nil {
		d.conn.Close()
	}
}
