// Package delivery defines the content delivery port invoked after a won
// auction settles. Delivery is independent of payment finality: a failed
// delivery never reverses a captured payment.
package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// ErrRetryable marks a transient delivery failure.
var ErrRetryable = errors.New("delivery temporarily failed")

// Deliverer hands won items to the content system.
type Deliverer interface {
	Deliver(ctx context.Context, auctionID, winnerID string, items []store.AuctionItem) error
}

// Retrying wraps a Deliverer with bounded backoff on ErrRetryable.
type Retrying struct {
	inner      Deliverer
	maxElapsed time.Duration
}

// WithRetry decorates the given deliverer.
func WithRetry(inner Deliverer, maxElapsed time.Duration) *Retrying {
	return &Retrying{inner: inner, maxElapsed: maxElapsed}
}

func (r *Retrying) Deliver(ctx context.Context, auctionID, winnerID string, items []store.AuctionItem) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed

	return backoff.Retry(func() error {
		err := r.inner.Deliver(ctx, auctionID, winnerID, items)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRetryable) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}

// Recorder is a Deliverer that records deliveries in memory. Used in tests
// and local runs without a content backend.
type Recorder struct {
	mu         sync.Mutex
	deliveries map[string][]store.AuctionItem // auctionID -> items
	// FailWith, when set, is returned from Deliver instead of recording.
	FailWith error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{deliveries: make(map[string][]store.AuctionItem)}
}

func (r *Recorder) Deliver(ctx context.Context, auctionID, winnerID string, items []store.AuctionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.deliveries[auctionID] = items
	return nil
}

// Delivered returns the recorded items for an auction.
func (r *Recorder) Delivered(auctionID string) []store.AuctionItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deliveries[auctionID]
}
