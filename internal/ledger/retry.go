package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrying wraps a Ledger with bounded exponential backoff on transient
// failures. Validation outcomes (ErrInsufficientFunds, ErrHoldNotFound) are
// returned immediately and never retried.
type Retrying struct {
	inner       Ledger
	maxElapsed  time.Duration
	maxInterval time.Duration
}

// WithRetry decorates the given ledger. maxElapsed bounds the total time
// spent retrying a single call.
func WithRetry(inner Ledger, maxElapsed time.Duration) *Retrying {
	return &Retrying{
		inner:       inner,
		maxElapsed:  maxElapsed,
		maxInterval: 2 * time.Second,
	}
}

func (r *Retrying) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed
	b.MaxInterval = r.maxInterval

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}

func (r *Retrying) Hold(ctx context.Context, userID string, amount int64, ref string) (string, error) {
	var id string
	err := r.retry(ctx, func() error {
		var opErr error
		id, opErr = r.inner.Hold(ctx, userID, amount, ref)
		return opErr
	})
	return id, err
}

func (r *Retrying) Release(ctx context.Context, holdID string) error {
	return r.retry(ctx, func() error { return r.inner.Release(ctx, holdID) })
}

func (r *Retrying) Capture(ctx context.Context, holdID string) error {
	return r.retry(ctx, func() error { return r.inner.Capture(ctx, holdID) })
}

func (r *Retrying) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.retry(ctx, func() error {
		var opErr error
		balance, opErr = r.inner.Balance(ctx, userID)
		return opErr
	})
	return balance, err
}
