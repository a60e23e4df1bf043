// Package ledger defines the currency port used for bid escrow. A hold
// reserves besitos against a user's balance; it is later released (refund)
// or captured (finalized payment). Balances are never read-then-written by
// callers; all mutation goes through these three primitives.
package ledger

import (
	"context"
	"errors"
)

// Errors returned by ledger operations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrHoldNotFound      = errors.New("hold not found")
	// ErrUnavailable marks a transient infrastructure failure; callers may
	// retry with backoff.
	ErrUnavailable = errors.New("ledger unavailable")
)

// Ledger is the escrow port.
type Ledger interface {
	// Hold reserves amount against userID's balance and returns a hold id.
	// ref ties the hold to its originating bid for audit.
	Hold(ctx context.Context, userID string, amount int64, ref string) (string, error)
	// Release returns a held amount to the user's balance. Releasing a hold
	// that is no longer active is a no-op, so refund paths stay idempotent.
	Release(ctx context.Context, holdID string) error
	// Capture finalizes a hold as a committed debit. Capturing an
	// already-captured hold is a no-op.
	Capture(ctx context.Context, holdID string) error
	// Balance returns the user's available balance.
	Balance(ctx context.Context, userID string) (int64, error)
}
