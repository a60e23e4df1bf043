// Package access checks whether a user may participate in an auction.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// ErrDenied is returned when a user fails an auction's access rule.
var ErrDenied = errors.New("access denied")

// Rule restricts who may bid on an auction. MaxParticipants is enforced by
// the engine, which owns the distinct-bidder count.
type Rule struct {
	MinLevel        int
	VIPOnly         bool
	MaxParticipants int
}

// Checker is the eligibility port.
type Checker interface {
	CheckEligibility(ctx context.Context, userID string, rule Rule) error
}

// StoreChecker evaluates rules against user records.
type StoreChecker struct {
	users store.UserRepository
}

// NewStoreChecker returns a Checker backed by the user repository.
func NewStoreChecker(users store.UserRepository) *StoreChecker {
	return &StoreChecker{users: users}
}

func (c *StoreChecker) CheckEligibility(ctx context.Context, userID string, rule Rule) error {
	u, err := c.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: unknown user %s", ErrDenied, userID)
		}
		return fmt.Errorf("looking up user: %w", err)
	}
	if rule.VIPOnly && !u.VIP {
		return fmt.Errorf("%w: VIP only", ErrDenied)
	}
	if u.Level < rule.MinLevel {
		return fmt.Errorf("%w: level %d below required %d", ErrDenied, u.Level, rule.MinLevel)
	}
	return nil
}

// AllowAll is a Checker that accepts every user. Used in tests.
type AllowAll struct{}

func (AllowAll) CheckEligibility(ctx context.Context, userID string, rule Rule) error {
	return nil
}
