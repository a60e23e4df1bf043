package auction

import (
	"fmt"
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// askingPrice returns the price a bid must meet right now.
//
// For dutch auctions the asking price decays linearly from the starting
// price down to the floor (reserve price if set, else the minimum
// increment) across the auction window. For every other kind it is the
// current price plus the minimum increment, or the starting price when no
// bid has been accepted yet.
func askingPrice(a *store.Auction, now time.Time) int64 {
	switch a.Kind {
	case store.KindDutch:
		floor := a.MinIncrement
		if a.ReservePrice != nil {
			floor = *a.ReservePrice
		}
		total := a.EndsAt.Sub(a.StartsAt)
		if total <= 0 {
			return floor
		}
		elapsed := now.Sub(a.StartsAt)
		if elapsed <= 0 {
			return a.StartingPrice
		}
		if elapsed >= total {
			return floor
		}
		drop := (a.StartingPrice - floor) * int64(elapsed) / int64(total)
		return a.StartingPrice - drop
	case store.KindSealed:
		return a.StartingPrice
	default:
		if a.WinningBidID == nil {
			return a.StartingPrice
		}
		return a.CurrentPrice + a.MinIncrement
	}
}

// validateBid applies the kind-specific amount and bidder rules. The caller
// has already verified status and time window and checked access.
func validateBid(a *store.Auction, winning *store.Bid, userID string, amount int64, now time.Time) error {
	switch a.Kind {
	case store.KindSealed:
		if amount < a.StartingPrice {
			return fmt.Errorf("%w: minimum is %d", ErrBidTooLow, a.StartingPrice)
		}
		return nil

	case store.KindDutch:
		if ask := askingPrice(a, now); amount < ask {
			return fmt.Errorf("%w: asking price is %d", ErrBidTooLow, ask)
		}
		return nil

	default: // normal, reserve
		if winning != nil && winning.UserID == userID {
			return ErrAlreadyHighestBidder
		}
		if required := askingPrice(a, now); amount < required {
			return fmt.Errorf("%w: minimum is %d", ErrBidTooLow, required)
		}
		if a.MaxIncrement != nil {
			if ceiling := a.CurrentPrice + *a.MaxIncrement; amount > ceiling {
				return fmt.Errorf("%w: maximum is %d", ErrBidTooLow, ceiling)
			}
		}
		return nil
	}
}

// extendIfNeeded pushes ends_at back when a bid lands inside the extension
// window. It never shortens the auction. Returns true when ends_at moved.
func extendIfNeeded(a *store.Auction, acceptedAt time.Time) bool {
	if !a.AutoExtend || a.ExtensionWindow <= 0 {
		return false
	}
	if a.EndsAt.Sub(acceptedAt) > a.ExtensionWindow {
		return false
	}
	extended := acceptedAt.Add(a.ExtensionWindow)
	if !extended.After(a.EndsAt) {
		return false
	}
	a.EndsAt = extended
	return true
}

// endsImmediately reports whether an accepted bid terminates the auction on
// the spot: a buyout-level bid, or any accepted bid on a dutch auction.
func endsImmediately(a *store.Auction, amount int64) bool {
	if a.Kind == store.KindDutch {
		return true
	}
	return a.BuyoutPrice != nil && amount >= *a.BuyoutPrice
}

// outcome determines the terminal status for an ending auction given its
// winning bid (nil when no bid was accepted).
func outcome(a *store.Auction, winning *store.Bid) store.Status {
	if winning == nil {
		return store.StatusEndedNoBids
	}
	if a.ReservePrice != nil && a.Kind != store.KindDutch && winning.Amount < *a.ReservePrice {
		return store.StatusEndedReserve
	}
	return store.StatusEndedWon
}

// biddable reports whether bids may be accepted right now.
func biddable(a *store.Auction, now time.Time) bool {
	if a.Status != store.StatusActive {
		return false
	}
	return !now.Before(a.StartsAt) && now.Before(a.EndsAt)
}
