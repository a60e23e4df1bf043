package auction

import "errors"

// Errors returned by engine operations. Validation errors are terminal for
// the call and never retried; infrastructure errors are retried by the
// component owning the side effect.
var (
	ErrAuctionNotFound = errors.New("auction not found")
	// ErrAuctionNotBiddable covers wrong status or being outside the
	// bidding time window.
	ErrAuctionNotBiddable   = errors.New("auction is not open for bids")
	ErrAccessDenied         = errors.New("access denied")
	ErrAlreadyHighestBidder = errors.New("already the highest bidder")
	ErrBidTooLow            = errors.New("bid is below the required amount")
	ErrInsufficientFunds    = errors.New("insufficient besitos")
	ErrLedgerUnavailable    = errors.New("ledger unavailable")
	ErrDeliveryFailed       = errors.New("item delivery failed")
	ErrNotTerminalYet       = errors.New("auction has not ended")
)
