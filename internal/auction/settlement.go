package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carlostoek/dianabot-auctions/internal/event"
	"github.com/carlostoek/dianabot-auctions/internal/notify"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// endLocked moves an auction to its terminal state and settles all bids.
// The caller holds the auction's lock. The terminal status is persisted
// before any ledger or delivery side effect so that a repeated call
// observes a terminal auction and does nothing.
func (e *Engine) endLocked(ctx context.Context, a *store.Auction, winning *store.Bid) error {
	status := outcome(a, winning)
	a.Status = status
	if status == store.StatusEndedWon {
		a.WinnerID = &winning.UserID
		a.WinningBidID = &winning.ID
	}
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("finalizing auction status: %w", err)
	}

	var settleErr error
	switch status {
	case store.StatusEndedWon:
		settleErr = e.settleWon(ctx, a, winning)
	default:
		settleErr = e.refundOutstanding(ctx, a.ID)
	}

	endedData := event.EndedData{Status: string(status)}
	if status == store.StatusEndedWon {
		endedData.WinnerID = winning.UserID
		endedData.Amount = winning.Amount
	}
	e.journal(ctx, a.ID, event.AuctionEnded, endedData, 0)

	n := notify.Notification{
		Type:      event.AuctionEnded,
		AuctionID: a.ID,
		EndsAt:    a.EndsAt,
	}
	if status == store.StatusEndedWon {
		n.Amount = winning.Amount
		n.CurrentPrice = winning.Amount
		// The winner gets a direct notification on top of the broadcast.
		direct := n
		direct.UserID = winning.UserID
		e.emitter.Emit(direct)
	}
	e.emitter.Broadcast(ctx, n)
	e.finishWatches(ctx, a.ID)
	e.invalidateView(ctx, a.ID)

	e.logger.InfoContext(ctx, "auction ended",
		slog.String("auction_id", a.ID),
		slog.String("status", string(status)),
	)
	return settleErr
}

// settleWon captures the winner's escrow, refunds every other outstanding
// hold, and hands the items to the delivery port. A delivery failure never
// reverses the capture; the items stay undelivered for retry.
func (e *Engine) settleWon(ctx context.Context, a *store.Auction, winning *store.Bid) error {
	if err := e.ledger.Capture(ctx, winning.HoldID); err != nil {
		return fmt.Errorf("%w: capturing winning hold: %v", ErrLedgerUnavailable, err)
	}

	if err := e.refundLosers(ctx, a.ID, winning.ID); err != nil {
		return err
	}

	return e.deliverItems(ctx, a, winning.UserID)
}

// deliverItems invokes the delivery port for all undelivered items and
// marks them delivered once the port confirms.
func (e *Engine) deliverItems(ctx context.Context, a *store.Auction, winnerID string) error {
	items, err := e.repos.Items.ListByAuction(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("listing auction items: %w", err)
	}
	pending := items[:0]
	for _, it := range items {
		if !it.IsDelivered {
			pending = append(pending, it)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if err := e.deliverer.Deliver(ctx, a.ID, winnerID, pending); err != nil {
		e.logger.ErrorContext(ctx, "item delivery failed",
			slog.String("auction_id", a.ID),
			slog.String("winner_id", winnerID),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	now := e.clock.Now().UTC()
	for _, it := range pending {
		if err := e.repos.Items.MarkDelivered(ctx, it.ID, now); err != nil {
			return fmt.Errorf("marking item %s delivered: %w", it.ID, err)
		}
		e.journal(ctx, a.ID, event.ItemDelivered, event.DeliveredData{
			ItemID:   it.ID,
			WinnerID: winnerID,
		}, 0)
	}
	return nil
}

// RetryDelivery re-attempts item delivery for an auction that ended with a
// winner but whose items are still undelivered.
func (e *Engine) RetryDelivery(ctx context.Context, auctionID string) error {
	lock := e.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	a, err := e.repos.Auctions.Get(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		return fmt.Errorf("loading auction: %w", err)
	}
	if a.Status != store.StatusEndedWon {
		return fmt.Errorf("%w: status %s", ErrNotTerminalYet, a.Status)
	}
	if a.WinnerID == nil {
		return fmt.Errorf("auction %s ended won without a winner id", a.ID)
	}
	return e.deliverItems(ctx, a, *a.WinnerID)
}

// refundLosers releases the hold of every non-refunded bid except the
// winner's, marking each bid refunded so a repeat pass skips it.
func (e *Engine) refundLosers(ctx context.Context, auctionID, winningBidID string) error {
	bids, err := e.repos.Bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("listing bids for refund: %w", err)
	}
	for i := range bids {
		b := &bids[i]
		if b.ID == winningBidID || b.IsRefunded {
			continue
		}
		if err := e.ledger.Release(ctx, b.HoldID); err != nil {
			return fmt.Errorf("%w: refunding bid %s: %v", ErrLedgerUnavailable, b.ID, err)
		}
		b.IsWinning = false
		b.IsRefunded = true
		if err := e.repos.Bids.Update(ctx, b); err != nil {
			return fmt.Errorf("marking bid %s refunded: %w", b.ID, err)
		}
	}
	return nil
}

// refundOutstanding releases every hold still outstanding on the auction,
// including the (former) winning bid. Used for no-winner endings and
// cancellation.
func (e *Engine) refundOutstanding(ctx context.Context, auctionID string) error {
	return e.refundLosers(ctx, auctionID, "")
}

// finishWatches drops all subscriptions once an auction terminates.
func (e *Engine) finishWatches(ctx context.Context, auctionID string) {
	if err := e.repos.Watches.DeleteByAuction(ctx, auctionID); err != nil {
		e.logger.WarnContext(ctx, "failed to clear watches",
			slog.String("auction_id", auctionID),
			slog.Any("error", err),
		)
	}
}
