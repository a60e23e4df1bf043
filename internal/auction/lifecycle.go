package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carlostoek/dianabot-auctions/internal/cache"
	"github.com/carlostoek/dianabot-auctions/internal/event"
	"github.com/carlostoek/dianabot-auctions/internal/notify"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// Tick is the scheduler entry point: it activates due scheduled auctions,
// re-checks auto-extension, emits ending-soon notices, and ends due active
// auctions. Individual auction failures are collected so one bad auction
// cannot stall the sweep.
func (e *Engine) Tick(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "Engine.Tick")
	defer span.End()

	var errs []error

	scheduled, err := e.repos.Auctions.ListByStatus(ctx, store.StatusScheduled)
	if err != nil {
		return fmt.Errorf("listing scheduled auctions: %w", err)
	}
	now := e.clock.Now().UTC()
	for i := range scheduled {
		if now.Before(scheduled[i].StartsAt) {
			continue
		}
		if err := e.Activate(ctx, scheduled[i].ID); err != nil {
			errs = append(errs, fmt.Errorf("activating %s: %w", scheduled[i].ID, err))
		}
	}

	active, err := e.repos.Auctions.ListByStatus(ctx, store.StatusActive)
	if err != nil {
		return fmt.Errorf("listing active auctions: %w", err)
	}
	for i := range active {
		a := &active[i]
		if err := e.sweepActive(ctx, a.ID); err != nil {
			errs = append(errs, fmt.Errorf("sweeping %s: %w", a.ID, err))
		}
	}

	return errors.Join(errs...)
}

// sweepActive re-reads one active auction under its lock and applies any
// due transition: auto-extension repair, ending-soon notice, then ending.
func (e *Engine) sweepActive(ctx context.Context, auctionID string) error {
	lock := e.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	a, err := e.repos.Auctions.Get(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("loading auction: %w", err)
	}
	if a.Status != store.StatusActive {
		return nil
	}
	if err := e.autoExtendLocked(ctx, a); err != nil {
		return err
	}
	now := e.clock.Now().UTC()

	if !a.EndsAt.After(now) {
		winning, err := e.repos.Bids.Winning(ctx, a.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("loading winning bid: %w", err)
		}
		return e.endLocked(ctx, a, winning)
	}

	if !a.EndingSoonSent && a.EndsAt.Sub(now) <= e.cfg.EndingSoonWindow {
		a.EndingSoonSent = true
		if err := e.repos.Auctions.Update(ctx, a); err != nil {
			return fmt.Errorf("latching ending-soon: %w", err)
		}
		e.journal(ctx, a.ID, event.AuctionEndingSoon, event.ExtendedData{EndsAt: a.EndsAt}, 0)
		e.emitter.Broadcast(ctx, notify.Notification{
			Type:      event.AuctionEndingSoon,
			AuctionID: a.ID,
			EndsAt:    a.EndsAt,
		})
	}
	return nil
}

// Activate moves a scheduled auction to active once its start time has
// passed. Calling it on an already-active auction is a no-op.
func (e *Engine) Activate(ctx context.Context, auctionID string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.Activate",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

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
	if a.Status == store.StatusActive {
		return nil
	}
	if a.Status != store.StatusScheduled {
		return fmt.Errorf("%w: status %s", ErrAuctionNotBiddable, a.Status)
	}
	if e.clock.Now().UTC().Before(a.StartsAt) {
		return nil
	}

	a.Status = store.StatusActive
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("activating auction: %w", err)
	}

	e.journal(ctx, a.ID, event.AuctionActivated, event.ExtendedData{EndsAt: a.EndsAt}, 0)
	e.emitter.Broadcast(ctx, notify.Notification{
		Type:      event.AuctionActivated,
		AuctionID: a.ID,
		EndsAt:    a.EndsAt,
	})
	e.invalidateView(ctx, a.ID)

	e.logger.InfoContext(ctx, "auction activated", slog.String("auction_id", a.ID))
	return nil
}

// AutoExtendCheck re-evaluates auto-extension against the last accepted
// bid. Extension is applied at bid time as well; this exists so a sweep
// can repair ends_at if a crash landed between bid commit and extension.
// ends_at never moves backwards.
func (e *Engine) AutoExtendCheck(ctx context.Context, auctionID string) error {
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
	return e.autoExtendLocked(ctx, a)
}

// autoExtendLocked re-applies extension from the last accepted bid. The
// caller holds the auction's lock.
func (e *Engine) autoExtendLocked(ctx context.Context, a *store.Auction) error {
	if a.Status.Terminal() || !a.AutoExtend {
		return nil
	}

	winning, err := e.repos.Bids.Winning(ctx, a.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading winning bid: %w", err)
	}

	if extendIfNeeded(a, winning.CreatedAt) {
		if err := e.repos.Auctions.Update(ctx, a); err != nil {
			return fmt.Errorf("extending auction: %w", err)
		}
		e.journal(ctx, a.ID, event.AuctionExtended, event.ExtendedData{EndsAt: a.EndsAt}, 0)
		e.invalidateView(ctx, a.ID)
	}
	return nil
}

// EndAuction ends a due auction. Repeat calls on a terminal auction are a
// no-op, never an error, so cron jitter and retries are safe.
func (e *Engine) EndAuction(ctx context.Context, auctionID string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.EndAuction",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

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
	if a.Status.Terminal() {
		return nil
	}

	winning, err := e.repos.Bids.Winning(ctx, a.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("loading winning bid: %w", err)
	}
	return e.endLocked(ctx, a, winning)
}

// CancelAuction terminates a non-terminal auction and refunds every
// outstanding hold. Admin-only at the calling layer.
func (e *Engine) CancelAuction(ctx context.Context, auctionID, reason string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.CancelAuction",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("reason", reason),
		),
	)
	defer span.End()

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
	if a.Status == store.StatusCancelled {
		return nil
	}
	if a.Status.Terminal() {
		return fmt.Errorf("%w: auction already ended as %s", ErrAuctionNotBiddable, a.Status)
	}

	a.Status = store.StatusCancelled
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("cancelling auction: %w", err)
	}
	if err := e.refundOutstanding(ctx, a.ID); err != nil {
		return err
	}

	e.journal(ctx, a.ID, event.AuctionCancelled, event.CancelledData{Reason: reason}, 0)
	e.emitter.Broadcast(ctx, notify.Notification{
		Type:      event.AuctionCancelled,
		AuctionID: a.ID,
	})
	e.finishWatches(ctx, a.ID)
	e.invalidateView(ctx, a.ID)

	e.logger.InfoContext(ctx, "auction cancelled",
		slog.String("auction_id", a.ID),
		slog.String("reason", reason),
	)
	return nil
}

// Pause suspends bidding on an active auction.
func (e *Engine) Pause(ctx context.Context, auctionID string) error {
	return e.flipStatus(ctx, auctionID, store.StatusActive, store.StatusPaused, event.AuctionPaused)
}

// Resume reopens a paused auction.
func (e *Engine) Resume(ctx context.Context, auctionID string) error {
	return e.flipStatus(ctx, auctionID, store.StatusPaused, store.StatusActive, event.AuctionResumed)
}

func (e *Engine) flipStatus(ctx context.Context, auctionID string, from, to store.Status, evt event.Type) error {
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
	if a.Status == to {
		return nil
	}
	if a.Status != from {
		return fmt.Errorf("%w: status %s", ErrAuctionNotBiddable, a.Status)
	}
	a.Status = to
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("updating auction status: %w", err)
	}
	e.journal(ctx, a.ID, evt, struct{}{}, 0)
	e.invalidateView(ctx, a.ID)
	return nil
}

// Watch subscribes a user to an auction's status events.
func (e *Engine) Watch(ctx context.Context, auctionID, userID string) error {
	a, err := e.repos.Auctions.Get(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		return fmt.Errorf("loading auction: %w", err)
	}
	if a.Status.Terminal() {
		return fmt.Errorf("%w: auction already ended", ErrAuctionNotBiddable)
	}
	return e.repos.Watches.Create(ctx, &store.Watch{AuctionID: auctionID, UserID: userID})
}

// Unwatch removes a user's subscription.
func (e *Engine) Unwatch(ctx context.Context, auctionID, userID string) error {
	err := e.repos.Watches.Delete(ctx, auctionID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// GetAuctionState returns the read model for one auction, served from the
// view cache when possible.
func (e *Engine) GetAuctionState(ctx context.Context, auctionID string) (View, error) {
	var cached View
	if err := e.views.Get(ctx, auctionID, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		e.logger.WarnContext(ctx, "view cache read failed",
			slog.String("auction_id", auctionID),
			slog.Any("error", err),
		)
	}

	a, err := e.repos.Auctions.Get(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, ErrAuctionNotFound
		}
		return View{}, fmt.Errorf("loading auction: %w", err)
	}
	bidders, err := e.repos.Bids.CountBidders(ctx, auctionID)
	if err != nil {
		return View{}, fmt.Errorf("counting bidders: %w", err)
	}

	v := viewOf(a, bidders)
	if err := e.views.Set(ctx, auctionID, v); err != nil {
		e.logger.WarnContext(ctx, "view cache write failed",
			slog.String("auction_id", auctionID),
			slog.Any("error", err),
		)
	}
	return v, nil
}

// ListActiveAuctions returns views of active auctions matching the filter.
func (e *Engine) ListActiveAuctions(ctx context.Context, filter Filter) ([]View, error) {
	active, err := e.repos.Auctions.ListByStatus(ctx, store.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("listing active auctions: %w", err)
	}
	views := make([]View, 0, len(active))
	for i := range active {
		a := &active[i]
		if !filter.matches(a) {
			continue
		}
		bidders, err := e.repos.Bids.CountBidders(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("counting bidders for %s: %w", a.ID, err)
		}
		views = append(views, viewOf(a, bidders))
	}
	return views, nil
}

// Recover warms the engine after startup or failover: it loads every
// non-terminal auction so their locks exist and reports how many are live.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Recover")
	defer span.End()

	live, err := e.repos.Auctions.ListByStatus(ctx,
		store.StatusScheduled, store.StatusActive, store.StatusPaused)
	if err != nil {
		return 0, fmt.Errorf("listing live auctions: %w", err)
	}
	for i := range live {
		e.lockFor(live[i].ID)
	}

	e.logger.InfoContext(ctx, "auction recovery complete", slog.Int("live", len(live)))
	return len(live), nil
}
