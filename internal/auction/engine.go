// Package auction implements the bidding engine: bid acceptance with
// per-auction serialization, currency escrow through the ledger port,
// lifecycle transitions, and winner settlement.
package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carlostoek/dianabot-auctions/internal/access"
	"github.com/carlostoek/dianabot-auctions/internal/cache"
	"github.com/carlostoek/dianabot-auctions/internal/clock"
	"github.com/carlostoek/dianabot-auctions/internal/config"
	"github.com/carlostoek/dianabot-auctions/internal/delivery"
	"github.com/carlostoek/dianabot-auctions/internal/event"
	"github.com/carlostoek/dianabot-auctions/internal/ledger"
	"github.com/carlostoek/dianabot-auctions/internal/notify"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// Engine coordinates auction lifecycle and bid concurrency. All mutation of
// a given auction happens under that auction's lock; bids on different
// auctions proceed in parallel.
type Engine struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	repos     *store.Repositories
	ledger    ledger.Ledger
	access    access.Checker
	deliverer delivery.Deliverer
	emitter   *notify.Emitter
	views     cache.ViewCache
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     clock.Clock
	cfg       config.EngineConfig
}

// NewEngine creates an Engine.
func NewEngine(
	repos *store.Repositories,
	lgr ledger.Ledger,
	checker access.Checker,
	deliverer delivery.Deliverer,
	emitter *notify.Emitter,
	views cache.ViewCache,
	logger *slog.Logger,
	tp trace.TracerProvider,
	clk clock.Clock,
	cfg config.EngineConfig,
) *Engine {
	return &Engine{
		locks:     make(map[string]*sync.Mutex),
		repos:     repos,
		ledger:    lgr,
		access:    checker,
		deliverer: deliverer,
		emitter:   emitter,
		views:     views,
		logger:    logger,
		tracer:    tp.Tracer("github.com/carlostoek/dianabot-auctions/internal/auction"),
		clock:     clk,
		cfg:       cfg,
	}
}

// lockFor returns the serialization point for one auction.
func (e *Engine) lockFor(auctionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[auctionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[auctionID] = l
	}
	return l
}

// CreateAuction validates the spec, persists the auction and its items, and
// returns the created record. An auction whose start time has already
// passed goes straight to active.
func (e *Engine) CreateAuction(ctx context.Context, spec Spec) (*store.Auction, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.CreateAuction",
		trace.WithAttributes(
			attribute.String("title", spec.Title),
			attribute.String("kind", string(spec.Kind)),
		),
	)
	defer span.End()

	if spec.Title == "" {
		return nil, fmt.Errorf("auction title is required")
	}
	if spec.StartingPrice <= 0 {
		return nil, fmt.Errorf("starting price must be positive, got %d", spec.StartingPrice)
	}
	switch spec.Kind {
	case store.KindNormal, store.KindSealed, store.KindDutch, store.KindReserve:
	case "":
		spec.Kind = store.KindNormal
	default:
		return nil, fmt.Errorf("unknown auction kind %q", spec.Kind)
	}
	if spec.Kind == store.KindReserve && spec.ReservePrice == nil {
		return nil, fmt.Errorf("reserve auctions require a reserve price")
	}

	now := e.clock.Now().UTC()
	if spec.StartsAt.IsZero() {
		spec.StartsAt = now
	}
	if !spec.EndsAt.After(spec.StartsAt) {
		return nil, fmt.Errorf("ends_at %s must be after starts_at %s", spec.EndsAt, spec.StartsAt)
	}
	if spec.MinIncrement <= 0 {
		spec.MinIncrement = e.cfg.DefaultMinIncrement
	}
	if spec.AutoExtend && spec.ExtensionWindow <= 0 {
		spec.ExtensionWindow = e.cfg.DefaultExtensionWindow
	}

	status := store.StatusScheduled
	if !spec.StartsAt.After(now) {
		status = store.StatusActive
	}

	a := &store.Auction{
		Title:           spec.Title,
		Description:     spec.Description,
		Kind:            spec.Kind,
		Status:          status,
		StartingPrice:   spec.StartingPrice,
		ReservePrice:    spec.ReservePrice,
		CurrentPrice:    spec.StartingPrice,
		BuyoutPrice:     spec.BuyoutPrice,
		MinIncrement:    spec.MinIncrement,
		MaxIncrement:    spec.MaxIncrement,
		MinLevel:        spec.MinLevel,
		VIPOnly:         spec.VIPOnly,
		MaxParticipants: spec.MaxParticipants,
		StartsAt:        spec.StartsAt,
		EndsAt:          spec.EndsAt,
		AutoExtend:      spec.AutoExtend,
		ExtensionWindow: spec.ExtensionWindow,
		CreatedBy:       spec.CreatedBy,
	}
	if err := e.repos.Auctions.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating auction: %w", err)
	}

	for _, it := range spec.Items {
		item := &store.AuctionItem{
			AuctionID: a.ID,
			Kind:      it.Kind,
			Quantity:  it.Quantity,
			Payload:   it.Payload,
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if len(item.Payload) == 0 {
			item.Payload = json.RawMessage(`{}`)
		}
		if err := e.repos.Items.Create(ctx, item); err != nil {
			return nil, fmt.Errorf("creating auction item: %w", err)
		}
	}

	e.journal(ctx, a.ID, event.AuctionCreated, event.AuctionCreatedData{
		Title:         a.Title,
		Kind:          string(a.Kind),
		StartingPrice: a.StartingPrice,
		CreatedBy:     a.CreatedBy,
	}, 1)

	e.logger.InfoContext(ctx, "auction created",
		slog.String("auction_id", a.ID),
		slog.String("kind", string(a.Kind)),
		slog.String("status", string(a.Status)),
	)
	return a, nil
}

// PlaceBidRequest carries one bid submission. IdempotencyKey must be unique
// per logical submission; retries with the same key return the original
// result instead of creating a duplicate hold.
type PlaceBidRequest struct {
	AuctionID      string
	UserID         string
	Amount         int64
	IdempotencyKey string
	AutoBidCeiling *int64
}

// PlaceBid validates and accepts or rejects a bid. On rejection the
// returned Result still carries the price the caller must beat.
func (e *Engine) PlaceBid(ctx context.Context, req PlaceBidRequest) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.PlaceBid",
		trace.WithAttributes(
			attribute.String("auction_id", req.AuctionID),
			attribute.String("user_id", req.UserID),
			attribute.Int64("amount", req.Amount),
		),
	)
	defer span.End()

	lock := e.lockFor(req.AuctionID)
	lock.Lock()
	defer lock.Unlock()

	a, err := e.repos.Auctions.Get(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrAuctionNotFound
		}
		return Result{}, fmt.Errorf("loading auction: %w", err)
	}

	// Idempotency replay: a key that already produced an accepted bid
	// returns the original outcome without touching the ledger.
	if req.IdempotencyKey != "" {
		if prior, err := e.repos.Bids.GetByIdempotencyKey(ctx, req.IdempotencyKey); err == nil {
			return Result{
				BidID:        prior.ID,
				Accepted:     true,
				IsWinning:    prior.IsWinning,
				CurrentPrice: a.CurrentPrice,
				Duplicate:    true,
			}, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return Result{}, fmt.Errorf("checking idempotency key: %w", err)
		}
	}

	now := e.clock.Now().UTC()
	if !biddable(a, now) {
		return Result{CurrentPrice: a.CurrentPrice}, ErrAuctionNotBiddable
	}

	if err := e.checkAccess(ctx, a, req.UserID); err != nil {
		return Result{CurrentPrice: a.CurrentPrice}, err
	}

	winning, err := e.repos.Bids.Winning(ctx, a.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("loading winning bid: %w", err)
	}

	// Rejections carry the current price so the caller can retry without a
	// re-fetch; the minimum acceptable amount rides in the error message.
	if err := validateBid(a, winning, req.UserID, req.Amount, now); err != nil {
		return Result{CurrentPrice: a.CurrentPrice}, err
	}

	// Escrow the challenger's amount before anything is committed.
	holdID, err := e.ledger.Hold(ctx, req.UserID, req.Amount, req.AuctionID)
	if err != nil {
		return Result{CurrentPrice: a.CurrentPrice}, mapLedgerErr(err)
	}

	bid := &store.Bid{
		AuctionID:      a.ID,
		UserID:         req.UserID,
		Amount:         req.Amount,
		IsAutoBid:      req.AutoBidCeiling != nil,
		MaxAutoBid:     req.AutoBidCeiling,
		HoldID:         holdID,
		IdempotencyKey: req.IdempotencyKey,
	}

	// Proxy bidding: a standing auto-bid ceiling absorbs the challenge by
	// raising the existing winner instead of switching winners.
	if proxyApplies(a, winning, req) {
		return e.acceptAgainstProxy(ctx, a, winning, bid, now)
	}

	return e.acceptBid(ctx, a, winning, bid, now)
}

// checkAccess applies the auction's access rule plus the participant cap.
func (e *Engine) checkAccess(ctx context.Context, a *store.Auction, userID string) error {
	rule := access.Rule{
		MinLevel:        a.MinLevel,
		VIPOnly:         a.VIPOnly,
		MaxParticipants: a.MaxParticipants,
	}
	if err := e.access.CheckEligibility(ctx, userID, rule); err != nil {
		if errors.Is(err, access.ErrDenied) {
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		return fmt.Errorf("checking eligibility: %w", err)
	}

	if a.MaxParticipants > 0 {
		bids, err := e.repos.Bids.ListByAuction(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("listing bids for participant cap: %w", err)
		}
		seen := make(map[string]struct{})
		for _, b := range bids {
			seen[b.UserID] = struct{}{}
		}
		if _, already := seen[userID]; !already && len(seen) >= a.MaxParticipants {
			return fmt.Errorf("%w: participant cap %d reached", ErrAccessDenied, a.MaxParticipants)
		}
	}
	return nil
}

func proxyApplies(a *store.Auction, winning *store.Bid, req PlaceBidRequest) bool {
	if a.Kind == store.KindSealed || a.Kind == store.KindDutch {
		return false
	}
	return winning != nil && winning.MaxAutoBid != nil && req.Amount <= *winning.MaxAutoBid
}

// acceptBid commits a bid: flips the displaced winner, refunds its hold,
// updates the price, re-evaluates auto-extension, and short-circuits to
// ending when the bid hits buyout (or on any accepted dutch bid).
func (e *Engine) acceptBid(ctx context.Context, a *store.Auction, winning *store.Bid, bid *store.Bid, now time.Time) (Result, error) {
	// Sealed auctions keep every bidder's hold until the end; the only
	// hold released early is a bidder replacing their own earlier bid.
	if a.Kind == store.KindSealed {
		return e.acceptSealed(ctx, a, winning, bid, now)
	}

	// Demote the displaced winner before inserting the new winning bid;
	// the store allows at most one winning bid per auction.
	var displaced *store.Bid
	if winning != nil {
		winning.IsWinning = false
		if err := e.repos.Bids.Update(ctx, winning); err != nil {
			e.rollbackHold(ctx, bid.HoldID)
			return Result{}, fmt.Errorf("displacing winning bid: %w", err)
		}
		displaced = winning
	}

	bid.IsWinning = true
	if err := e.repos.Bids.Create(ctx, bid); err != nil {
		e.rollbackHold(ctx, bid.HoldID)
		if displaced != nil {
			displaced.IsWinning = true
			if uerr := e.repos.Bids.Update(ctx, displaced); uerr != nil {
				e.logger.ErrorContext(ctx, "failed to restore displaced bid",
					slog.String("bid_id", displaced.ID),
					slog.Any("error", uerr),
				)
			}
		}
		return Result{}, fmt.Errorf("creating bid: %w", err)
	}

	// Refund the displaced hold. The bid is marked refunded only once the
	// release lands, so a failed release stays visible to settlement.
	if displaced != nil {
		if err := e.ledger.Release(ctx, displaced.HoldID); err != nil {
			return Result{}, fmt.Errorf("%w: releasing displaced hold: %v", ErrLedgerUnavailable, err)
		}
		displaced.IsRefunded = true
		if err := e.repos.Bids.Update(ctx, displaced); err != nil {
			return Result{}, fmt.Errorf("marking displaced bid refunded: %w", err)
		}
	}

	a.CurrentPrice = bid.Amount
	a.WinningBidID = &bid.ID

	if endsImmediately(a, bid.Amount) {
		e.afterAccept(ctx, a, bid, displaced, false)
		if err := e.endLocked(ctx, a, bid); err != nil {
			return Result{BidID: bid.ID, Accepted: true, IsWinning: true, CurrentPrice: a.CurrentPrice}, err
		}
		return Result{BidID: bid.ID, Accepted: true, IsWinning: true, CurrentPrice: a.CurrentPrice}, nil
	}

	extended := extendIfNeeded(a, now)
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return Result{}, fmt.Errorf("updating auction price: %w", err)
	}

	e.afterAccept(ctx, a, bid, displaced, extended)

	return Result{BidID: bid.ID, Accepted: true, IsWinning: true, CurrentPrice: a.CurrentPrice}, nil
}

// acceptSealed records a sealed bid. A bidder's newer bid replaces their
// earlier one; the internal winner tracks the highest amount (earliest bid
// wins ties) but is never revealed before the auction ends.
func (e *Engine) acceptSealed(ctx context.Context, a *store.Auction, winning *store.Bid, bid *store.Bid, now time.Time) (Result, error) {
	bids, err := e.repos.Bids.ListByAuction(ctx, a.ID)
	if err != nil {
		e.rollbackHold(ctx, bid.HoldID)
		return Result{}, fmt.Errorf("listing sealed bids: %w", err)
	}

	// Demote the current leader before inserting a new winning bid; the
	// store allows at most one winning bid per auction.
	bid.IsWinning = winning == nil || bid.Amount > winning.Amount
	if bid.IsWinning && winning != nil {
		winning.IsWinning = false
		if err := e.repos.Bids.Update(ctx, winning); err != nil {
			e.rollbackHold(ctx, bid.HoldID)
			return Result{}, fmt.Errorf("demoting sealed leader: %w", err)
		}
	}

	if err := e.repos.Bids.Create(ctx, bid); err != nil {
		e.rollbackHold(ctx, bid.HoldID)
		if bid.IsWinning && winning != nil {
			winning.IsWinning = true
			if uerr := e.repos.Bids.Update(ctx, winning); uerr != nil {
				e.logger.ErrorContext(ctx, "failed to restore sealed leader",
					slog.String("bid_id", winning.ID),
					slog.Any("error", uerr),
				)
			}
		}
		return Result{}, fmt.Errorf("creating sealed bid: %w", err)
	}

	// Replace the bidder's own earlier bid, if any. The replaced bid is
	// marked refunded only once the release lands.
	for i := range bids {
		prev := &bids[i]
		if prev.UserID != bid.UserID || prev.IsRefunded {
			continue
		}
		wasWinning := prev.IsWinning
		prev.IsWinning = false
		if err := e.repos.Bids.Update(ctx, prev); err != nil {
			return Result{}, fmt.Errorf("replacing earlier sealed bid: %w", err)
		}
		if err := e.ledger.Release(ctx, prev.HoldID); err != nil {
			return Result{}, fmt.Errorf("%w: releasing replaced hold: %v", ErrLedgerUnavailable, err)
		}
		prev.IsRefunded = true
		if err := e.repos.Bids.Update(ctx, prev); err != nil {
			return Result{}, fmt.Errorf("replacing earlier sealed bid: %w", err)
		}
		// The replaced bid may have been the internal leader.
		if wasWinning && !bid.IsWinning {
			if err := e.promoteHighestSealed(ctx, a, bid); err != nil {
				return Result{}, err
			}
		}
	}

	if bid.IsWinning {
		a.CurrentPrice = bid.Amount
		a.WinningBidID = &bid.ID
	}

	extended := extendIfNeeded(a, now)
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return Result{}, fmt.Errorf("updating auction: %w", err)
	}

	e.journal(ctx, a.ID, event.AuctionBidPlaced, event.BidPlacedData{
		BidID:     bid.ID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
		IsAutoBid: bid.IsAutoBid,
	}, 0)
	if extended {
		e.journal(ctx, a.ID, event.AuctionExtended, event.ExtendedData{EndsAt: a.EndsAt}, 0)
	}
	e.invalidateView(ctx, a.ID)

	// Sealed bids are never broadcast and never produce outbid events.
	return Result{BidID: bid.ID, Accepted: true, IsWinning: bid.IsWinning, CurrentPrice: a.StartingPrice}, nil
}

// promoteHighestSealed re-elects the internal sealed leader after the
// previous leader's bid was replaced by a lower one.
func (e *Engine) promoteHighestSealed(ctx context.Context, a *store.Auction, justCreated *store.Bid) error {
	bids, err := e.repos.Bids.ListByAuction(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("re-electing sealed leader: %w", err)
	}
	var best *store.Bid
	for i := range bids {
		b := &bids[i]
		if b.IsRefunded {
			continue
		}
		if best == nil || b.Amount > best.Amount {
			best = b
		}
	}
	if best == nil {
		a.WinningBidID = nil
		a.CurrentPrice = a.StartingPrice
		return nil
	}
	if !best.IsWinning {
		best.IsWinning = true
		if err := e.repos.Bids.Update(ctx, best); err != nil {
			return fmt.Errorf("promoting sealed leader: %w", err)
		}
	}
	a.WinningBidID = &best.ID
	a.CurrentPrice = best.Amount
	return nil
}

// acceptAgainstProxy handles a challenge that falls within the standing
// winner's auto-bid ceiling: the challenger's bid is recorded and refunded
// immediately, and the winner's bid is raised to cover it. This is the only
// case where a bid amount changes after creation.
func (e *Engine) acceptAgainstProxy(ctx context.Context, a *store.Auction, winning *store.Bid, bid *store.Bid, now time.Time) (Result, error) {
	raised := bid.Amount + a.MinIncrement
	if raised > *winning.MaxAutoBid {
		raised = *winning.MaxAutoBid
	}
	if raised < winning.Amount {
		raised = winning.Amount
	}

	// Re-escrow the proxy winner at the raised amount before touching the
	// old hold. If their balance no longer covers it, the challenger wins
	// the slot normally.
	newHold, err := e.ledger.Hold(ctx, winning.UserID, raised, a.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return e.acceptBid(ctx, a, winning, bid, now)
		}
		e.rollbackHold(ctx, bid.HoldID)
		return Result{CurrentPrice: a.CurrentPrice}, mapLedgerErr(err)
	}

	oldHold := winning.HoldID
	winning.Amount = raised
	winning.HoldID = newHold
	winning.IsAutoBid = true
	if err := e.repos.Bids.Update(ctx, winning); err != nil {
		e.rollbackHold(ctx, newHold)
		e.rollbackHold(ctx, bid.HoldID)
		return Result{}, fmt.Errorf("raising proxy bid: %w", err)
	}
	if err := e.ledger.Release(ctx, oldHold); err != nil {
		return Result{}, fmt.Errorf("%w: releasing superseded proxy hold: %v", ErrLedgerUnavailable, err)
	}

	// The challenger's bid is recorded but loses instantly. It is marked
	// refunded only once the release lands.
	bid.IsWinning = false
	if err := e.repos.Bids.Create(ctx, bid); err != nil {
		return Result{}, fmt.Errorf("creating challenger bid: %w", err)
	}
	if err := e.ledger.Release(ctx, bid.HoldID); err != nil {
		return Result{}, fmt.Errorf("%w: refunding challenger hold: %v", ErrLedgerUnavailable, err)
	}
	bid.IsRefunded = true
	if err := e.repos.Bids.Update(ctx, bid); err != nil {
		return Result{}, fmt.Errorf("marking challenger bid refunded: %w", err)
	}

	a.CurrentPrice = raised
	a.WinningBidID = &winning.ID
	extended := extendIfNeeded(a, now)
	if err := e.repos.Auctions.Update(ctx, a); err != nil {
		return Result{}, fmt.Errorf("updating auction after proxy raise: %w", err)
	}

	e.afterAccept(ctx, a, winning, bid, extended)

	return Result{BidID: bid.ID, Accepted: true, IsWinning: false, CurrentPrice: raised}, nil
}

// afterAccept journals and fans out notifications for an accepted bid.
func (e *Engine) afterAccept(ctx context.Context, a *store.Auction, accepted, displaced *store.Bid, extended bool) {
	e.journal(ctx, a.ID, event.AuctionBidPlaced, event.BidPlacedData{
		BidID:     accepted.ID,
		UserID:    accepted.UserID,
		Amount:    accepted.Amount,
		IsAutoBid: accepted.IsAutoBid,
	}, 0)
	if extended {
		e.journal(ctx, a.ID, event.AuctionExtended, event.ExtendedData{EndsAt: a.EndsAt}, 0)
	}

	e.emitter.Broadcast(ctx, notify.Notification{
		Type:         event.AuctionBidPlaced,
		AuctionID:    a.ID,
		UserID:       accepted.UserID,
		Amount:       accepted.Amount,
		CurrentPrice: a.CurrentPrice,
		EndsAt:       a.EndsAt,
	})
	if displaced != nil {
		e.journal(ctx, a.ID, event.AuctionOutbid, event.OutbidData{
			BidID:        displaced.ID,
			UserID:       displaced.UserID,
			CurrentPrice: a.CurrentPrice,
		}, 0)
		e.emitter.Emit(notify.Notification{
			Type:         event.AuctionOutbid,
			AuctionID:    a.ID,
			UserID:       displaced.UserID,
			CurrentPrice: a.CurrentPrice,
			EndsAt:       a.EndsAt,
		})
	}

	e.invalidateView(ctx, a.ID)

	e.logger.InfoContext(ctx, "bid accepted",
		slog.String("auction_id", a.ID),
		slog.String("user_id", accepted.UserID),
		slog.Int64("amount", accepted.Amount),
		slog.Int64("current_price", a.CurrentPrice),
	)
}

// rollbackHold releases a hold taken for a bid that was never committed.
func (e *Engine) rollbackHold(ctx context.Context, holdID string) {
	if err := e.ledger.Release(ctx, holdID); err != nil {
		e.logger.ErrorContext(ctx, "failed to roll back hold",
			slog.String("hold_id", holdID),
			slog.Any("error", err),
		)
	}
}

func mapLedgerErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	default:
		return err
	}
}

// journal appends a domain event; journal failures are logged, never fatal.
func (e *Engine) journal(ctx context.Context, aggregateID string, t event.Type, payload any, version int) {
	data, _ := json.Marshal(payload)
	evt := event.Event{
		AggregateID: aggregateID,
		Type:        t,
		Data:        data,
		Version:     version,
	}
	if err := e.repos.Events.Append(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "failed to append event",
			slog.String("type", string(t)),
			slog.String("aggregate_id", aggregateID),
			slog.Any("error", err),
		)
	}
}

func (e *Engine) invalidateView(ctx context.Context, auctionID string) {
	if err := e.views.Invalidate(ctx, auctionID); err != nil {
		e.logger.WarnContext(ctx, "view cache invalidation failed",
			slog.String("auction_id", auctionID),
			slog.Any("error", err),
		)
	}
}
