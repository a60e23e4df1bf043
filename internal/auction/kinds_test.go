package auction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/access"
	"github.com/carlostoek/dianabot-auctions/internal/auction"
	"github.com/carlostoek/dianabot-auctions/internal/event"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// --- buyout ---

func TestBuyout_EndsImmediately(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	buyout := int64(300)
	spec := defaultSpec()
	spec.BuyoutPrice = &buyout
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 100)
	res := f.bid(t, a.ID, "bob", 300)
	if !res.IsWinning {
		t.Fatal("buyout bid must win")
	}

	got := f.reload(t, a.ID)
	if got.Status != store.StatusEndedWon {
		t.Fatalf("got status %s, want %s", got.Status, store.StatusEndedWon)
	}
	if got.WinnerID == nil || *got.WinnerID != "bob" {
		t.Errorf("winner = %v, want bob", got.WinnerID)
	}

	// Payment captured, loser refunded, items delivered.
	if got := f.balance(t, "bob"); got != 700 {
		t.Errorf("bob balance = %d, want 700 after capture", got)
	}
	if got := f.balance(t, "alice"); got != 1000 {
		t.Errorf("alice balance = %d, want 1000 after refund", got)
	}
	if items := f.deliverer.Delivered(a.ID); len(items) != 1 {
		t.Errorf("delivered %d items, want 1", len(items))
	}
}

func TestBuyout_RejectedAfterEnd(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	buyout := int64(300)
	spec := defaultSpec()
	spec.BuyoutPrice = &buyout
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 300)

	_, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "bob", Amount: 400,
	})
	if !errors.Is(err, auction.ErrAuctionNotBiddable) {
		t.Errorf("bid after buyout: got %v, want ErrAuctionNotBiddable", err)
	}
}

func TestBuyout_EmitsBidEvents(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	buyout := int64(300)
	spec := defaultSpec()
	spec.BuyoutPrice = &buyout
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 100)
	f.bid(t, a.ID, "bob", 300)

	// The buyout bid ends the auction but is still a placed bid: it must
	// journal like any other acceptance, and alice must learn she lost
	// the slot before the ended notice.
	if n := f.countEvents(t, a.ID, event.AuctionBidPlaced); n != 2 {
		t.Errorf("got %d bid_placed events, want 2", n)
	}
	if n := f.countEvents(t, a.ID, event.AuctionOutbid); n != 1 {
		t.Errorf("got %d outbid events, want 1", n)
	}
	if n := f.countEvents(t, a.ID, event.AuctionEnded); n != 1 {
		t.Errorf("got %d ended events, want 1", n)
	}
}

// --- reserve ---

func TestReserve_NotMet(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)

	reserve := int64(500)
	spec := defaultSpec()
	spec.Kind = store.KindReserve
	spec.ReservePrice = &reserve
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 200)

	f.clk.Advance(2 * time.Hour)
	if err := f.engine.EndAuction(context.Background(), a.ID); err != nil {
		t.Fatalf("EndAuction() error = %v", err)
	}

	got := f.reload(t, a.ID)
	if got.Status != store.StatusEndedReserve {
		t.Fatalf("got status %s, want %s", got.Status, store.StatusEndedReserve)
	}
	if got.WinnerID != nil {
		t.Errorf("reserve-not-met must have no winner, got %v", *got.WinnerID)
	}
	if got := f.balance(t, "alice"); got != 1000 {
		t.Errorf("alice balance = %d, want full refund", got)
	}
	if items := f.deliverer.Delivered(a.ID); len(items) != 0 {
		t.Error("no items may be delivered when the reserve is not met")
	}
}

func TestReserve_Met(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)

	reserve := int64(500)
	spec := defaultSpec()
	spec.Kind = store.KindReserve
	spec.ReservePrice = &reserve
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 500)

	f.clk.Advance(2 * time.Hour)
	if err := f.engine.EndAuction(context.Background(), a.ID); err != nil {
		t.Fatalf("EndAuction() error = %v", err)
	}

	got := f.reload(t, a.ID)
	if got.Status != store.StatusEndedWon {
		t.Fatalf("got status %s, want %s", got.Status, store.StatusEndedWon)
	}
	if got := f.balance(t, "alice"); got != 500 {
		t.Errorf("alice balance = %d, want 500 after capture", got)
	}
}

// --- dutch ---

func TestDutch_AskingPriceDecays(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 2000)

	spec := defaultSpec()
	spec.Kind = store.KindDutch
	spec.StartingPrice = 1000
	spec.EndsAt = testStart.Add(100 * time.Minute)
	a := f.create(t, spec)

	// Halfway through, the asking price has dropped linearly toward the
	// floor (the min increment, since no reserve price is set).
	f.clk.Advance(50 * time.Minute)

	_, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 400,
	})
	if !errors.Is(err, auction.ErrBidTooLow) {
		t.Fatalf("bid below asking: got %v, want ErrBidTooLow", err)
	}

	res := f.bid(t, a.ID, "alice", 505)
	if !res.IsWinning {
		t.Fatal("dutch bid at asking price must win")
	}

	got := f.reload(t, a.ID)
	if got.Status != store.StatusEndedWon {
		t.Fatalf("got status %s, want immediate end", got.Status)
	}
	if got.CurrentPrice != 505 {
		t.Errorf("got price %d, want 505", got.CurrentPrice)
	}
	if got := f.balance(t, "alice"); got != 2000-505 {
		t.Errorf("alice balance = %d, want %d", got, 2000-505)
	}
}

func TestDutch_ReserveFloor(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 2000)

	floor := int64(600)
	spec := defaultSpec()
	spec.Kind = store.KindDutch
	spec.StartingPrice = 1000
	spec.ReservePrice = &floor
	spec.EndsAt = testStart.Add(100 * time.Minute)
	a := f.create(t, spec)

	// Even at the very end the price never drops below the floor.
	f.clk.Advance(99 * time.Minute)
	_, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 599,
	})
	if !errors.Is(err, auction.ErrBidTooLow) {
		t.Fatalf("bid below floor: got %v, want ErrBidTooLow", err)
	}

	res := f.bid(t, a.ID, "alice", 610)
	if !res.IsWinning {
		t.Fatal("bid above floor must win")
	}
	if got := f.reload(t, a.ID).Status; got != store.StatusEndedWon {
		t.Errorf("got status %s, want %s", got, store.StatusEndedWon)
	}
}

// --- sealed ---

func TestSealed_HoldsKeptAndHighestWins(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	spec := defaultSpec()
	spec.Kind = store.KindSealed
	a := f.create(t, spec)

	resA := f.bid(t, a.ID, "alice", 150)
	resB := f.bid(t, a.ID, "bob", 120)

	// Sealed results never reveal the running high bid.
	if resA.CurrentPrice != 100 || resB.CurrentPrice != 100 {
		t.Errorf("sealed results leak price: %d, %d", resA.CurrentPrice, resB.CurrentPrice)
	}

	view, err := f.engine.GetAuctionState(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.CurrentPrice != 100 {
		t.Errorf("sealed view price = %d, want starting price 100", view.CurrentPrice)
	}

	// Both holds stay in place until the auction ends.
	if got := f.ledger.ActiveHoldTotal("alice"); got != 150 {
		t.Errorf("alice active holds = %d, want 150", got)
	}
	if got := f.ledger.ActiveHoldTotal("bob"); got != 120 {
		t.Errorf("bob active holds = %d, want 120", got)
	}

	f.clk.Advance(2 * time.Hour)
	if err := f.engine.EndAuction(context.Background(), a.ID); err != nil {
		t.Fatalf("EndAuction() error = %v", err)
	}

	got := f.reload(t, a.ID)
	if got.Status != store.StatusEndedWon {
		t.Fatalf("got status %s, want %s", got.Status, store.StatusEndedWon)
	}
	if got.WinnerID == nil || *got.WinnerID != "alice" {
		t.Errorf("winner = %v, want alice", got.WinnerID)
	}
	if got := f.balance(t, "alice"); got != 850 {
		t.Errorf("alice balance = %d, want 850", got)
	}
	if got := f.balance(t, "bob"); got != 1000 {
		t.Errorf("bob balance = %d, want full refund", got)
	}
}

func TestSealed_RebidReplacesOwnBid(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	spec := defaultSpec()
	spec.Kind = store.KindSealed
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 150)
	f.bid(t, a.ID, "bob", 120)

	// Alice lowers her own bid; the old hold is released and the internal
	// leader is re-elected among live bids.
	f.bid(t, a.ID, "alice", 130)
	if got := f.ledger.ActiveHoldTotal("alice"); got != 130 {
		t.Errorf("alice active holds = %d, want only the newest bid 130", got)
	}

	f.clk.Advance(2 * time.Hour)
	if err := f.engine.EndAuction(context.Background(), a.ID); err != nil {
		t.Fatalf("EndAuction() error = %v", err)
	}

	got := f.reload(t, a.ID)
	if got.WinnerID == nil || *got.WinnerID != "alice" {
		t.Fatalf("winner = %v, want alice at 130", got.WinnerID)
	}
	if got.CurrentPrice != 130 {
		t.Errorf("final price = %d, want 130", got.CurrentPrice)
	}
	if got := f.balance(t, "alice"); got != 870 {
		t.Errorf("alice balance = %d, want 870", got)
	}
}

func TestSealed_SameUserCanOutbidThemselves(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)

	spec := defaultSpec()
	spec.Kind = store.KindSealed
	a := f.create(t, spec)

	f.bid(t, a.ID, "alice", 110)
	// No ErrAlreadyHighestBidder for sealed: a newer bid replaces the old.
	res := f.bid(t, a.ID, "alice", 140)
	if !res.Accepted {
		t.Fatal("sealed rebid must be accepted")
	}
	if got := f.ledger.ActiveHoldTotal("alice"); got != 140 {
		t.Errorf("alice active holds = %d, want 140", got)
	}
}

// --- proxy bidding ---

func TestProxy_AbsorbsChallenge(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	a := f.create(t, defaultSpec())

	ceiling := int64(200)
	if _, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 100, AutoBidCeiling: &ceiling,
	}); err != nil {
		t.Fatalf("auto-bid error = %v", err)
	}

	res, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "bob", Amount: 150,
	})
	if err != nil {
		t.Fatalf("challenge error = %v", err)
	}
	if !res.Accepted || res.IsWinning {
		t.Fatalf("challenge within ceiling: got %+v, want accepted but not winning", res)
	}
	if res.CurrentPrice != 160 {
		t.Errorf("price = %d, want challenge + increment 160", res.CurrentPrice)
	}

	// Alice still winning at the raised amount, bob fully refunded.
	winning, err := f.repos.Bids.Winning(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if winning.UserID != "alice" || winning.Amount != 160 {
		t.Errorf("winning = %s@%d, want alice@160", winning.UserID, winning.Amount)
	}
	if got := f.ledger.ActiveHoldTotal("alice"); got != 160 {
		t.Errorf("alice active holds = %d, want 160", got)
	}
	if got := f.balance(t, "bob"); got != 1000 {
		t.Errorf("bob balance = %d, want full refund", got)
	}
}

func TestProxy_JournalsSingleRaise(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	a := f.create(t, defaultSpec())

	ceiling := int64(200)
	if _, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 100, AutoBidCeiling: &ceiling,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "bob", Amount: 150,
	}); err != nil {
		t.Fatal(err)
	}

	// One entry for alice's original bid and one for the automatic raise;
	// the absorbed challenger shows up as outbid, not as a second raise.
	if n := f.countEvents(t, a.ID, event.AuctionBidPlaced); n != 2 {
		t.Errorf("got %d bid_placed events, want 2", n)
	}
	if n := f.countEvents(t, a.ID, event.AuctionOutbid); n != 1 {
		t.Errorf("got %d outbid events, want 1", n)
	}
}

func TestProxy_CeilingClamped(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	a := f.create(t, defaultSpec())

	ceiling := int64(200)
	if _, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 100, AutoBidCeiling: &ceiling,
	}); err != nil {
		t.Fatal(err)
	}

	// Challenge + increment would be 205; the raise stops at the ceiling.
	res, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "bob", Amount: 195,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentPrice != 200 {
		t.Errorf("price = %d, want clamped ceiling 200", res.CurrentPrice)
	}
}

func TestProxy_BeatenAboveCeiling(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	f.ledger.Credit("alice", 1000)
	f.ledger.Credit("bob", 1000)

	a := f.create(t, defaultSpec())

	ceiling := int64(200)
	if _, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 100, AutoBidCeiling: &ceiling,
	}); err != nil {
		t.Fatal(err)
	}

	res := f.bid(t, a.ID, "bob", 250)
	if !res.IsWinning {
		t.Fatal("bid above the ceiling must take the lead")
	}
	if got := f.balance(t, "alice"); got != 1000 {
		t.Errorf("alice balance = %d, want full refund", got)
	}
}

func TestProxy_InsufficientFundsFallsThrough(t *testing.T) {
	f := newFixture(t, access.AllowAll{})
	// Alice can cover her opening bid but not a raise.
	f.ledger.Credit("alice", 160)
	f.ledger.Credit("bob", 1000)

	a := f.create(t, defaultSpec())

	ceiling := int64(200)
	if _, err := f.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: a.ID, UserID: "alice", Amount: 100, AutoBidCeiling: &ceiling,
	}); err != nil {
		t.Fatal(err)
	}

	// Raise to 130 would exceed alice's remaining 60: bob wins normally.
	res := f.bid(t, a.ID, "bob", 120)
	if !res.IsWinning {
		t.Fatal("challenger must win when the proxy cannot cover the raise")
	}
	if got := f.balance(t, "alice"); got != 160 {
		t.Errorf("alice balance = %d, want full refund 160", got)
	}
	winning, err := f.repos.Bids.Winning(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if winning.UserID != "bob" || winning.Amount != 120 {
		t.Errorf("winning = %s@%d, want bob@120", winning.UserID, winning.Amount)
	}
}
