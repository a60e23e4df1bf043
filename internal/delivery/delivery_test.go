package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/delivery"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// countingDeliverer fails with the given error until attempts run out.
type countingDeliverer struct {
	calls    atomic.Int64
	failures int64
	err      error
}

func (d *countingDeliverer) Deliver(_ context.Context, _, _ string, _ []store.AuctionItem) error {
	if d.calls.Add(1) <= d.failures {
		return d.err
	}
	return nil
}

func TestRetrying_RetriesTransientFailures(t *testing.T) {
	inner := &countingDeliverer{failures: 2, err: fmt.Errorf("%w: broker gone", delivery.ErrRetryable)}
	r := delivery.WithRetry(inner, 10*time.Second)

	err := r.Deliver(context.Background(), "a1", "alice", nil)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("got %d attempts, want 3", got)
	}
}

func TestRetrying_PermanentFailureStops(t *testing.T) {
	inner := &countingDeliverer{failures: 10, err: errors.New("winner has no inventory slot")}
	r := delivery.WithRetry(inner, 10*time.Second)

	err := r.Deliver(context.Background(), "a1", "alice", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("got %d attempts, want 1 for a permanent failure", got)
	}
}

func TestRecorder(t *testing.T) {
	rec := delivery.NewRecorder()
	items := []store.AuctionItem{{ID: "i1", AuctionID: "a1", Kind: "content_pack"}}

	if err := rec.Deliver(context.Background(), "a1", "alice", items); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if got := rec.Delivered("a1"); len(got) != 1 || got[0].ID != "i1" {
		t.Errorf("Delivered() = %+v", got)
	}

	rec.FailWith = errors.New("down")
	if err := rec.Deliver(context.Background(), "a2", "bob", items); err == nil {
		t.Error("expected injected failure")
	}
	if got := rec.Delivered("a2"); len(got) != 0 {
		t.Error("failed delivery must not be recorded")
	}
}
