package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// Emitter fans out notifications to the port and to every watcher of the
// affected auction. Emit enqueues and returns immediately; when the queue is
// full the notification is dropped and counted.
type Emitter struct {
	port    Port
	watches store.WatchRepository
	logger  *slog.Logger
	queue   chan Notification
	dropped atomic.Int64
}

// NewEmitter creates an Emitter with the given queue size.
func NewEmitter(port Port, watches store.WatchRepository, logger *slog.Logger, buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Emitter{
		port:    port,
		watches: watches,
		logger:  logger,
		queue:   make(chan Notification, buffer),
	}
}

// Run consumes the queue until ctx is cancelled. Call it in its own goroutine.
func (e *Emitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-e.queue:
			if err := e.port.Publish(ctx, n); err != nil {
				e.logger.WarnContext(ctx, "notification publish failed",
					slog.String("type", string(n.Type)),
					slog.String("auction_id", n.AuctionID),
					slog.Any("error", err),
				)
			}
		}
	}
}

// Emit enqueues a single notification without blocking.
func (e *Emitter) Emit(n Notification) {
	select {
	case e.queue <- n:
	default:
		e.dropped.Add(1)
	}
}

// Broadcast enqueues one notification per watcher of the auction. Watcher
// lookup failures are logged and swallowed; they never affect the caller.
func (e *Emitter) Broadcast(ctx context.Context, n Notification) {
	watches, err := e.watches.ListByAuction(ctx, n.AuctionID)
	if err != nil {
		e.logger.WarnContext(ctx, "listing watchers failed",
			slog.String("auction_id", n.AuctionID),
			slog.Any("error", err),
		)
		return
	}
	for _, w := range watches {
		if w.UserID == n.UserID {
			continue // the actor already gets a direct notification
		}
		out := n
		out.UserID = w.UserID
		e.Emit(out)
	}
}

// Dropped returns the number of notifications discarded due to a full queue.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}
