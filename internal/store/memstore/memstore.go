// Package memstore provides a store.Driver holding all records in process
// memory. It backs unit tests and local runs without Postgres; the engine's
// per-auction lock provides the same serialization guarantees either way.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carlostoek/dianabot-auctions/internal/clock"
	"github.com/carlostoek/dianabot-auctions/internal/config"
	"github.com/carlostoek/dianabot-auctions/internal/event"
	"github.com/carlostoek/dianabot-auctions/internal/store"
)

func init() {
	store.Register("memory", openMemory)
}

func openMemory(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return New(clk), nil
}

// New returns memory-backed Repositories. Exported so tests can construct a
// store without going through the driver registry.
func New(clk clock.Clock) *store.Repositories {
	s := &state{
		clk:      clk,
		auctions: make(map[string]store.Auction),
		bids:     make(map[string]store.Bid),
		items:    make(map[string]store.AuctionItem),
		watches:  make(map[string]store.Watch),
		users:    make(map[string]store.User),
	}
	return &store.Repositories{
		Auctions: &auctionRepo{s},
		Bids:     &bidRepo{s},
		Items:    &itemRepo{s},
		Watches:  &watchRepo{s},
		Users:    &userRepo{s},
		Events:   &eventStore{s: s},
		Closer:   nopCloser{},
		Ping:     func(ctx context.Context) error { return nil },
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type state struct {
	mu       sync.RWMutex
	clk      clock.Clock
	auctions map[string]store.Auction
	bids     map[string]store.Bid
	items    map[string]store.AuctionItem
	watches  map[string]store.Watch
	users    map[string]store.User
	events   []event.Event
}

type auctionRepo struct{ s *state }

func (r *auctionRepo) Create(ctx context.Context, a *store.Auction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.clk.Now().UTC()
	a.Version = 1
	r.s.auctions[a.ID] = *a
	return nil
}

func (r *auctionRepo) Get(ctx context.Context, id string) (*store.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.auctions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r *auctionRepo) Update(ctx context.Context, a *store.Auction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.auctions[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != a.Version {
		return store.ErrNotFound
	}
	a.Version++
	r.s.auctions[a.ID] = *a
	return nil
}

func (r *auctionRepo) ListByStatus(ctx context.Context, statuses ...store.Status) ([]store.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := make(map[store.Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var out []store.Auction
	for _, a := range r.s.auctions {
		if _, ok := want[a.Status]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type bidRepo struct{ s *state }

func (r *bidRepo) Create(ctx context.Context, b *store.Bid) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = r.s.clk.Now().UTC()
	r.s.bids[b.ID] = *b
	return nil
}

func (r *bidRepo) Update(ctx context.Context, b *store.Bid) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bids[b.ID]; !ok {
		return store.ErrNotFound
	}
	r.s.bids[b.ID] = *b
	return nil
}

func (r *bidRepo) Get(ctx context.Context, id string) (*store.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (r *bidRepo) GetByIdempotencyKey(ctx context.Context, key string) (*store.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bids {
		if b.IdempotencyKey == key {
			bid := b
			return &bid, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *bidRepo) Winning(ctx context.Context, auctionID string) (*store.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bids {
		if b.AuctionID == auctionID && b.IsWinning {
			bid := b
			return &bid, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *bidRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []store.Bid
	for _, b := range r.s.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *bidRepo) CountBidders(ctx context.Context, auctionID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, b := range r.s.bids {
		if b.AuctionID == auctionID {
			seen[b.UserID] = struct{}{}
		}
	}
	return len(seen), nil
}

type itemRepo struct{ s *state }

func (r *itemRepo) Create(ctx context.Context, it *store.AuctionItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	r.s.items[it.ID] = *it
	return nil
}

func (r *itemRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.AuctionItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []store.AuctionItem
	for _, it := range r.s.items {
		if it.AuctionID == auctionID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *itemRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	it.IsDelivered = true
	it.DeliveredAt = &at
	r.s.items[id] = it
	return nil
}

type watchRepo struct{ s *state }

func (r *watchRepo) Create(ctx context.Context, w *store.Watch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.watches {
		if existing.AuctionID == w.AuctionID && existing.UserID == w.UserID {
			*w = existing
			return nil
		}
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = r.s.clk.Now().UTC()
	r.s.watches[w.ID] = *w
	return nil
}

func (r *watchRepo) Delete(ctx context.Context, auctionID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, w := range r.s.watches {
		if w.AuctionID == auctionID && w.UserID == userID {
			delete(r.s.watches, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *watchRepo) ListByAuction(ctx context.Context, auctionID string) ([]store.Watch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []store.Watch
	for _, w := range r.s.watches {
		if w.AuctionID == auctionID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *watchRepo) DeleteByAuction(ctx context.Context, auctionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, w := range r.s.watches {
		if w.AuctionID == auctionID {
			delete(r.s.watches, id)
		}
	}
	return nil
}

type userRepo struct{ s *state }

func (r *userRepo) Create(ctx context.Context, u *store.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.s.clk.Now().UTC()
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*store.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

type eventStore struct {
	s *state
}

func (e *eventStore) Append(ctx context.Context, events ...event.Event) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	for _, evt := range events {
		if evt.ID == "" {
			evt.ID = uuid.NewString()
		}
		evt.CreatedAt = e.s.clk.Now().UTC()
		e.s.events = append(e.s.events, evt)
	}
	return nil
}

func (e *eventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	var out []event.Event
	for _, evt := range e.s.events {
		if evt.AggregateID == aggregateID {
			out = append(out, evt)
		}
	}
	return out, nil
}
