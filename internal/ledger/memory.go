package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type holdState int

const (
	holdActive holdState = iota
	holdReleased
	holdCaptured
)

type hold struct {
	userID string
	amount int64
	ref    string
	state  holdState
}

// Memory is an in-process Ledger used in tests and single-node deployments.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
	holds    map[string]*hold
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]int64),
		holds:    make(map[string]*hold),
	}
}

// Credit adds besitos to a user's balance.
func (m *Memory) Credit(userID string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
}

func (m *Memory) Hold(ctx context.Context, userID string, amount int64, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[userID] < amount {
		return "", ErrInsufficientFunds
	}
	m.balances[userID] -= amount

	id := uuid.NewString()
	m.holds[id] = &hold{userID: userID, amount: amount, ref: ref, state: holdActive}
	return id, nil
}

func (m *Memory) Release(ctx context.Context, holdID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return ErrHoldNotFound
	}
	if h.state != holdActive {
		return nil
	}
	h.state = holdReleased
	m.balances[h.userID] += h.amount
	return nil
}

func (m *Memory) Capture(ctx context.Context, holdID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return ErrHoldNotFound
	}
	switch h.state {
	case holdCaptured:
		return nil
	case holdReleased:
		return ErrHoldNotFound
	}
	// Funds were deducted at hold time; capture just finalizes.
	h.state = holdCaptured
	return nil
}

func (m *Memory) Balance(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

// ActiveHoldTotal sums the active holds for a user. Test helper.
func (m *Memory) ActiveHoldTotal(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, h := range m.holds {
		if h.userID == userID && h.state == holdActive {
			total += h.amount
		}
	}
	return total
}
