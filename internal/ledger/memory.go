package ledger

import (
	"context"
	"sync"

	"github.com/wildrydes/dispatch/internal/domain"
)

// Memory is the in-process ledger for dev and tests.
type Memory struct {
	mu    sync.RWMutex
	rides map[string]domain.Ride

	// FailPuts makes every Put fail with a storage error. Test hook for the
	// 502 path.
	FailPuts bool
}

func NewMemory() *Memory {
	return &Memory{rides: make(map[string]domain.Ride)}
}

func (m *Memory) Put(ctx context.Context, ride *domain.Ride) error {
	if err := ctx.Err(); err != nil {
		return storageErr("put", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts {
		return storageErr("put", errInjected)
	}
	m.rides[ride.RideID] = *ride
	return nil
}

func (m *Memory) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[rideID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() {}

// Len reports the number of stored rides. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

type injectedErr struct{}

func (injectedErr) Error() string { return "injected failure" }

var errInjected = injectedErr{}
