package gateway

import (
	"context"
	"time"

	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/ledger"
)

// InstrumentLedger wraps a ledger.Store with latency metrics per operation.
func InstrumentLedger(s ledger.Store) ledger.Store {
	return &instrumentedLedger{inner: s}
}

type instrumentedLedger struct {
	inner ledger.Store
}

func (l *instrumentedLedger) Put(ctx context.Context, ride *domain.Ride) error {
	start := time.Now()
	err := l.inner.Put(ctx, ride)
	ObserveLedgerOp("put", time.Since(start))
	return err
}

func (l *instrumentedLedger) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	start := time.Now()
	ride, err := l.inner.Get(ctx, rideID)
	ObserveLedgerOp("get", time.Since(start))
	return ride, err
}

func (l *instrumentedLedger) Ping(ctx context.Context) error { return l.inner.Ping(ctx) }

func (l *instrumentedLedger) Close() { l.inner.Close() }
