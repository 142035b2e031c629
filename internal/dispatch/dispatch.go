// Package dispatch assigns a unicorn to an authenticated rider and durably
// records the ride. Pure business logic: it never sees HTTP, and it reports
// typed failures only (domain.ErrInvalidInput, domain.ErrStorage).
package dispatch

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/fleet"
	"github.com/wildrydes/dispatch/internal/ledger"
	"github.com/wildrydes/dispatch/internal/observability/logger"
)

// Assignment is what the rider sees. It carries the generated RideId, the
// assigned unicorn, its drop-in point near the pickup, and an ETA in minutes.
type Assignment struct {
	RideID  string
	Unicorn domain.Unicorn
	DropIn  domain.Location
	Eta     float64
}

// Handler performs the assignment-and-persist contract.
//
// Each invocation is independent: no shared mutable state beyond the
// immutable fleet and the ledger behind its own interface, so arbitrarily
// many concurrent invocations are safe.
type Handler struct {
	Fleet  *fleet.Fleet
	Ledger ledger.Store

	// PutTimeout bounds the ledger write. A timed-out put surfaces as
	// domain.ErrStorage, never a hang.
	PutTimeout time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// New builds a handler with its own offset RNG.
func New(f *fleet.Fleet, l ledger.Store, putTimeout time.Duration) *Handler {
	if putTimeout <= 0 {
		putTimeout = 3 * time.Second
	}
	return &Handler{
		Fleet:      f,
		Ledger:     l,
		PutTimeout: putTimeout,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handle assigns a ride for riderID at pickup and writes it to the ledger.
//
// The write is issued on a context detached from the caller's cancellation:
// a client disconnecting mid-request does not abort an in-flight write. The
// write completes or fails on its own timeout, so there is at most one side
// effect per accepted request.
//
// Retried client requests produce new rides; no idempotency key is threaded
// through this contract.
func (h *Handler) Handle(ctx context.Context, riderID string, pickup domain.Location) (*Assignment, error) {
	if riderID == "" {
		return nil, fmt.Errorf("%w: missing rider", domain.ErrInvalidInput)
	}
	if err := validateLocation(pickup); err != nil {
		return nil, err
	}

	unicorn := h.Fleet.Pick()
	dropIn := h.nearbyDropIn(pickup)
	eta := etaMinutes(pickup, dropIn)

	ride := &domain.Ride{
		RideID:         uuid.NewString(),
		RiderID:        riderID,
		PickupLocation: pickup,
		Unicorn:        unicorn,
		RequestTime:    time.Now().UTC(),
	}

	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.PutTimeout)
	defer cancel()
	if err := h.Ledger.Put(putCtx, ride); err != nil {
		logger.FromContext(ctx).Error("ledger put failed",
			logger.RideID(ride.RideID),
			logger.RiderID(riderID),
			logger.Err(err),
		)
		if domain.IsStorage(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	logger.FromContext(ctx).Info("ride dispatched",
		logger.RideID(ride.RideID),
		logger.RiderID(riderID),
		logger.UnicornName(unicorn.Name),
	)
	return &Assignment{
		RideID:  ride.RideID,
		Unicorn: unicorn,
		DropIn:  dropIn,
		Eta:     eta,
	}, nil
}

func validateLocation(l domain.Location) error {
	switch {
	case math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0),
		math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0):
		return fmt.Errorf("%w: non-finite coordinates", domain.ErrInvalidInput)
	case l.Latitude < -90 || l.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidInput, l.Latitude)
	case l.Longitude < -180 || l.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidInput, l.Longitude)
	}
	return nil
}

// nearbyDropIn offsets the pickup by up to ~0.01 degrees in each axis. The
// exact formula is presentational; riders just see the unicorn land close by.
func (h *Handler) nearbyDropIn(pickup domain.Location) domain.Location {
	h.mu.Lock()
	dlat := (h.rnd.Float64() - 0.5) * 0.02
	dlon := (h.rnd.Float64() - 0.5) * 0.02
	h.mu.Unlock()

	lat := clamp(pickup.Latitude+dlat, -90, 90)
	lon := pickup.Longitude + dlon
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return domain.Location{Latitude: lat, Longitude: lon}
}

// etaMinutes converts the drop-in offset to a flight time at unicorn cruising
// speed. Presentational, like the offset itself.
func etaMinutes(from, to domain.Location) float64 {
	dlat := (to.Latitude - from.Latitude) * 111.0 // km per degree latitude
	dlon := (to.Longitude - from.Longitude) * 111.0 * math.Cos(from.Latitude*math.Pi/180)
	km := math.Sqrt(dlat*dlat + dlon*dlon)
	const cruiseKmPerMin = 1.5
	eta := km / cruiseKmPerMin
	if eta < 0.5 {
		eta = 0.5
	}
	return math.Round(eta*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
