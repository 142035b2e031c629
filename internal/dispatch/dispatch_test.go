package dispatch

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/fleet"
	"github.com/wildrydes/dispatch/internal/ledger"
)

func newTestHandler(l ledger.Store) *Handler {
	return New(fleet.Default(), l, time.Second)
}

func TestHandle_Success(t *testing.T) {
	mem := ledger.NewMemory()
	h := newTestHandler(mem)

	pickup := domain.Location{Latitude: 47.6174, Longitude: -122.3419}
	a, err := h.Handle(context.Background(), "rider-1", pickup)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if a.RideID == "" {
		t.Fatal("empty ride id")
	}
	if a.Unicorn.Name == "" || a.Unicorn.Color == "" {
		t.Fatalf("incomplete unicorn: %+v", a.Unicorn)
	}
	if a.Eta < 0.5 {
		t.Fatalf("eta below floor: %v", a.Eta)
	}
	if math.Abs(a.DropIn.Latitude-pickup.Latitude) > 0.011 ||
		math.Abs(a.DropIn.Longitude-pickup.Longitude) > 0.011 {
		t.Fatalf("drop-in not near pickup: %+v", a.DropIn)
	}

	stored, err := mem.Get(context.Background(), a.RideID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RiderID != "rider-1" {
		t.Fatalf("rider id = %q, want rider-1", stored.RiderID)
	}
	if stored.PickupLocation != pickup {
		t.Fatalf("pickup = %+v, want %+v", stored.PickupLocation, pickup)
	}
	if stored.Unicorn.Name != a.Unicorn.Name {
		t.Fatalf("unicorn mismatch: %q vs %q", stored.Unicorn.Name, a.Unicorn.Name)
	}
	if stored.RequestTime.IsZero() {
		t.Fatal("zero request time")
	}
}

func TestHandle_EmptyRider(t *testing.T) {
	mem := ledger.NewMemory()
	h := newTestHandler(mem)

	_, err := h.Handle(context.Background(), "", domain.Location{Latitude: 1, Longitude: 1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("ledger written on invalid input: %d entries", mem.Len())
	}
}

func TestHandle_InvalidLocation(t *testing.T) {
	cases := []struct {
		name string
		loc  domain.Location
	}{
		{"lat too high", domain.Location{Latitude: 90.0001, Longitude: 0}},
		{"lat too low", domain.Location{Latitude: -91, Longitude: 0}},
		{"lon too high", domain.Location{Latitude: 0, Longitude: 180.5}},
		{"lon too low", domain.Location{Latitude: 0, Longitude: -181}},
		{"lat NaN", domain.Location{Latitude: math.NaN(), Longitude: 0}},
		{"lon Inf", domain.Location{Latitude: 0, Longitude: math.Inf(1)}},
	}
	mem := ledger.NewMemory()
	h := newTestHandler(mem)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), "rider-1", tc.loc)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if mem.Len() != 0 {
		t.Fatalf("ledger written on invalid input: %d entries", mem.Len())
	}
}

func TestHandle_BoundaryCoordinates(t *testing.T) {
	h := newTestHandler(ledger.NewMemory())
	for _, loc := range []domain.Location{
		{Latitude: 90, Longitude: 180},
		{Latitude: -90, Longitude: -180},
		{Latitude: 0, Longitude: 0},
	} {
		if _, err := h.Handle(context.Background(), "rider-1", loc); err != nil {
			t.Fatalf("boundary %+v rejected: %v", loc, err)
		}
	}
}

func TestHandle_StorageFailure(t *testing.T) {
	mem := ledger.NewMemory()
	mem.FailPuts = true
	h := newTestHandler(mem)

	_, err := h.Handle(context.Background(), "rider-1", domain.Location{Latitude: 1, Longitude: 1})
	if !domain.IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("failed put left %d entries", mem.Len())
	}
}

// The ledger write must survive the caller abandoning the request. A rider
// that disconnects after dispatch still gets a durable ride.
func TestHandle_WriteSurvivesCallerCancel(t *testing.T) {
	mem := ledger.NewMemory()
	h := newTestHandler(mem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, err := h.Handle(ctx, "rider-1", domain.Location{Latitude: 1, Longitude: 1})
	if err != nil {
		t.Fatalf("handle with cancelled caller: %v", err)
	}
	if _, err := mem.Get(context.Background(), a.RideID); err != nil {
		t.Fatalf("ride not durable after caller cancel: %v", err)
	}
}

func TestHandle_ConcurrentRideIDsUnique(t *testing.T) {
	const n = 10000
	mem := ledger.NewMemory()
	h := newTestHandler(mem)

	var (
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
		wg  sync.WaitGroup
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := h.Handle(context.Background(), "rider-1", domain.Location{Latitude: 10, Longitude: 20})
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			ids[a.RideID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent handle: %v", err)
	}
	if len(ids) != n {
		t.Fatalf("expected %d unique ride ids, got %d", n, len(ids))
	}
	if mem.Len() != n {
		t.Fatalf("expected %d ledger entries, got %d", n, mem.Len())
	}
}

func TestPickDistribution(t *testing.T) {
	h := newTestHandler(ledger.NewMemory())
	seen := make(map[string]int)
	for i := 0; i < 2000; i++ {
		a, err := h.Handle(context.Background(), "rider-1", domain.Location{Latitude: 5, Longitude: 5})
		if err != nil {
			t.Fatalf("handle: %v", err)
		}
		seen[a.Unicorn.Name]++
	}
	if len(seen) != fleet.Default().Size() {
		t.Fatalf("expected every unicorn to be picked, saw %d of %d", len(seen), fleet.Default().Size())
	}
}
