package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/offline"
	"github.com/campusgo/campusgo-backend/internal/store"
)

type notice struct {
	UserID string
	Event  string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (f *fakeNotifier) NotifyUser(userID, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{UserID: userID, Event: event})
}

func (f *fakeNotifier) NotifyDrivers(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{UserID: "*drivers*", Event: event})
}

func (f *fakeNotifier) has(userID, event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notices {
		if n.UserID == userID && n.Event == event {
			return true
		}
	}
	return false
}

type fakeLedger struct {
	mu       sync.Mutex
	txns     []models.Transaction
	archived []models.Ride
}

func (f *fakeLedger) RecordTransaction(txn models.Transaction, riderID, rideID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns = append(f.txns, txn)
	return nil
}

func (f *fakeLedger) ArchiveRide(ride models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, ride)
	return nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	c        *Coordinator
	store    *store.MemoryStore
	queue    *offline.Queue
	signal   *offline.ManualSignal
	notifier *fakeNotifier
	ledger   *fakeLedger
	clock    *testClock
}

// newFixture wires a coordinator over the in-memory store with a
// controllable clock pinned to an off-peak afternoon.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	q, err := offline.NewQueue(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sig := offline.NewManualSignal(true)
	n := &fakeNotifier{}
	l := &fakeLedger{}
	clock := &testClock{t: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)}

	c := New(st, q, sig, n, l)
	c.now = clock.Now
	return &fixture{c: c, store: st, queue: q, signal: sig, notifier: n, ledger: l, clock: clock}
}

func (f *fixture) seedRider(t *testing.T, id string, rider models.Rider) {
	t.Helper()
	if err := f.store.Write(context.Background(), "riders/"+id, rider); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) seedDriver(t *testing.T, id string, driver models.Driver) {
	t.Helper()
	if err := f.store.Write(context.Background(), "drivers/"+id, driver); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) rider(t *testing.T, id string) models.Rider {
	t.Helper()
	r, err := f.c.GetRider(context.Background(), id)
	if err != nil {
		t.Fatalf("rider %s: %v", id, err)
	}
	return r
}

func (f *fixture) driver(t *testing.T, id string) models.Driver {
	t.Helper()
	d, err := f.c.GetDriver(context.Background(), id)
	if err != nil {
		t.Fatalf("driver %s: %v", id, err)
	}
	return d
}

func (f *fixture) ride(t *testing.T, id string) models.Ride {
	t.Helper()
	r, err := f.c.GetRide(context.Background(), id)
	if err != nil {
		t.Fatalf("ride %s: %v", id, err)
	}
	return r
}

func soloBooking() models.RideDetails {
	return models.RideDetails{
		Pickup:      "MBU Main Gate",
		Destination: "Tirupati Railway Station",
		Type:        models.RideTypeSolo,
		BookingType: models.BookingTypeASAP,
	}
}

func sharedBooking() models.RideDetails {
	return models.RideDetails{
		Pickup:      "Library",
		Destination: "City Bus Stand",
		Type:        models.RideTypeShared,
		GroupSize:   2,
		BookingType: models.BookingTypeASAP,
	}
}
