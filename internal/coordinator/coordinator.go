package coordinator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/offline"
	"github.com/campusgo/campusgo-backend/internal/store"
)

// Coordinator errors. Handlers map these onto HTTP status codes.
var (
	ErrActiveRide    = errors.New("rider already has an active ride")
	ErrOnWaitlist    = errors.New("rider is already on the waitlist")
	ErrRideConflict  = errors.New("ride was claimed by another driver")
	ErrNotAllowed    = errors.New("operation not allowed for this actor")
	ErrInvalidState  = errors.New("ride state does not allow this operation")
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("invalid request")
	ErrQueuedOffline = errors.New("booking queued for replay")
)

// Notifier pushes realtime events to connected clients. The WebSocket
// hub implements it; tests use a recording fake.
type Notifier interface {
	NotifyUser(userID string, event string, payload any)
	NotifyDrivers(event string, payload any)
}

// Ledger mirrors settled money movements and terminal rides into
// durable storage. Mirror writes are best effort and never block a
// settlement that already landed in the realtime store.
type Ledger interface {
	RecordTransaction(txn models.Transaction, riderID, rideID string) error
	ArchiveRide(ride models.Ride) error
}

// Coordinator owns the ride lifecycle: booking, dispatch, waitlist
// matching, cancellation and settlement. All shared state lives in
// the store; the coordinator itself is stateless and safe for
// concurrent use.
type Coordinator struct {
	store    store.Store
	queue    *offline.Queue
	signal   offline.Signal
	notifier Notifier
	ledger   Ledger
	now      func() time.Time
}

func New(st store.Store, queue *offline.Queue, signal offline.Signal, notifier Notifier, ledger Ledger) *Coordinator {
	c := &Coordinator{
		store:    st,
		queue:    queue,
		signal:   signal,
		notifier: notifier,
		ledger:   ledger,
		now:      time.Now,
	}
	if signal != nil && queue != nil {
		signal.OnOnline(func() {
			go c.ReplayQueuedBookings(context.Background())
		})
	}
	return c
}

func riderPath(id string) string       { return "riders/" + id }
func driverPath(id string) string      { return "drivers/" + id }
func ridePath(id string) string        { return "rides/" + id }
func requestPath(id string) string     { return "ride-requests/" + id }
func waitlistPath(id string) string    { return "waitlist/" + id }
func transactionPath(id string) string { return "transactions/" + id }

func dismissalPath(driverID, rideID string) string {
	return "dismissals/" + driverID + "/" + rideID
}

func (c *Coordinator) notifyUser(userID, event string, payload any) {
	if c.notifier != nil {
		c.notifier.NotifyUser(userID, event, payload)
	}
}

func (c *Coordinator) notifyDrivers(event string, payload any) {
	if c.notifier != nil {
		c.notifier.NotifyDrivers(event, payload)
	}
}

func (c *Coordinator) recordTransaction(txn models.Transaction, riderID, rideID string) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.RecordTransaction(txn, riderID, rideID); err != nil {
		log.Printf("Ledger mirror failed for transaction %s: %v", txn.ID, err)
	}
}

func (c *Coordinator) archiveRide(ride models.Ride) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.ArchiveRide(ride); err != nil {
		log.Printf("Ride archive failed for %s: %v", ride.ID, err)
	}
}

// GetRide reads a ride document.
func (c *Coordinator) GetRide(ctx context.Context, rideID string) (models.Ride, error) {
	var ride models.Ride
	if err := c.store.Read(ctx, ridePath(rideID), &ride); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Ride{}, ErrNotFound
		}
		return models.Ride{}, err
	}
	ride.ID = rideID
	return ride, nil
}

// GetRider reads a rider profile.
func (c *Coordinator) GetRider(ctx context.Context, riderID string) (models.Rider, error) {
	var rider models.Rider
	if err := c.store.Read(ctx, riderPath(riderID), &rider); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Rider{}, ErrNotFound
		}
		return models.Rider{}, err
	}
	return rider, nil
}

// GetDriver reads a driver profile.
func (c *Coordinator) GetDriver(ctx context.Context, driverID string) (models.Driver, error) {
	var driver models.Driver
	if err := c.store.Read(ctx, driverPath(driverID), &driver); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Driver{}, ErrNotFound
		}
		return models.Driver{}, err
	}
	return driver, nil
}

// UpdateDriverLocation stores the driver's last reported position.
// Pickup ETAs are computed from it.
func (c *Coordinator) UpdateDriverLocation(ctx context.Context, driverID string, loc models.Coordinates) error {
	if _, err := c.GetDriver(ctx, driverID); err != nil {
		return err
	}
	return c.store.Write(ctx, driverPath(driverID)+"/location", loc)
}

// EnsureRiderProfile seeds the rider's realtime document at
// registration time. Existing documents are left untouched.
func (c *Coordinator) EnsureRiderProfile(ctx context.Context, riderID, name string) error {
	var existing models.Rider
	err := c.store.Read(ctx, riderPath(riderID), &existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return c.store.Write(ctx, riderPath(riderID), models.Rider{Name: name})
}

// EnsureDriverProfile seeds the driver's realtime document at
// registration time.
func (c *Coordinator) EnsureDriverProfile(ctx context.Context, driverID, name string, isEV bool) error {
	var existing models.Driver
	err := c.store.Read(ctx, driverPath(driverID), &existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return c.store.Write(ctx, driverPath(driverID), models.Driver{Name: name, IsEV: isEV, Rating: 5.0})
}
