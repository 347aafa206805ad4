package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/store"
)

func TestCancelPendingUnassignedRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})

	booked, err := f.c.BookRide(ctx, "r1", soloBooking())
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := f.c.CancelRide(ctx, "r1", "Plans changed")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.RideStatusCancelled || cancelled.CancellationReason != "Plans changed" {
		t.Errorf("cancelled = %+v", cancelled)
	}
	if got := f.rider(t, "r1").ActiveRideID; got != "" {
		t.Errorf("activeRideId = %q, want cleared", got)
	}
	reqs, err := f.store.List(ctx, "ride-requests")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reqs[booked.ID]; ok {
		t.Error("cancelled ride still broadcast")
	}
	// Rider can book again immediately.
	if _, err := f.c.BookRide(ctx, "r1", sharedBooking()); err != nil {
		t.Errorf("rebook after cancel: %v", err)
	}
}

func TestCancelActiveRideReleasesDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})
	f.seedDriver(t, "d1", models.Driver{Name: "Dev"})

	booked, err := f.c.BookRide(ctx, "r1", soloBooking())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.AcceptRide(ctx, "d1", booked.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CancelRide(ctx, "r1", "Found another ride"); err != nil {
		t.Fatal(err)
	}
	if got := f.driver(t, "d1").CurrentRideID; got != "" {
		t.Errorf("driver currentRideId = %q, want cleared", got)
	}
	if !f.notifier.has("d1", "ride_cancelled") {
		t.Error("assigned driver not notified")
	}
	if len(f.ledger.archived) != 1 {
		t.Errorf("archived = %d rides, want 1", len(f.ledger.archived))
	}
}

func TestCancelRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})

	if _, err := f.c.BookRide(ctx, "r1", soloBooking()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CancelRide(ctx, "r1", ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}

func TestCancelWithoutActiveRide(t *testing.T) {
	f := newFixture(t)
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})

	if _, err := f.c.CancelRide(context.Background(), "r1", "whatever"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExpireScheduledRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})
	f.seedRider(t, "r2", models.Rider{Name: "Bala"})

	slot := f.clock.Now().Add(10 * time.Minute)
	d := soloBooking()
	d.BookingType = models.BookingTypeScheduled
	d.ScheduledTime = &slot
	scheduled, err := f.c.BookRide(ctx, "r1", d)
	if err != nil {
		t.Fatal(err)
	}
	asap, err := f.c.BookRide(ctx, "r2", soloBooking())
	if err != nil {
		t.Fatal(err)
	}

	// Nothing due yet.
	n, err := f.c.ExpireScheduledRequests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expired %d rides before the slot", n)
	}

	f.clock.Advance(20 * time.Minute)
	n, err = f.c.ExpireScheduledRequests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	got := f.ride(t, scheduled.ID)
	if got.Status != models.RideStatusCancelled || got.CancellationReason != ExpiredScheduledReason {
		t.Errorf("expired ride = %+v", got)
	}
	if f.rider(t, "r1").ActiveRideID != "" {
		t.Error("rider not released after expiry")
	}
	// The ASAP request is untouched.
	if f.ride(t, asap.ID).Status != models.RideStatusPending {
		t.Error("ASAP request swept by expiry")
	}
	if !f.notifier.has("r1", "ride_expired") {
		t.Error("rider not told the slot expired")
	}
}

func TestExpiryLeavesAcceptedRidesAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})
	f.seedDriver(t, "d1", models.Driver{Name: "Dev"})

	slot := f.clock.Now().Add(10 * time.Minute)
	d := soloBooking()
	d.BookingType = models.BookingTypeScheduled
	d.ScheduledTime = &slot
	scheduled, err := f.c.BookRide(ctx, "r1", d)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.AcceptRide(ctx, "d1", scheduled.ID); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(time.Hour)
	n, err := f.c.ExpireScheduledRequests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expired = %d accepted rides, want 0", n)
	}
	if f.ride(t, scheduled.ID).Status != models.RideStatusActive {
		t.Error("accepted scheduled ride was expired")
	}
}

func TestExpirySweepPrunesStaleDismissals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedRider(t, "r1", models.Rider{Name: "Asha"})
	f.seedRider(t, "r2", models.Rider{Name: "Bala"})
	f.seedDriver(t, "d1", models.Driver{Name: "Dev"})

	first, err := f.c.BookRide(ctx, "r1", soloBooking())
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.c.BookRide(ctx, "r2", sharedBooking())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.c.DeclineRide(ctx, "d1", first.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.c.DeclineRide(ctx, "d1", second.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CancelRide(ctx, "r1", "Plans changed"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.c.ExpireScheduledRequests(ctx); err != nil {
		t.Fatal(err)
	}
	dismissed := map[string]bool{}
	if err := f.store.Read(ctx, "dismissals/d1", &dismissed); err != nil {
		t.Fatal(err)
	}
	if dismissed[first.ID] {
		t.Error("dismissal for cancelled ride survived the sweep")
	}
	if !dismissed[second.ID] {
		t.Error("dismissal for open ride was pruned")
	}

	// Once the last open request is gone the whole document goes.
	if _, err := f.c.CancelRide(ctx, "r2", "Plans changed"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.ExpireScheduledRequests(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Read(ctx, "dismissals/d1", &dismissed); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("dismissal doc still present: err = %v", err)
	}
}

func TestCanTransitionTable(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.RideStatusPending, models.RideStatusActive, true},
		{models.RideStatusPending, models.RideStatusCancelled, true},
		{models.RideStatusActive, models.RideStatusCompleted, true},
		{models.RideStatusActive, models.RideStatusCancelled, true},
		{models.RideStatusCompleted, models.RideStatusCancelled, false},
		{models.RideStatusCancelled, models.RideStatusActive, false},
		{models.RideStatusCompleted, models.RideStatusActive, false},
	}
	for _, tt := range tests {
		if got := models.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
