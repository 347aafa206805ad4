package store

import (
	"context"
	"errors"
	"testing"

	"github.com/campusgo/campusgo-backend/internal/models"
)

func TestReadWriteRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := models.Rider{Name: "Asha", WalletBalance: 500, TotalRides: 3}
	if err := s.Write(ctx, "riders/r1", in); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out models.Rider
	if err := s.Read(ctx, "riders/r1", &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Name != "Asha" || out.WalletBalance != 500 || out.TotalRides != 3 {
		t.Errorf("round trip mismatch: %+v", out)
	}

	var balance float64
	if err := s.Read(ctx, "riders/r1/walletBalance", &balance); err != nil {
		t.Fatalf("field read: %v", err)
	}
	if balance != 500 {
		t.Errorf("walletBalance = %v, want 500", balance)
	}
}

func TestReadMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var r models.Rider
	if err := s.Read(ctx, "riders/nope", &r); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing entity: err = %v, want ErrNotFound", err)
	}

	if err := s.Write(ctx, "riders/r1", models.Rider{Name: "Asha"}); err != nil {
		t.Fatal(err)
	}
	var v string
	if err := s.Read(ctx, "riders/r1/activeRideId", &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing field: err = %v, want ErrNotFound", err)
	}
}

func TestMultiPathUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Write(ctx, "riders/r1", models.Rider{Name: "Asha", WalletBalance: 500, ActiveRideID: "ride1"}); err != nil {
		t.Fatal(err)
	}

	err := s.MultiPathUpdate(ctx, map[string]any{
		"riders/r1/activeRideId":            nil,
		"riders/r1/walletBalance":           Increment(-195),
		"riders/r1/totalRides":              Increment(1),
		"riders/r1/recentRides/ride1":       true,
		"riders/r1/achievements/first-ride": true,
		"transactions/t1":                   models.Transaction{ID: "t1", Type: models.TransactionDebit, Amount: 195},
		"riders/r1/transactionHistory/t1":   true,
	})
	if err != nil {
		t.Fatalf("multi path update: %v", err)
	}

	var r models.Rider
	if err := s.Read(ctx, "riders/r1", &r); err != nil {
		t.Fatal(err)
	}
	if r.ActiveRideID != "" {
		t.Errorf("activeRideId not cleared: %q", r.ActiveRideID)
	}
	if r.WalletBalance != 305 {
		t.Errorf("walletBalance = %v, want 305", r.WalletBalance)
	}
	if r.TotalRides != 1 {
		t.Errorf("totalRides = %d, want 1", r.TotalRides)
	}
	if !r.RecentRides["ride1"] || !r.Achievements["first-ride"] || !r.TransactionHistory["t1"] {
		t.Errorf("nested flags not set: %+v", r)
	}

	var txn models.Transaction
	if err := s.Read(ctx, "transactions/t1", &txn); err != nil {
		t.Fatal(err)
	}
	if txn.Amount != 195 || txn.Type != models.TransactionDebit {
		t.Errorf("transaction mismatch: %+v", txn)
	}
}

func TestGuardedUpdateAccept(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ride := models.Ride{ID: "ride1", Status: models.RideStatusPending, RiderID: "r1"}
	if err := s.Write(ctx, "rides/ride1", ride); err != nil {
		t.Fatal(err)
	}

	accept := func(driverID string) (bool, error) {
		return s.GuardedUpdate(ctx,
			map[string]any{
				"rides/ride1/status":   models.RideStatusPending,
				"rides/ride1/driverId": nil,
			},
			map[string]any{
				"rides/ride1/status":                     models.RideStatusActive,
				"rides/ride1/driverId":                   driverID,
				"drivers/" + driverID + "/currentRideId": "ride1",
			})
	}

	ok, err := accept("d1")
	if err != nil || !ok {
		t.Fatalf("first accept: ok=%v err=%v", ok, err)
	}
	ok, err = accept("d2")
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if ok {
		t.Error("second accept succeeded, want guard failure")
	}

	var got models.Ride
	if err := s.Read(ctx, "rides/ride1", &got); err != nil {
		t.Fatal(err)
	}
	if got.DriverID != "d1" || got.Status != models.RideStatusActive {
		t.Errorf("ride after race: %+v", got)
	}
	var d2 models.Driver
	if err := s.Read(ctx, "drivers/d2", &d2); !errors.Is(err, ErrNotFound) {
		t.Errorf("losing driver was written: err=%v", err)
	}
}

func TestGuardedUpdateAbsentGuard(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Write(ctx, "rides/ride1", models.Ride{ID: "ride1", Status: models.RideStatusPending, DriverID: "d9"}); err != nil {
		t.Fatal(err)
	}
	ok, err := s.GuardedUpdate(ctx,
		map[string]any{"rides/ride1/driverId": nil},
		map[string]any{"rides/ride1/driverId": "d1"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("absent guard passed on a set field")
	}
}

func TestList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Write(ctx, "ride-requests/"+id, models.Ride{ID: id, Status: models.RideStatusPending}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Write(ctx, "riders/r1", models.Rider{Name: "Asha"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, "ride-requests")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, ok := got[id]; !ok {
			t.Errorf("missing id %s", id)
		}
	}
}

func TestSubscribePrefixFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var events []string
	unsub := s.Subscribe("rides/", func(e Event) {
		events = append(events, e.Path)
	})
	defer unsub()

	if err := s.Write(ctx, "rides/ride1", models.Ride{ID: "ride1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "riders/r1", models.Rider{Name: "Asha"}); err != nil {
		t.Fatal(err)
	}

	if len(events) != 1 || events[0] != "rides/ride1" {
		t.Errorf("events = %v, want [rides/ride1]", events)
	}

	unsub()
	if err := s.Write(ctx, "rides/ride2", models.Ride{ID: "ride2"}); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("received events after unsubscribe: %v", events)
	}
}

func TestPushIDsDistinct(t *testing.T) {
	s := NewMemoryStore()
	a, b := s.Push("rides"), s.Push("rides")
	if a == "" || a == b {
		t.Errorf("push ids: %q %q", a, b)
	}
}
