package coordinator

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/observability"
)

// ExpiredScheduledReason is stamped on scheduled rides nobody
// accepted before their start time.
const ExpiredScheduledReason = "Scheduled ride expired before a driver accepted"

// CancelRide cancels the rider's active ride. A reason is required.
// Works from any non-terminal status; an assigned driver is released
// and notified.
func (c *Coordinator) CancelRide(ctx context.Context, riderID, reason string) (models.Ride, error) {
	if reason == "" {
		return models.Ride{}, ErrBadRequest
	}
	rider, err := c.GetRider(ctx, riderID)
	if err != nil {
		return models.Ride{}, err
	}
	if rider.ActiveRideID == "" {
		return models.Ride{}, ErrNotFound
	}
	ride, err := c.GetRide(ctx, rider.ActiveRideID)
	if err != nil {
		return models.Ride{}, err
	}
	if models.IsTerminalStatus(ride.Status) {
		return models.Ride{}, ErrInvalidState
	}

	updates := map[string]any{
		ridePath(ride.ID) + "/status":             models.RideStatusCancelled,
		ridePath(ride.ID) + "/cancellationReason": reason,
		riderPath(riderID) + "/activeRideId":      nil,
		requestPath(ride.ID):                      nil,
	}
	if ride.DriverID != "" {
		updates[driverPath(ride.DriverID)+"/currentRideId"] = nil
	}
	// Guard on the observed status so a cancel racing a completion
	// cannot clobber a settled ride.
	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{ridePath(ride.ID) + "/status": ride.Status},
		updates)
	if err != nil {
		return models.Ride{}, err
	}
	if !ok {
		return models.Ride{}, ErrInvalidState
	}

	ride.Status = models.RideStatusCancelled
	ride.CancellationReason = reason
	observability.RidesCancelled.Inc()
	c.archiveRide(ride)
	if ride.DriverID != "" {
		c.notifyUser(ride.DriverID, "ride_cancelled", map[string]any{
			"rideId": ride.ID,
			"reason": reason,
		})
	}
	return ride, nil
}

// ExpireScheduledRequests cancels Pending scheduled rides whose start
// time has passed, freeing their riders to book again. Returns how
// many rides were expired.
func (c *Coordinator) ExpireScheduledRequests(ctx context.Context) (int, error) {
	raw, err := c.store.List(ctx, "ride-requests")
	if err != nil {
		return 0, err
	}
	now := c.now()
	expired := 0
	for id, doc := range raw {
		var ride models.Ride
		if err := json.Unmarshal(doc, &ride); err != nil {
			continue
		}
		ride.ID = id
		if ride.Status != models.RideStatusPending || ride.BookingType != models.BookingTypeScheduled {
			continue
		}
		if ride.ScheduledTime == nil || !ride.ScheduledTime.Before(now) {
			continue
		}
		ok, err := c.store.GuardedUpdate(ctx,
			map[string]any{ridePath(id) + "/status": models.RideStatusPending},
			map[string]any{
				ridePath(id) + "/status":                  models.RideStatusCancelled,
				ridePath(id) + "/cancellationReason":      ExpiredScheduledReason,
				riderPath(ride.RiderID) + "/activeRideId": nil,
				requestPath(id):                           nil,
			})
		if err != nil {
			return expired, err
		}
		if !ok {
			continue // accepted or cancelled while we scanned
		}
		expired++
		observability.RidesExpired.Inc()
		ride.Status = models.RideStatusCancelled
		ride.CancellationReason = ExpiredScheduledReason
		c.archiveRide(ride)
		c.notifyUser(ride.RiderID, "ride_expired", map[string]any{
			"rideId": id,
			"reason": ExpiredScheduledReason,
		})
	}
	if err := c.pruneDismissals(ctx); err != nil {
		log.Printf("Dismissal prune failed: %v", err)
	}
	return expired, nil
}

// pruneDismissals drops per-driver decline markers whose request is no
// longer open, so dismissal documents do not grow without bound.
func (c *Coordinator) pruneDismissals(ctx context.Context) error {
	open, err := c.store.List(ctx, "ride-requests")
	if err != nil {
		return err
	}
	docs, err := c.store.List(ctx, "dismissals")
	if err != nil {
		return err
	}
	updates := map[string]any{}
	for driverID, doc := range docs {
		var dismissed map[string]bool
		if err := json.Unmarshal(doc, &dismissed); err != nil {
			continue
		}
		var stale []string
		for rideID := range dismissed {
			if _, ok := open[rideID]; !ok {
				stale = append(stale, rideID)
			}
		}
		if len(stale) == 0 {
			continue
		}
		if len(stale) == len(dismissed) {
			updates["dismissals/"+driverID] = nil
			continue
		}
		for _, rideID := range stale {
			updates[dismissalPath(driverID, rideID)] = nil
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return c.store.MultiPathUpdate(ctx, updates)
}

// RunExpiryWorker sweeps scheduled requests until ctx is cancelled.
func (c *Coordinator) RunExpiryWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.ExpireScheduledRequests(ctx); err != nil {
				log.Printf("Expiry sweep failed: %v", err)
			}
		}
	}
}
