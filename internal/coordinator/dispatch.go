package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/observability"
	"github.com/campusgo/campusgo-backend/internal/offline"
	"github.com/campusgo/campusgo-backend/internal/store"
	"github.com/campusgo/campusgo-backend/pkg/utils"
)

// scheduledVisibility is how far ahead a scheduled request becomes
// visible to drivers.
const scheduledVisibility = 30 * time.Minute

// BookRide validates a booking, prices it and broadcasts it to
// drivers as a Pending request. While the store is unreachable the
// booking is spooled locally and ErrQueuedOffline is returned; the
// spool replays in order once connectivity returns.
func (c *Coordinator) BookRide(ctx context.Context, riderID string, details models.RideDetails) (models.Ride, error) {
	if err := validateDetails(details, c.now()); err != nil {
		return models.Ride{}, err
	}
	if c.signal != nil && !c.signal.IsOnline() {
		if c.queue == nil {
			return models.Ride{}, ErrQueuedOffline
		}
		if err := c.queue.Enqueue(riderID, details); err != nil {
			return models.Ride{}, err
		}
		observability.RidesQueuedOffline.Inc()
		return models.Ride{}, ErrQueuedOffline
	}
	return c.submitBooking(ctx, riderID, details)
}

func validateDetails(details models.RideDetails, now time.Time) error {
	if details.Pickup == "" || details.Destination == "" {
		return ErrBadRequest
	}
	if details.Type != models.RideTypeSolo && details.Type != models.RideTypeShared {
		return ErrBadRequest
	}
	switch details.BookingType {
	case models.BookingTypeASAP:
	case models.BookingTypeScheduled:
		if details.ScheduledTime == nil || !details.ScheduledTime.After(now) {
			return ErrBadRequest
		}
	default:
		return ErrBadRequest
	}
	return nil
}

// submitBooking is the store-facing half of BookRide, also used by
// queue replay.
func (c *Coordinator) submitBooking(ctx context.Context, riderID string, details models.RideDetails) (models.Ride, error) {
	rider, err := c.GetRider(ctx, riderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.Ride{}, err
	}
	if rider.ActiveRideID != "" {
		return models.Ride{}, ErrActiveRide
	}
	if rider.IsOnWaitlist {
		return models.Ride{}, ErrOnWaitlist
	}

	now := c.now()
	fareAt := now
	if details.BookingType == models.BookingTypeScheduled && details.ScheduledTime != nil {
		fareAt = *details.ScheduledTime
	}
	estimate := utils.CalculateFare(details.Pickup, details.Destination, details.Type, fareAt)

	rideID := c.store.Push("rides")
	ride := models.Ride{
		ID:                rideID,
		Pickup:            details.Pickup,
		Destination:       details.Destination,
		Type:              details.Type,
		Fare:              estimate.TotalFare,
		Date:              now,
		Status:            models.RideStatusPending,
		GroupSize:         details.GroupSize,
		RiderID:           riderID,
		PickupCoords:      details.PickupCoords,
		DestinationCoords: details.DestinationCoords,
		BookingType:       details.BookingType,
		ScheduledTime:     details.ScheduledTime,
	}

	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{
			riderPath(riderID) + "/activeRideId": nil,
			riderPath(riderID) + "/isOnWaitlist": nil,
		},
		map[string]any{
			ridePath(rideID):                     ride,
			requestPath(rideID):                  ride,
			riderPath(riderID) + "/activeRideId": rideID,
		})
	if err != nil {
		return models.Ride{}, err
	}
	if !ok {
		return models.Ride{}, ErrActiveRide
	}

	observability.RidesBooked.Inc()
	c.notifyDrivers("ride_request", ride)
	return ride, nil
}

// ReplayQueuedBookings drains every rider's offline spool through the
// normal booking path. A rejected booking stops that rider's replay
// so later bookings cannot jump the queue.
func (c *Coordinator) ReplayQueuedBookings(ctx context.Context) {
	if c.queue == nil {
		return
	}
	riders, err := c.queue.Riders()
	if err != nil {
		log.Printf("Offline replay: %v", err)
		return
	}
	for _, riderID := range riders {
		n, err := c.queue.Replay(riderID, func(b offline.QueuedBooking) error {
			_, err := c.submitBooking(ctx, b.RiderID, b.Details)
			return err
		})
		observability.RidesReplayed.Add(float64(n))
		if err != nil {
			log.Printf("Offline replay stopped for rider %s after %d bookings: %v", riderID, n, err)
		}
	}
}

// OpenRequests returns the Pending requests a driver may act on:
// every ASAP request plus scheduled requests starting within the next
// 30 minutes, minus requests this driver has declined.
func (c *Coordinator) OpenRequests(ctx context.Context, driverID string) ([]models.Ride, error) {
	raw, err := c.store.List(ctx, "ride-requests")
	if err != nil {
		return nil, err
	}
	dismissed := map[string]bool{}
	if err := c.store.Read(ctx, "dismissals/"+driverID, &dismissed); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := c.now()
	var open []models.Ride
	for id, doc := range raw {
		var ride models.Ride
		if err := json.Unmarshal(doc, &ride); err != nil {
			log.Printf("Skipping malformed ride request %s: %v", id, err)
			continue
		}
		ride.ID = id
		if ride.Status != models.RideStatusPending || dismissed[id] {
			continue
		}
		if ride.BookingType == models.BookingTypeScheduled {
			if ride.ScheduledTime == nil {
				continue
			}
			if ride.ScheduledTime.Before(now) || ride.ScheduledTime.After(now.Add(scheduledVisibility)) {
				continue
			}
		}
		open = append(open, ride)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Date.Before(open[j].Date) })
	return open, nil
}

// AcceptRide claims a Pending request for a driver. The claim is a
// compare-and-swap on the ride's status and driver assignment, so
// exactly one of several racing drivers wins; the rest get
// ErrRideConflict.
func (c *Coordinator) AcceptRide(ctx context.Context, driverID, rideID string) (models.Ride, error) {
	driver, err := c.GetDriver(ctx, driverID)
	if err != nil {
		return models.Ride{}, err
	}
	if driver.CurrentRideID != "" {
		return models.Ride{}, ErrNotAllowed
	}

	ride, err := c.GetRide(ctx, rideID)
	if err != nil {
		return models.Ride{}, err
	}
	if ride.Status != models.RideStatusPending {
		return models.Ride{}, ErrRideConflict
	}

	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{
			ridePath(rideID) + "/status":   models.RideStatusPending,
			ridePath(rideID) + "/driverId": nil,
		},
		map[string]any{
			ridePath(rideID) + "/status":            models.RideStatusActive,
			ridePath(rideID) + "/driverId":          driverID,
			driverPath(driverID) + "/currentRideId": rideID,
			requestPath(rideID):                     nil,
		})
	if err != nil {
		return models.Ride{}, err
	}
	if !ok {
		observability.AcceptConflicts.Inc()
		return models.Ride{}, ErrRideConflict
	}

	ride.Status = models.RideStatusActive
	ride.DriverID = driverID
	observability.RidesAccepted.Inc()

	eta := utils.EstimatedArrivalMinutes(driver.Location.Lat, driver.Location.Lng, ride.PickupCoords.Lat, ride.PickupCoords.Lng)
	c.notifyUser(ride.RiderID, "ride_accepted", map[string]any{
		"ride":       ride,
		"driverId":   driverID,
		"driverName": driver.Name,
		"etaMinutes": eta,
	})
	return ride, nil
}

// DeclineRide hides a request from this driver only. Other drivers
// keep seeing it.
func (c *Coordinator) DeclineRide(ctx context.Context, driverID, rideID string) error {
	if _, err := c.GetRide(ctx, rideID); err != nil {
		return err
	}
	return c.store.Write(ctx, dismissalPath(driverID, rideID), true)
}

// JoinWaitlist queues a rider for the next driver that comes online.
// The same one-active-commitment rule as booking applies.
func (c *Coordinator) JoinWaitlist(ctx context.Context, riderID string, details models.RideDetails) (models.WaitlistItem, error) {
	if err := validateDetails(details, c.now()); err != nil {
		return models.WaitlistItem{}, err
	}
	rider, err := c.GetRider(ctx, riderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.WaitlistItem{}, err
	}
	if rider.ActiveRideID != "" {
		return models.WaitlistItem{}, ErrActiveRide
	}
	if rider.IsOnWaitlist {
		return models.WaitlistItem{}, ErrOnWaitlist
	}

	item := models.WaitlistItem{
		RiderID:     riderID,
		Timestamp:   c.now().UnixMilli(),
		RideDetails: details,
	}
	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{
			riderPath(riderID) + "/activeRideId": nil,
			riderPath(riderID) + "/isOnWaitlist": nil,
		},
		map[string]any{
			waitlistPath(riderID):                item,
			riderPath(riderID) + "/isOnWaitlist": true,
		})
	if err != nil {
		return models.WaitlistItem{}, err
	}
	if !ok {
		return models.WaitlistItem{}, ErrActiveRide
	}
	observability.WaitlistJoins.Inc()
	return item, nil
}

// LeaveWaitlist removes the rider's pending waitlist entry.
func (c *Coordinator) LeaveWaitlist(ctx context.Context, riderID string) error {
	var item models.WaitlistItem
	if err := c.store.Read(ctx, waitlistPath(riderID), &item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return c.store.MultiPathUpdate(ctx, map[string]any{
		waitlistPath(riderID):                nil,
		riderPath(riderID) + "/isOnWaitlist": nil,
	})
}

// Waitlist returns pending waitlist entries oldest first.
func (c *Coordinator) Waitlist(ctx context.Context) ([]models.WaitlistItem, error) {
	raw, err := c.store.List(ctx, "waitlist")
	if err != nil {
		return nil, err
	}
	items := make([]models.WaitlistItem, 0, len(raw))
	for id, doc := range raw {
		var item models.WaitlistItem
		if err := json.Unmarshal(doc, &item); err != nil {
			log.Printf("Skipping malformed waitlist entry %s: %v", id, err)
			continue
		}
		if item.RiderID == "" {
			item.RiderID = id
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Timestamp < items[j].Timestamp })
	return items, nil
}

// ToggleDriverStatus flips a driver online or offline. A driver
// coming online with no ride in progress is immediately matched
// against the waitlist, oldest entry first.
func (c *Coordinator) ToggleDriverStatus(ctx context.Context, driverID string) (bool, *models.Ride, error) {
	driver, err := c.GetDriver(ctx, driverID)
	if err != nil {
		return false, nil, err
	}
	online := !driver.IsOnline
	if err := c.store.Write(ctx, driverPath(driverID)+"/isOnline", online); err != nil {
		return false, nil, err
	}
	if !online || driver.CurrentRideID != "" {
		return online, nil, nil
	}
	ride, err := c.matchFromWaitlist(ctx, driverID)
	if err != nil {
		log.Printf("Waitlist match for driver %s: %v", driverID, err)
		return online, nil, nil
	}
	return online, ride, nil
}

// AcceptWaitlistedRide lets a driver claim a specific waitlist entry.
func (c *Coordinator) AcceptWaitlistedRide(ctx context.Context, driverID, riderID string) (models.Ride, error) {
	driver, err := c.GetDriver(ctx, driverID)
	if err != nil {
		return models.Ride{}, err
	}
	if driver.CurrentRideID != "" {
		return models.Ride{}, ErrNotAllowed
	}
	var item models.WaitlistItem
	if err := c.store.Read(ctx, waitlistPath(riderID), &item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Ride{}, ErrNotFound
		}
		return models.Ride{}, err
	}
	item.RiderID = riderID
	ride, ok, err := c.claimWaitlistEntry(ctx, driverID, driver, item)
	if err != nil {
		return models.Ride{}, err
	}
	if !ok {
		return models.Ride{}, ErrRideConflict
	}
	return *ride, nil
}

// matchFromWaitlist walks the waitlist oldest first and claims the
// first entry still present. Claims race through the same guard as
// direct accepts, so two drivers toggling online together cannot take
// the same rider.
func (c *Coordinator) matchFromWaitlist(ctx context.Context, driverID string) (*models.Ride, error) {
	driver, err := c.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	items, err := c.Waitlist(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		ride, ok, err := c.claimWaitlistEntry(ctx, driverID, driver, item)
		if err != nil {
			return nil, err
		}
		if ok {
			return ride, nil
		}
	}
	return nil, nil
}

func (c *Coordinator) claimWaitlistEntry(ctx context.Context, driverID string, driver models.Driver, item models.WaitlistItem) (*models.Ride, bool, error) {
	details := item.RideDetails
	now := c.now()
	fareAt := now
	if details.BookingType == models.BookingTypeScheduled && details.ScheduledTime != nil {
		fareAt = *details.ScheduledTime
	}
	estimate := utils.CalculateFare(details.Pickup, details.Destination, details.Type, fareAt)

	rideID := c.store.Push("rides")
	ride := models.Ride{
		ID:                rideID,
		Pickup:            details.Pickup,
		Destination:       details.Destination,
		Type:              details.Type,
		Fare:              estimate.TotalFare,
		Date:              now,
		Status:            models.RideStatusActive,
		GroupSize:         details.GroupSize,
		DriverID:          driverID,
		RiderID:           item.RiderID,
		PickupCoords:      details.PickupCoords,
		DestinationCoords: details.DestinationCoords,
		BookingType:       details.BookingType,
		ScheduledTime:     details.ScheduledTime,
	}

	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{
			waitlistPath(item.RiderID) + "/timestamp": item.Timestamp,
			driverPath(driverID) + "/currentRideId":   nil,
		},
		map[string]any{
			ridePath(rideID):                          ride,
			waitlistPath(item.RiderID):                nil,
			riderPath(item.RiderID) + "/isOnWaitlist": nil,
			riderPath(item.RiderID) + "/activeRideId": rideID,
			driverPath(driverID) + "/currentRideId":   rideID,
		})
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	observability.WaitlistMatches.Inc()
	eta := utils.EstimatedArrivalMinutes(driver.Location.Lat, driver.Location.Lng, ride.PickupCoords.Lat, ride.PickupCoords.Lng)
	c.notifyUser(item.RiderID, "ride_matched", map[string]any{
		"ride":       ride,
		"driverId":   driverID,
		"driverName": driver.Name,
		"etaMinutes": eta,
	})
	c.notifyUser(driverID, "ride_assigned", ride)
	return &ride, true, nil
}
