package coordinator

import (
	"context"
	"fmt"
	"math"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/observability"
	"github.com/campusgo/campusgo-backend/internal/store"
)

// Settlement amounts in INR and kg CO2.
const (
	co2Base      = 0.2
	co2Shared    = 1.0
	co2EV        = 1.5
	bonusNight   = 20.0
	bonusShared  = 15.0
	bonusEV      = 10.0
	bonusOnboard = 250.0

	onboardingRideTarget = 10
)

// Settlement summarizes one completed ride: what the rider was
// charged, what the driver earned and anything unlocked along the way.
type Settlement struct {
	Ride            models.Ride          `json:"ride"`
	FareCharged     float64              `json:"fareCharged"`
	DriverEarnings  float64              `json:"driverEarnings"`
	Bonus           float64              `json:"bonus"`
	CO2Saved        float64              `json:"co2Saved"`
	NewAchievements []models.Achievement `json:"newAchievements,omitempty"`
}

// CompleteRide settles the driver's ride in progress: ride goes
// Completed, the rider's wallet is debited, counters and CO2 roll up
// on both sides, the driver's bonus is credited and any newly earned
// achievements unlock. Everything lands in one guarded store update,
// so a retried or duplicated completion settles at most once.
func (c *Coordinator) CompleteRide(ctx context.Context, driverID string) (Settlement, error) {
	driver, err := c.GetDriver(ctx, driverID)
	if err != nil {
		return Settlement{}, err
	}
	if driver.CurrentRideID == "" {
		return Settlement{}, ErrNotAllowed
	}
	ride, err := c.GetRide(ctx, driver.CurrentRideID)
	if err != nil {
		return Settlement{}, err
	}
	if ride.DriverID != driverID {
		return Settlement{}, ErrNotAllowed
	}
	if ride.Status != models.RideStatusActive {
		return Settlement{}, ErrInvalidState
	}
	rider, err := c.GetRider(ctx, ride.RiderID)
	if err != nil {
		return Settlement{}, err
	}

	now := c.now()
	shared := ride.Type == models.RideTypeShared

	co2 := co2Base
	if shared {
		co2 += co2Shared
	}
	if driver.IsEV {
		co2 += co2EV
	}

	bonus := 0.0
	hour := now.Hour()
	if hour >= 21 || hour < 6 {
		bonus += bonusNight
	}
	if shared {
		bonus += bonusShared
	}
	if driver.IsEV {
		bonus += bonusEV
	}
	awardOnboarding := !driver.OnboardingBonusAwarded && driver.TotalRides+1 >= onboardingRideTarget
	if awardOnboarding {
		bonus += bonusOnboard
	}

	txnID := c.store.Push("transactions")
	txn := models.Transaction{
		ID:          txnID,
		Type:        models.TransactionDebit,
		Amount:      ride.Fare,
		Date:        now,
		Description: fmt.Sprintf("Fare for ride to %s", ride.Destination),
	}

	updates := map[string]any{
		ridePath(ride.ID) + "/status":         models.RideStatusCompleted,
		ridePath(ride.ID) + "/completionDate": now,
		ridePath(ride.ID) + "/co2Savings":     co2,
		ridePath(ride.ID) + "/bonus":          bonus,
		requestPath(ride.ID):                  nil,

		transactionPath(txnID): txn,

		riderPath(ride.RiderID) + "/activeRideId":                nil,
		riderPath(ride.RiderID) + "/recentRides/" + ride.ID:      true,
		riderPath(ride.RiderID) + "/transactionHistory/" + txnID: true,
		riderPath(ride.RiderID) + "/walletBalance":               store.Increment(-ride.Fare),
		riderPath(ride.RiderID) + "/totalRides":                  store.Increment(1),
		riderPath(ride.RiderID) + "/totalCo2Savings":             store.Increment(co2),

		driverPath(driverID) + "/currentRideId":   nil,
		driverPath(driverID) + "/earnings":        store.Increment(ride.Fare + bonus),
		driverPath(driverID) + "/totalRides":      store.Increment(1),
		driverPath(driverID) + "/totalCo2Savings": store.Increment(co2),
	}
	if shared {
		updates[riderPath(ride.RiderID)+"/sharedRides"] = store.Increment(1)
	}
	if awardOnboarding {
		updates[driverPath(driverID)+"/onboardingBonusAwarded"] = true
	}

	newAchievements := unlockedAchievements(rider, shared, hour)
	for _, a := range newAchievements {
		updates[riderPath(ride.RiderID)+"/achievements/"+a.ID] = true
	}

	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{
			ridePath(ride.ID) + "/status":   models.RideStatusActive,
			ridePath(ride.ID) + "/driverId": driverID,
		},
		updates)
	if err != nil {
		return Settlement{}, err
	}
	if !ok {
		return Settlement{}, ErrInvalidState
	}

	ride.Status = models.RideStatusCompleted
	ride.CompletionDate = &now
	ride.CO2Savings = co2
	ride.Bonus = bonus

	observability.RidesCompleted.Inc()
	c.recordTransaction(txn, ride.RiderID, ride.ID)
	c.archiveRide(ride)

	settlement := Settlement{
		Ride:            ride,
		FareCharged:     ride.Fare,
		DriverEarnings:  ride.Fare + bonus,
		Bonus:           bonus,
		CO2Saved:        co2,
		NewAchievements: newAchievements,
	}
	c.notifyUser(ride.RiderID, "ride_completed", settlement)
	c.notifyUser(driverID, "ride_completed", settlement)
	return settlement, nil
}

// unlockedAchievements evaluates the catalog against the rider's
// counters as they will stand after this ride settles. Already earned
// achievements never unlock twice.
func unlockedAchievements(rider models.Rider, shared bool, completionHour int) []models.Achievement {
	totalAfter := rider.TotalRides + 1
	sharedAfter := rider.SharedRides
	if shared {
		sharedAfter++
	}

	var earned []string
	if totalAfter >= 1 {
		earned = append(earned, models.AchievementFirstRide)
	}
	if totalAfter >= 10 {
		earned = append(earned, models.AchievementTenRides)
	}
	if sharedAfter >= 5 {
		earned = append(earned, models.AchievementFiveShared)
	}
	if completionHour >= 22 || completionHour < 5 {
		earned = append(earned, models.AchievementNightRide)
	}

	var out []models.Achievement
	for _, id := range earned {
		if rider.Achievements[id] {
			continue
		}
		if a, ok := models.AchievementByID(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// SubmitRating records the rider's rating for a completed ride and
// folds it into the driver's running average. One rating per ride.
func (c *Coordinator) SubmitRating(ctx context.Context, riderID, rideID string, rating float64, feedback string) (float64, error) {
	if rating < 1 || rating > 5 {
		return 0, ErrBadRequest
	}
	ride, err := c.GetRide(ctx, rideID)
	if err != nil {
		return 0, err
	}
	if ride.RiderID != riderID {
		return 0, ErrNotAllowed
	}
	if ride.Status != models.RideStatusCompleted {
		return 0, ErrInvalidState
	}
	if ride.Rating != 0 {
		return 0, ErrInvalidState
	}
	driver, err := c.GetDriver(ctx, ride.DriverID)
	if err != nil {
		return 0, err
	}

	newCount := driver.RatingCount + 1
	newAvg := math.Round(((driver.Rating*float64(driver.RatingCount))+rating)/float64(newCount)*100) / 100

	updates := map[string]any{
		ridePath(rideID) + "/rating":               rating,
		driverPath(ride.DriverID) + "/rating":      newAvg,
		driverPath(ride.DriverID) + "/ratingCount": newCount,
	}
	if feedback != "" {
		updates[ridePath(rideID)+"/feedback"] = feedback
	}
	// Guard against a second submission and against a concurrent
	// rating shifting the average under us.
	ok, err := c.store.GuardedUpdate(ctx,
		map[string]any{
			ridePath(rideID) + "/rating":               nil,
			driverPath(ride.DriverID) + "/ratingCount": driver.RatingCount,
		},
		updates)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidState
	}
	c.notifyUser(ride.DriverID, "rating_received", map[string]any{
		"rideId": rideID,
		"rating": rating,
	})
	return newAvg, nil
}
