package utils

import (
	"math"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
)

// FareEstimate contains the calculated fare and breakdown
type FareEstimate struct {
	TotalFare       float64       `json:"totalFare"`
	Distance        float64       `json:"distance"`
	Duration        int           `json:"duration"`
	SurgeMultiplier float64       `json:"surgeMultiplier"`
	Breakdown       FareBreakdown `json:"breakdown"`
}

// FareBreakdown provides detailed fare breakdown
type FareBreakdown struct {
	BaseFare       float64 `json:"baseFare"`
	DistanceCharge float64 `json:"distanceCharge"`
	TimeCharge     float64 `json:"timeCharge"`
	SurgeCharge    float64 `json:"surgeCharge"`
	Total          float64 `json:"total"`
}

const (
	// Base rates in INR
	SoloBaseFare   = 40.0
	SharedBaseFare = 25.0
	RatePerKm      = 10.0
	RatePerMinute  = 1.0

	PeakSurge  = 1.3 // Morning and evening rush
	NightSurge = 1.8 // Late night premium
	MaxSurge   = 1.5 // Hard cap applied after window selection
)

// routeEstimate holds historical distance and travel time for a
// campus route.
type routeEstimate struct {
	DistanceKm  float64
	DurationMin int
}

// historicalRoutes maps "<pickup>_<destination>" to observed route
// data. Unknown pairs fall back to defaultRoute.
var historicalRoutes = map[string]routeEstimate{
	"MBU Main Gate_Tirupati Railway Station":  {8, 30},
	"Hostel Block C_Tirupati Railway Station": {9, 23},
	"MBU Main Gate_Central Mall":              {12, 30},
	"Library_City Bus Stand":                  {10, 25},
	"Admin Block_PVR Cinemas":                 {13, 33},
}

var defaultRoute = routeEstimate{9, 22}

// LookupRoute returns the historical distance and duration for a
// pickup/destination pair, checking both directions before falling
// back to the default estimate.
func LookupRoute(pickup, destination string) (float64, int) {
	if r, ok := historicalRoutes[pickup+"_"+destination]; ok {
		return r.DistanceKm, r.DurationMin
	}
	if r, ok := historicalRoutes[destination+"_"+pickup]; ok {
		return r.DistanceKm, r.DurationMin
	}
	return defaultRoute.DistanceKm, defaultRoute.DurationMin
}

// SurgeMultiplier returns the time-of-day surge factor, capped at
// MaxSurge. Peak windows are 8-10 AM and 5-7 PM; the late-night
// window runs 10 PM to 5 AM and takes precedence.
func SurgeMultiplier(at time.Time) float64 {
	hour := at.Hour()
	surge := 1.0
	if (hour >= 8 && hour < 10) || (hour >= 17 && hour < 19) {
		surge = PeakSurge
	}
	if hour >= 22 || hour < 5 {
		surge = NightSurge
	}
	return math.Min(surge, MaxSurge)
}

// CalculateFare prices a ride from historical route data, the ride
// type's base fare and the surge window the ride falls into. For
// scheduled rides the surge is evaluated at the scheduled time, not
// at booking time. The total is rounded to the nearest 5 rupees.
func CalculateFare(pickup, destination string, rideType models.RideType, at time.Time) FareEstimate {
	baseFare := SoloBaseFare
	if rideType == models.RideTypeShared {
		baseFare = SharedBaseFare
	}

	distance, duration := LookupRoute(pickup, destination)
	distanceCharge := distance * RatePerKm
	timeCharge := float64(duration) * RatePerMinute

	surge := SurgeMultiplier(at)
	subtotal := baseFare + distanceCharge + timeCharge
	surgeCharge := 0.0
	if surge > 1.0 {
		surgeCharge = subtotal * (surge - 1.0)
	}

	total := math.Round((subtotal+surgeCharge)/5) * 5

	return FareEstimate{
		TotalFare:       total,
		Distance:        distance,
		Duration:        duration,
		SurgeMultiplier: surge,
		Breakdown: FareBreakdown{
			BaseFare:       baseFare,
			DistanceCharge: distanceCharge,
			TimeCharge:     timeCharge,
			SurgeCharge:    surgeCharge,
			Total:          total,
		},
	}
}
