package models

import (
	"time"
)

// RideType distinguishes solo trips from shared (pooled) trips.
type RideType string

const (
	RideTypeSolo   RideType = "Solo"
	RideTypeShared RideType = "Shared"
)

// BookingType distinguishes immediate bookings from scheduled ones.
type BookingType string

const (
	BookingTypeASAP      BookingType = "ASAP"
	BookingTypeScheduled BookingType = "Scheduled"
)

// RideStatus constants
const (
	RideStatusPending   = "Pending"
	RideStatusConfirmed = "Confirmed"
	RideStatusActive    = "Active"
	RideStatusCompleted = "Completed"
	RideStatusCancelled = "Cancelled"
)

// Coordinates is a lat/lng pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ride represents one trip request as stored in the realtime tree.
// DriverID is set if and only if the ride has been matched
// (Confirmed, Active or Completed).
type Ride struct {
	ID                 string      `json:"id"`
	Pickup             string      `json:"pickup"`
	Destination        string      `json:"destination"`
	Type               RideType    `json:"type"`
	Fare               float64     `json:"fare"`
	Date               time.Time   `json:"date"`
	Status             string      `json:"status"`
	GroupSize          int         `json:"groupSize,omitempty"`
	DriverID           string      `json:"driverId,omitempty"`
	RiderID            string      `json:"riderId"`
	PickupCoords       Coordinates `json:"pickupCoords"`
	DestinationCoords  Coordinates `json:"destinationCoords"`
	BookingType        BookingType `json:"bookingType"`
	ScheduledTime      *time.Time  `json:"scheduledTime,omitempty"`
	CO2Savings         float64     `json:"co2Savings,omitempty"`
	Rating             float64     `json:"rating,omitempty"`
	Feedback           string      `json:"feedback,omitempty"`
	Bonus              float64     `json:"bonus,omitempty"`
	CompletionDate     *time.Time  `json:"completionDate,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
}

// RideDetails is the booking payload: everything the rider supplies
// before the coordinator stamps identity, date and status onto it.
type RideDetails struct {
	Pickup            string      `json:"pickup" binding:"required"`
	Destination       string      `json:"destination" binding:"required"`
	Type              RideType    `json:"type" binding:"required"`
	Fare              float64     `json:"fare"`
	GroupSize         int         `json:"groupSize,omitempty"`
	PickupCoords      Coordinates `json:"pickupCoords"`
	DestinationCoords Coordinates `json:"destinationCoords"`
	BookingType       BookingType `json:"bookingType" binding:"required"`
	ScheduledTime     *time.Time  `json:"scheduledTime,omitempty"`
}

// rideTransitions encodes the lifecycle state flow.
var rideTransitions = map[string][]string{
	RideStatusPending:   {RideStatusConfirmed, RideStatusActive, RideStatusCancelled},
	RideStatusConfirmed: {RideStatusActive, RideStatusCancelled},
	RideStatusActive:    {RideStatusCompleted, RideStatusCancelled},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range rideTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status admits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == RideStatusCompleted || status == RideStatusCancelled
}
