package models

// WaitlistItem is one rider waiting for a driver when none are
// dispatchable. Keyed by rider id in the store; Timestamp is the
// server-assigned enqueue time in unix milliseconds and drives FIFO
// matching.
type WaitlistItem struct {
	RiderID     string      `json:"riderId"`
	Timestamp   int64       `json:"timestamp"`
	RideDetails RideDetails `json:"rideDetails"`
}
