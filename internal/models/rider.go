package models

// Rider is a rider's realtime document. WalletBalance is a simulated
// ledger and may go transiently negative before a top-up.
// ActiveRideID and IsOnWaitlist are mutually exclusive.
type Rider struct {
	Name               string          `json:"name"`
	WalletBalance      float64         `json:"walletBalance"`
	TotalRides         int             `json:"totalRides"`
	SharedRides        int             `json:"sharedRides"`
	TotalCO2Savings    float64         `json:"totalCo2Savings"`
	ActiveRideID       string          `json:"activeRideId,omitempty"`
	IsOnWaitlist       bool            `json:"isOnWaitlist,omitempty"`
	RecentRides        map[string]bool `json:"recentRides,omitempty"`
	TransactionHistory map[string]bool `json:"transactionHistory,omitempty"`
	Achievements       map[string]bool `json:"achievements,omitempty"`
}
