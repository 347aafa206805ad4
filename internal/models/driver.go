package models

// Driver is a driver's realtime document. A non-empty CurrentRideID
// blocks new broadcasts and waitlist matches for this driver.
type Driver struct {
	Name                   string      `json:"name"`
	IsOnline               bool        `json:"isOnline"`
	CurrentRideID          string      `json:"currentRideId,omitempty"`
	TotalRides             int         `json:"totalRides"`
	Earnings               float64     `json:"earnings"`
	Rating                 float64     `json:"rating"`
	RatingCount            int         `json:"ratingCount"`
	TotalCO2Savings        float64     `json:"totalCo2Savings"`
	IsEV                   bool        `json:"isEV,omitempty"`
	OnboardingBonusAwarded bool        `json:"onboardingBonusAwarded,omitempty"`
	Location               Coordinates `json:"location"`
}
