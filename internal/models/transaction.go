package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction direction constants
const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"
)

// Transaction is an immutable wallet ledger entry in the realtime
// tree. Created only by top-ups and ride settlement; never mutated.
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// LedgerEntry mirrors settlement and top-up transactions into
// Postgres for durable reporting. Append-only, written best effort
// after the realtime update lands.
type LedgerEntry struct {
	gorm.Model
	TransactionID string  `json:"transactionId" gorm:"not null;uniqueIndex"`
	RiderID       string  `json:"riderId" gorm:"not null;index"`
	RideID        string  `json:"rideId,omitempty" gorm:"index"`
	Type          string  `json:"type" gorm:"not null"`
	Amount        float64 `json:"amount" gorm:"not null"`
	Description   string  `json:"description"`
}

// TableName specifies the table name
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// RideArchive is the durable record of a ride that reached a terminal
// state, used by the paginated trip-history endpoints.
type RideArchive struct {
	gorm.Model
	RideID             string     `json:"rideId" gorm:"not null;uniqueIndex"`
	RiderID            string     `json:"riderId" gorm:"not null;index"`
	DriverID           string     `json:"driverId" gorm:"index"`
	Pickup             string     `json:"pickup"`
	Destination        string     `json:"destination"`
	Type               string     `json:"type"`
	Status             string     `json:"status" gorm:"not null"`
	Fare               float64    `json:"fare"`
	Bonus              float64    `json:"bonus"`
	CO2Savings         float64    `json:"co2Savings"`
	BookedAt           time.Time  `json:"bookedAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
}

// TableName specifies the table name
func (RideArchive) TableName() string {
	return "ride_archives"
}
