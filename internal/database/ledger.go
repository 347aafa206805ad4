package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusgo/campusgo-backend/internal/models"
)

// GormLedger mirrors settled transactions and terminal rides into
// Postgres. Both writes are idempotent on their natural keys so the
// coordinator can safely retry.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) RecordTransaction(txn models.Transaction, riderID, rideID string) error {
	entry := models.LedgerEntry{
		TransactionID: txn.ID,
		RiderID:       riderID,
		RideID:        rideID,
		Type:          txn.Type,
		Amount:        txn.Amount,
		Description:   txn.Description,
	}
	return l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

func (l *GormLedger) ArchiveRide(ride models.Ride) error {
	archive := models.RideArchive{
		RideID:             ride.ID,
		RiderID:            ride.RiderID,
		DriverID:           ride.DriverID,
		Pickup:             ride.Pickup,
		Destination:        ride.Destination,
		Type:               string(ride.Type),
		Status:             ride.Status,
		Fare:               ride.Fare,
		Bonus:              ride.Bonus,
		CO2Savings:         ride.CO2Savings,
		BookedAt:           ride.Date,
		CompletedAt:        ride.CompletionDate,
		CancellationReason: ride.CancellationReason,
	}
	return l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ride_id"}},
		DoNothing: true,
	}).Create(&archive).Error
}

// TripHistory returns a rider's archived rides newest first.
func (l *GormLedger) TripHistory(riderID string, page, pageSize int) ([]models.RideArchive, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64
	q := l.db.Model(&models.RideArchive{}).Where("rider_id = ?", riderID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rides []models.RideArchive
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rides).Error
	return rides, total, err
}

// DriverTripHistory returns a driver's archived rides newest first.
func (l *GormLedger) DriverTripHistory(driverID string, page, pageSize int) ([]models.RideArchive, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64
	q := l.db.Model(&models.RideArchive{}).Where("driver_id = ?", driverID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rides []models.RideArchive
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rides).Error
	return rides, total, err
}
