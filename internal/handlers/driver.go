package handlers

import (
	"context"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusgo/campusgo-backend/internal/coordinator"
	"github.com/campusgo/campusgo-backend/internal/database"
	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/services"
	"github.com/campusgo/campusgo-backend/pkg/utils"
)

// GetOpenRequests lists the requests this driver may accept.
func GetOpenRequests(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := coord.OpenRequests(c.Request.Context(), c.GetString("actorId"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"requests": requests})
	}
}

// AcceptRide claims a broadcast request for the calling driver.
func AcceptRide(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetString("actorId")
		ride, err := coord.AcceptRide(c.Request.Context(), driverID, c.Param("id"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		go pushRideAccepted(db, coord, ride, driverID)
		c.JSON(200, gin.H{"ride": ride})
	}
}

func pushRideAccepted(db *gorm.DB, coord *coordinator.Coordinator, ride models.Ride, driverID string) {
	ctx := context.Background()
	var riderUser models.User
	if err := db.Where("actor_id = ?", ride.RiderID).First(&riderUser).Error; err != nil || riderUser.FCMToken == "" {
		return
	}
	driver, err := coord.GetDriver(ctx, driverID)
	if err != nil {
		return
	}
	eta := utils.EstimatedArrivalMinutes(driver.Location.Lat, driver.Location.Lng, ride.PickupCoords.Lat, ride.PickupCoords.Lng)
	if err := services.SendRideAcceptedNotification(ctx, riderUser.FCMToken, ride.ID, driver.Name, eta); err != nil {
		log.Printf("FCM ride accepted push failed: %v", err)
	}
}

// DeclineRide hides a request from this driver.
func DeclineRide(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := coord.DeclineRide(c.Request.Context(), c.GetString("actorId"), c.Param("id"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"message": "Request declined"})
	}
}

// ToggleStatus flips the driver online/offline. Coming online may
// immediately match a waitlisted rider.
func ToggleStatus(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		online, matched, err := coord.ToggleDriverStatus(c.Request.Context(), c.GetString("actorId"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		resp := gin.H{"isOnline": online}
		if matched != nil {
			resp["matchedRide"] = matched
		}
		c.JSON(200, resp)
	}
}

// GetWaitlist lists waiting riders, oldest first.
func GetWaitlist(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := coord.Waitlist(c.Request.Context())
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"waitlist": items})
	}
}

// AcceptWaitlistedRide claims a specific waitlist entry.
func AcceptWaitlistedRide(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ride, err := coord.AcceptWaitlistedRide(c.Request.Context(), c.GetString("actorId"), c.Param("riderId"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"ride": ride})
	}
}

// CompleteRide settles the driver's ride in progress.
func CompleteRide(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetString("actorId")
		settlement, err := coord.CompleteRide(c.Request.Context(), driverID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		go func(s coordinator.Settlement) {
			ctx := context.Background()
			var riderUser models.User
			if err := db.Where("actor_id = ?", s.Ride.RiderID).First(&riderUser).Error; err != nil || riderUser.FCMToken == "" {
				return
			}
			if err := services.SendRideCompletedNotification(ctx, riderUser.FCMToken, s.Ride.ID, s.FareCharged); err != nil {
				log.Printf("FCM ride completed push failed: %v", err)
			}
		}(settlement)

		c.JSON(200, gin.H{"settlement": settlement})
	}
}

// GetDriverProfile returns the driver's realtime document.
func GetDriverProfile(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		driver, err := coord.GetDriver(c.Request.Context(), c.GetString("actorId"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"profile": driver})
	}
}

// UpdateLocation stores the driver's last reported position, used for
// pickup ETAs.
func UpdateLocation(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.Coordinates
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		err := coord.UpdateDriverLocation(c.Request.Context(), c.GetString("actorId"), input)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"message": "Location updated"})
	}
}

// GetDriverTripHistory returns the driver's archived rides, paginated.
func GetDriverTripHistory(ledger *database.GormLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

		rides, total, err := ledger.DriverTripHistory(c.GetString("actorId"), page, pageSize)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load trip history"})
			return
		}
		c.JSON(200, gin.H{"rides": rides, "total": total, "page": page})
	}
}
