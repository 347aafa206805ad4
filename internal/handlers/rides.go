package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusgo/campusgo-backend/internal/coordinator"
	"github.com/campusgo/campusgo-backend/internal/database"
	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/services"
)

// BookRide creates a Pending ride request for the calling rider.
// While the realtime store is unreachable the booking is spooled and
// 202 is returned instead of 201.
func BookRide(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var details models.RideDetails
		if err := c.ShouldBindJSON(&details); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		riderID := c.GetString("actorId")

		ride, err := coord.BookRide(c.Request.Context(), riderID, details)
		if errors.Is(err, coordinator.ErrQueuedOffline) {
			c.JSON(202, gin.H{"queued": true, "message": "Booking saved and will be submitted when the connection returns"})
			return
		}
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		go pushRideRequest(db, ride)
		c.JSON(201, gin.H{"ride": ride})
	}
}

func pushRideRequest(db *gorm.DB, ride models.Ride) {
	var tokens []string
	err := db.Model(&models.User{}).
		Where("user_type = ? AND fcm_token <> ''", models.UserTypeDriver).
		Pluck("fcm_token", &tokens).Error
	if err != nil || len(tokens) == 0 {
		return
	}
	if err := services.SendRideRequestNotification(context.Background(), tokens, ride.ID, ride.Pickup, ride.Destination, ride.Fare); err != nil {
		log.Printf("FCM ride request push failed: %v", err)
	}
}

// CancelRide cancels the rider's active ride.
func CancelRide(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		riderID := c.GetString("actorId")

		ride, err := coord.CancelRide(c.Request.Context(), riderID, input.Reason)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"ride": ride})
	}
}

// GetActiveRide returns the rider's ride in progress, if any.
func GetActiveRide(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetString("actorId")
		rider, err := coord.GetRider(c.Request.Context(), riderID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		if rider.ActiveRideID == "" {
			c.JSON(404, gin.H{"error": "No active ride"})
			return
		}
		ride, err := coord.GetRide(c.Request.Context(), rider.ActiveRideID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"ride": ride})
	}
}

// GetRide returns one ride to a party of that ride.
func GetRide(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ride, err := coord.GetRide(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		actorID := c.GetString("actorId")
		if ride.RiderID != actorID && ride.DriverID != actorID {
			c.JSON(403, gin.H{"error": "Not a party to this ride"})
			return
		}
		c.JSON(200, gin.H{"ride": ride})
	}
}

// JoinWaitlist queues the rider for the next available driver.
func JoinWaitlist(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var details models.RideDetails
		if err := c.ShouldBindJSON(&details); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		riderID := c.GetString("actorId")

		item, err := coord.JoinWaitlist(c.Request.Context(), riderID, details)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(201, gin.H{"waitlistEntry": item})
	}
}

// LeaveWaitlist removes the rider's waitlist entry.
func LeaveWaitlist(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetString("actorId")
		if err := coord.LeaveWaitlist(c.Request.Context(), riderID); err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"message": "Left waitlist"})
	}
}

// SubmitRating rates a completed ride.
func SubmitRating(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			RideID   string  `json:"rideId" binding:"required"`
			Rating   float64 `json:"rating" binding:"required"`
			Feedback string  `json:"feedback"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		riderID := c.GetString("actorId")

		newAvg, err := coord.SubmitRating(c.Request.Context(), riderID, input.RideID, input.Rating, input.Feedback)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"driverRating": newAvg})
	}
}

// GetRiderProfile returns the rider's realtime document.
func GetRiderProfile(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rider, err := coord.GetRider(c.Request.Context(), c.GetString("actorId"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"profile": rider})
	}
}

// GetAchievements returns the catalog with the rider's earned flags.
func GetAchievements(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rider, err := coord.GetRider(c.Request.Context(), c.GetString("actorId"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		type earnedAchievement struct {
			models.Achievement
			Earned bool `json:"earned"`
		}
		out := make([]earnedAchievement, 0, len(models.AchievementsList))
		for _, a := range models.AchievementsList {
			out = append(out, earnedAchievement{Achievement: a, Earned: rider.Achievements[a.ID]})
		}
		c.JSON(200, gin.H{"achievements": out})
	}
}

// GetTripHistory returns the rider's archived rides, paginated.
func GetTripHistory(ledger *database.GormLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

		rides, total, err := ledger.TripHistory(c.GetString("actorId"), page, pageSize)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load trip history"})
			return
		}
		c.JSON(200, gin.H{"rides": rides, "total": total, "page": page})
	}
}
