package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/pkg/utils"
)

// EstimateFare prices a prospective ride without booking it. For a
// scheduled ride the surge window of the slot applies.
func EstimateFare() gin.HandlerFunc {
	return func(c *gin.Context) {
		pickup := c.Query("pickup")
		destination := c.Query("destination")
		if pickup == "" || destination == "" {
			c.JSON(400, gin.H{"error": "pickup and destination are required"})
			return
		}
		rideType := models.RideType(c.DefaultQuery("type", string(models.RideTypeSolo)))
		if rideType != models.RideTypeSolo && rideType != models.RideTypeShared {
			c.JSON(400, gin.H{"error": "type must be Solo or Shared"})
			return
		}

		at := time.Now()
		if raw := c.Query("scheduledTime"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(400, gin.H{"error": "scheduledTime must be RFC3339"})
				return
			}
			at = parsed
		}

		c.JSON(200, gin.H{"estimate": utils.CalculateFare(pickup, destination, rideType, at)})
	}
}
