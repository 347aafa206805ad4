package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/campusgo/campusgo-backend/internal/coordinator"
)

// GetWallet returns the rider's balance and transaction history.
func GetWallet(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetString("actorId")
		rider, err := coord.GetRider(c.Request.Context(), riderID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		txns, err := coord.Transactions(c.Request.Context(), riderID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{
			"balance":      rider.WalletBalance,
			"transactions": txns,
		})
	}
}

// AddFunds credits the rider's wallet.
func AddFunds(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount float64 `json:"amount" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		txn, err := coord.AddFunds(c.Request.Context(), c.GetString("actorId"), input.Amount)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(201, gin.H{"transaction": txn})
	}
}
