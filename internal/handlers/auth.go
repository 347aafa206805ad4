package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusgo/campusgo-backend/internal/coordinator"
	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/pkg/utils"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	UserType string `json:"userType" binding:"required,oneof=rider driver"`
	IsEV     bool   `json:"isEV"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user := models.User{
			ActorID:  uuid.NewString(),
			Username: input.Username,
			Email:    input.Email,
			Password: input.Password,
			UserType: input.UserType,
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if result := db.Create(&user); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to create user: " + result.Error.Error()})
			return
		}

		// Seed the realtime profile so booking and dispatch can read it.
		var err error
		if input.UserType == string(models.UserTypeDriver) {
			err = coord.EnsureDriverProfile(c.Request.Context(), user.ActorID, user.Username, input.IsEV)
		} else {
			err = coord.EnsureRiderProfile(c.Request.Context(), user.ActorID, user.Username)
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to initialize profile"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(201, gin.H{
			"token": token,
			"user": gin.H{
				"actorId":  user.ActorID,
				"email":    user.Email,
				"username": user.Username,
				"userType": user.UserType,
			},
		})
	}
}

func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if result := db.Where("email = ?", input.Email).First(&user); result.Error != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user": gin.H{
				"actorId":  user.ActorID,
				"email":    user.Email,
				"username": user.Username,
				"userType": user.UserType,
			},
		})
	}
}

// RegisterFCMToken stores the caller's push token for ride alerts.
func RegisterFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		actorID := c.GetString("actorId")
		result := db.Model(&models.User{}).Where("actor_id = ?", actorID).Update("fcm_token", input.Token)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to save token"})
			return
		}
		c.JSON(200, gin.H{"message": "Token registered"})
	}
}
