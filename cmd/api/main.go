package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusgo/campusgo-backend/internal/coordinator"
	"github.com/campusgo/campusgo-backend/internal/database"
	"github.com/campusgo/campusgo-backend/internal/handlers"
	"github.com/campusgo/campusgo-backend/internal/middleware"
	"github.com/campusgo/campusgo-backend/internal/offline"
	"github.com/campusgo/campusgo-backend/internal/services"
	"github.com/campusgo/campusgo-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Realtime store and offline spool
	rt := store.NewRedisStore(services.RedisClient)

	spoolDir := os.Getenv("OFFLINE_SPOOL_DIR")
	if spoolDir == "" {
		spoolDir = "./spool"
	}
	queue, err := offline.NewQueue(spoolDir)
	if err != nil {
		log.Fatalf("Failed to initialize offline spool: %v", err)
	}
	probe := offline.NewRedisProbe(services.RedisClient, 5*time.Second)

	// WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	ledger := database.NewGormLedger(db)
	coord := coordinator.New(rt, queue, probe, hub, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go probe.Run(ctx)
	go coord.RunExpiryWorker(ctx, time.Minute)
	// Pick up anything spooled before the last shutdown.
	go coord.ReplayQueuedBookings(ctx)

	r := gin.Default()
	r.Use(middleware.Metrics())

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db, coord))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/notifications/register-token", handlers.RegisterFCMToken(db))
			protected.GET("/pricing/estimate", handlers.EstimateFare())
			protected.GET("/rides/:id", handlers.GetRide(coord))

			// Rider routes
			rider := protected.Group("/rider")
			rider.Use(middleware.RequireUserType("rider"))
			{
				rider.GET("/profile", handlers.GetRiderProfile(coord))
				rider.POST("/rides", handlers.BookRide(db, coord))
				rider.GET("/rides/active", handlers.GetActiveRide(coord))
				rider.POST("/rides/cancel", handlers.CancelRide(coord))
				rider.POST("/rides/rate", handlers.SubmitRating(coord))
				rider.GET("/trip-history", handlers.GetTripHistory(ledger))
				rider.POST("/waitlist", handlers.JoinWaitlist(coord))
				rider.DELETE("/waitlist", handlers.LeaveWaitlist(coord))
				rider.GET("/wallet", handlers.GetWallet(coord))
				rider.POST("/wallet/add-funds", handlers.AddFunds(coord))
				rider.GET("/achievements", handlers.GetAchievements(coord))
			}

			// Driver routes
			driver := protected.Group("/driver")
			driver.Use(middleware.RequireUserType("driver"))
			{
				driver.GET("/profile", handlers.GetDriverProfile(coord))
				driver.POST("/status/toggle", handlers.ToggleStatus(coord))
				driver.POST("/location", handlers.UpdateLocation(coord))
				driver.GET("/requests", handlers.GetOpenRequests(coord))
				driver.POST("/requests/:id/accept", handlers.AcceptRide(db, coord))
				driver.POST("/requests/:id/decline", handlers.DeclineRide(coord))
				driver.GET("/waitlist", handlers.GetWaitlist(coord))
				driver.POST("/waitlist/:riderId/accept", handlers.AcceptWaitlistedRide(coord))
				driver.POST("/rides/complete", handlers.CompleteRide(db, coord))
				driver.GET("/trip-history", handlers.GetDriverTripHistory(ledger))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
