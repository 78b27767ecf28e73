package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/controllers"
	"github.com/kendall-kelly/beauty-salon-api/middleware"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/services"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.GoEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	config.SetLogger(logger)

	logger.Info("starting beauty salon API", zap.String("env", cfg.GoEnv))

	if err := config.ConnectDatabase(cfg); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := models.AutoMigrate(config.GetDB()); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("database migration completed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initImageStorage(ctx, cfg, logger); err != nil {
		logger.Fatal("failed to initialize image storage", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, middleware.EnsureValidToken(cfg))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// initImageStorage selects where master portraits are kept: S3 when a bucket is configured,
// the local upload directory otherwise
func initImageStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if !cfg.S3Enabled() {
		services.SetImageService(services.NewLocalImageService(cfg.UploadDir))
		logger.Info("storing portraits locally", zap.String("dir", cfg.UploadDir))
		return nil
	}

	s3Service, err := services.InitS3Service(ctx, cfg, logger)
	if err != nil {
		return err
	}
	services.SetImageService(services.NewS3ImageService(s3Service))
	logger.Info("storing portraits in S3", zap.String("bucket", cfg.AWSS3Bucket))
	return nil
}

// setupRouter builds the HTTP API. auth authenticates every route except the health
// check and uploaded images.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	logger := config.GetLogger()

	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)
	}

	api := v1.Group("", auth)
	{
		api.POST("/users", controllers.CreateUser)
		api.GET("/users/me", controllers.GetMyProfile)
		api.PUT("/users/:id/role", controllers.UpdateUserRole)

		api.GET("/bookings", controllers.ListBookings)
		api.POST("/bookings", controllers.CreateBooking)
		api.GET("/bookings/pending", controllers.ListPendingBookings)
		api.GET("/bookings/statistics", middleware.RequireAdmin(), controllers.GetBookingStatistics)
		api.GET("/bookings/:id", controllers.GetBooking)
		api.PATCH("/bookings/:id", controllers.UpdateBooking)
		api.DELETE("/bookings/:id", controllers.DeleteBooking)
		api.POST("/bookings/:id/status", controllers.UpdateBookingStatus)
		api.GET("/bookings/:id/history", middleware.RequireAdmin(), controllers.GetBookingHistory)

		api.GET("/masters", controllers.ListMasters)
		api.POST("/masters", controllers.CreateMaster)
		api.GET("/masters/:id", controllers.GetMaster)
		api.PATCH("/masters/:id", controllers.UpdateMaster)
		api.DELETE("/masters/:id", controllers.DeleteMaster)
		api.GET("/masters/:id/services", controllers.ListMasterServices)
		api.POST("/masters/:id/services", controllers.AddMasterService)
		api.DELETE("/masters/:id/services/:serviceId", controllers.RemoveMasterService)
		api.POST("/masters/:id/image", controllers.UploadMasterImage)
		api.GET("/masters/:id/reviews", controllers.ListMasterReviews)
		api.POST("/masters/:id/reviews", controllers.CreateMasterReview)
		api.GET("/masters/:id/history", middleware.RequireAdmin(), controllers.GetMasterHistory)

		api.GET("/services", controllers.ListServices)
		api.POST("/services", controllers.CreateService)
		api.GET("/services/:id", controllers.GetService)
		api.PATCH("/services/:id", controllers.UpdateService)
		api.POST("/services/:id/related", controllers.LinkRelatedService)

		api.GET("/history", middleware.RequireAdmin(), controllers.ListHistory)
		api.GET("/database/status", middleware.RequireAdmin(), databaseStatus)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Beauty Salon API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"driver":  db.Dialector.Name(),
		"tables":  tables,
	})
}
