package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/handlers"
	"github.com/campusstay/reservation-backend/internal/middleware"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/pkg/jwt"
	"github.com/campusstay/reservation-backend/pkg/payment"
	"github.com/campusstay/reservation-backend/pkg/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting CampusStay reservation backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.WithField("driver", cfg.Database.Driver).Info("Database connection established")

	// Repositories
	userRepo := database.NewUserRepository(db.DB)
	unitRepo := database.NewUnitRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)
	reviewRepo := database.NewReviewRepository(db.DB)
	favoriteRepo := database.NewFavoriteRepository(db.DB)
	paymentEventRepo := database.NewPaymentEventRepository(db.DB, logger)

	// Payment provider
	gateway := newGateway(cfg, logger)
	logger.WithField("provider", gateway.Name()).Info("Payment gateway initialized")

	// Services
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	auditService := services.NewAuditService(paymentEventRepo, logger)
	refundHook := services.NewAuditRefundHook(paymentEventRepo, logger)
	ledger := services.NewCapacityLedger(unitRepo, logger)
	paymentService := services.NewPaymentService(gateway, auditService, cfg, logger)
	bookingService := services.NewBookingService(bookingRepo, unitRepo, ledger, paymentService, auditService, refundHook, cfg, logger)
	reconcileService := services.NewReconcileService(bookingRepo, bookingService, paymentService, logger)
	reviewService := services.NewReviewService(reviewRepo, logger)
	favoriteService := services.NewFavoriteService(favoriteRepo, unitRepo, logger)
	authService := services.NewAuthService(userRepo, jwtService, cfg.Security.BcryptCost, logger)
	rateLimitService := services.NewRateLimitService(db.DB, services.RateLimitConfigFrom(cfg.Booking))

	// Stale-session sweep is opt-in
	var cronService *services.CronService
	if cfg.Reconcile.SweepEnabled {
		cronService = services.NewCronService(reconcileService, cfg.Reconcile, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	// Handlers
	v := validator.New()
	authHandler := handlers.NewAuthHandler(authService, v, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, reconcileService, rateLimitService, v, logger)
	reviewHandler := handlers.NewReviewHandler(reviewService, v, logger)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService, logger)
	adminHandler := handlers.NewAdminHandler(ledger, cronService, v, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Provider redirect target; the session id is the only input and it is
	// checked against the provider before anything changes
	router.GET("/payment/success", bookingHandler.PaymentSuccess)

	authed := router.Group("/")
	authed.Use(middleware.AuthMiddleware(jwtService))
	{
		authed.POST("/book/:unit_id", bookingHandler.CreateBooking)
		authed.GET("/payment/cancel/:booking_id", bookingHandler.PaymentCancel)
		authed.POST("/review/:unit_id", reviewHandler.SubmitReview)
		authed.POST("/favorite/toggle/:unit_id", favoriteHandler.Toggle)
	}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		units := v1.Group("/units")
		{
			units.GET("/:unit_id/reviews", reviewHandler.ListReviews)
			units.GET("/:unit_id/review-eligibility", middleware.AuthMiddleware(jwtService), reviewHandler.Eligibility)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.GET("/my-bookings", bookingHandler.MyBookings)
			protected.GET("/favorites", favoriteHandler.List)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireAdmin())
		{
			admin.GET("/bookings", bookingHandler.ListAllBookings)
			admin.PUT("/units/:unit_id/occupancy", adminHandler.SetOccupancy)

			// Cron management
			admin.GET("/cron/status", adminHandler.CronStatus)
			admin.POST("/cron/reconcile", adminHandler.RunReconcile)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Payment.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cronService != nil {
		logger.Info("Stopping cron service...")
		cronService.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// newGateway picks the checkout provider. The sandbox settles sessions
// immediately in development so the whole flow can be clicked through.
func newGateway(cfg *config.Config, logger *logrus.Logger) payment.Gateway {
	if cfg.Payment.Provider == "stripe" {
		return payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.APIBaseURL, cfg.Payment.RequestTimeout, logger)
	}
	return payment.NewSandboxGateway(cfg.Server.Environment == "development")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		// Query strings carry provider session ids; log them only at debug
		if logger.IsLevelEnabled(logrus.DebugLevel) {
			fields["query"] = c.Request.URL.RawQuery
		}

		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *database.PostgresDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.Healthy(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
