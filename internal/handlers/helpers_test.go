package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/middleware"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/pkg/payment"
	"github.com/campusstay/reservation-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var unitCols = []string{
	"id", "title", "location", "room_type", "monthly_price_cents",
	"capacity", "current_occupancy", "is_active", "created_at", "updated_at",
}

type discardEvents struct{}

func (discardEvents) Log(ctx context.Context, event *models.PaymentEvent) error { return nil }

func (discardEvents) HasEvent(ctx context.Context, bookingID uuid.UUID, eventType models.PaymentEventType) (bool, error) {
	return false, nil
}

type testServer struct {
	router  *gin.Engine
	mock    sqlmock.Sqlmock
	gateway *payment.SandboxGateway
	userID  uuid.UUID
}

// newTestServer wires real services over sqlmock and mounts the routes under
// test behind a fake authenticated user
func newTestServer(t *testing.T, admin bool) *testServer {
	return newTestServerWithLimits(t, admin, services.RateLimitConfig{})
}

func newTestServerWithLimits(t *testing.T, admin bool, limits services.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	db := sqlx.NewDb(rawDB, "sqlmock")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Server:  config.ServerConfig{PublicBaseURL: "http://localhost:8080"},
		Payment: config.PaymentConfig{Provider: "sandbox", Currency: "zar"},
		Booking: config.BookingConfig{MinimumChargeCents: 50},
	}

	bookingRepo := database.NewBookingRepository(db)
	unitRepo := database.NewUnitRepository(db)
	audit := services.NewAuditService(discardEvents{}, logger)
	gateway := payment.NewSandboxGateway(false)
	ledger := services.NewCapacityLedger(unitRepo, logger)
	payments := services.NewPaymentService(gateway, audit, cfg, logger)
	bookings := services.NewBookingService(bookingRepo, unitRepo, ledger, payments, audit,
		services.NewAuditRefundHook(discardEvents{}, logger), cfg, logger)
	reconciler := services.NewReconcileService(bookingRepo, bookings, payments, logger)
	reviews := services.NewReviewService(database.NewReviewRepository(db), logger)
	favorites := services.NewFavoriteService(database.NewFavoriteRepository(db), unitRepo, logger)

	v := validator.New()
	var limiter *services.RateLimitService
	if limits != (services.RateLimitConfig{}) {
		limiter = services.NewRateLimitService(db, limits)
	}
	bookingHandler := NewBookingHandler(bookings, reconciler, limiter, v, logger)
	reviewHandler := NewReviewHandler(reviews, v, logger)
	favoriteHandler := NewFavoriteHandler(favorites, logger)
	adminHandler := NewAdminHandler(ledger, nil, v, logger)

	userID := uuid.New()
	roles := []string{"student"}
	if admin {
		roles = append(roles, "admin")
	}
	fakeAuth := func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID: userID,
			Email:  "student@example.com",
			Roles:  roles,
		})
		c.Next()
	}

	router := gin.New()
	router.GET("/payment/success", bookingHandler.PaymentSuccess)

	authed := router.Group("/", fakeAuth)
	authed.POST("/book/:unit_id", bookingHandler.CreateBooking)
	authed.GET("/payment/cancel/:booking_id", bookingHandler.PaymentCancel)
	authed.POST("/review/:unit_id", reviewHandler.SubmitReview)
	authed.POST("/favorite/toggle/:unit_id", favoriteHandler.Toggle)
	authed.GET("/api/v1/units/:unit_id/review-eligibility", reviewHandler.Eligibility)
	authed.PUT("/api/v1/admin/units/:unit_id/occupancy", middleware.RequireAdmin(), adminHandler.SetOccupancy)
	authed.GET("/api/v1/admin/cron/status", middleware.RequireAdmin(), adminHandler.CronStatus)

	return &testServer{router: router, mock: mock, gateway: gateway, userID: userID}
}

func (s *testServer) do(method, path, body, contentType, accept string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func unitRow(id uuid.UUID, priceCents int64, capacity, occupancy int, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(unitCols).AddRow(
		id, "Room A", "Braamfontein", "single", priceCents,
		capacity, occupancy, active, now, now,
	)
}

const jsonType = "application/json"
