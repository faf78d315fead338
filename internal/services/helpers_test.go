package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/pkg/payment"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	unitCols = []string{
		"id", "title", "location", "room_type", "monthly_price_cents",
		"capacity", "current_occupancy", "is_active", "created_at", "updated_at",
	}
	bookingCols = []string{
		"id", "user_id", "unit_id", "duration_tier", "months", "total_price_cents",
		"currency", "status", "payment_reference", "cancel_reason",
		"created_at", "updated_at", "paid_at", "cancelled_at",
	}
)

// memoryEventStore keeps payment events in memory
type memoryEventStore struct {
	mu     sync.Mutex
	events []*models.PaymentEvent
}

func (m *memoryEventStore) Log(ctx context.Context, event *models.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memoryEventStore) HasEvent(ctx context.Context, bookingID uuid.UUID, eventType models.PaymentEventType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.EventType == eventType && e.BookingID != nil && *e.BookingID == bookingID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryEventStore) count(eventType models.PaymentEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{PublicBaseURL: "http://localhost:8080"},
		Payment: config.PaymentConfig{Provider: "sandbox", Currency: "zar"},
		Booking: config.BookingConfig{MinimumChargeCents: 50},
		Reconcile: config.ReconcileConfig{
			SweepSchedule: "0 */10 * * * *",
			StaleAfter:    30 * time.Minute,
			BatchSize:     50,
		},
	}
}

// harness wires the real services over a sqlmock database and the sandbox gateway
type harness struct {
	db         *sqlx.DB
	mock       sqlmock.Sqlmock
	gateway    *payment.SandboxGateway
	events     *memoryEventStore
	ledger     *CapacityLedger
	payments   *PaymentService
	bookings   *BookingService
	reconciler *ReconcileService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })

	db := sqlx.NewDb(rawDB, "sqlmock")
	return newHarnessWithDB(db, mock)
}

func newHarnessWithDB(db *sqlx.DB, mock sqlmock.Sqlmock) *harness {
	logger := quietLogger()
	cfg := testConfig()

	bookingRepo := database.NewBookingRepository(db)
	unitRepo := database.NewUnitRepository(db)
	events := &memoryEventStore{}
	audit := NewAuditService(events, logger)
	gateway := payment.NewSandboxGateway(false)

	ledger := NewCapacityLedger(unitRepo, logger)
	payments := NewPaymentService(gateway, audit, cfg, logger)
	bookings := NewBookingService(bookingRepo, unitRepo, ledger, payments, audit, NewAuditRefundHook(events, logger), cfg, logger)

	return &harness{
		db:         db,
		mock:       mock,
		gateway:    gateway,
		events:     events,
		ledger:     ledger,
		payments:   payments,
		bookings:   bookings,
		reconciler: NewReconcileService(bookingRepo, bookings, payments, logger),
	}
}

func unitRow(id uuid.UUID, priceCents int64, capacity, occupancy int, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(unitCols).AddRow(
		id, "Room A", "Braamfontein", "single", priceCents,
		capacity, occupancy, active, now, now,
	)
}

func bookingRow(b *models.Booking) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(
		b.ID, b.UserID, b.UnitID, string(b.DurationTier), b.Months, b.TotalPriceCents,
		b.Currency, string(b.Status), b.PaymentReference, b.CancelReason,
		b.CreatedAt, b.UpdatedAt, b.PaidAt, b.CancelledAt,
	)
}

func newBooking(status models.BookingStatus, ref string) *models.Booking {
	now := time.Now()
	b := &models.Booking{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		UnitID:          uuid.New(),
		DurationTier:    models.DurationSemester,
		Months:          5,
		TotalPriceCents: 250000,
		Currency:        "zar",
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ref != "" {
		b.PaymentReference = &ref
	}
	return b
}

const (
	lockBookingSQL    = `SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`
	getBookingSQL     = `SELECT (.+) FROM bookings WHERE id = \$1`
	bookingByRefSQL   = `SELECT (.+) FROM bookings WHERE payment_reference`
	getUnitSQL        = `SELECT (.+) FROM accommodation_units WHERE id`
	updateUnitSQL     = `UPDATE accommodation_units`
	updateBookingSQL  = `UPDATE bookings`
	insertBookingSQL  = `INSERT INTO bookings`
	reviewEligibleSQL = `SELECT EXISTS`
)
