package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
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

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func unitRow(id uuid.UUID, capacity, occupancy int, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(unitCols).AddRow(
		id, "Room A", "Braamfontein", "single", int64(50000),
		capacity, occupancy, active, now, now,
	)
}

func bookingRow(id, userID, unitID uuid.UUID, status models.BookingStatus, ref *string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingCols).AddRow(
		id, userID, unitID, "semester", 5, int64(250000),
		"zar", string(status), ref, nil,
		now, now, nil, nil,
	)
}
