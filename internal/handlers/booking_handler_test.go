package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_JSONClient(t *testing.T) {
	s := newTestServer(t, false)
	unitID := uuid.New()

	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	s.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	s.mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 1))

	w := s.do(http.MethodPost, "/book/"+unitID.String(), `{"duration":"annual"}`, jsonType, "")

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		BookingID       uuid.UUID `json:"booking_id"`
		Status          string    `json:"status"`
		TotalPriceCents int64     `json:"total_price_cents"`
		PaymentURL      string    `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "awaiting_payment", resp.Status)
	assert.Equal(t, int64(500000), resp.TotalPriceCents)
	assert.Contains(t, resp.PaymentURL, "/payment/success?session_id=cs_sandbox_")
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateBooking_BrowserIsRedirected(t *testing.T) {
	s := newTestServer(t, false)
	unitID := uuid.New()

	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	s.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	s.mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 1))

	w := s.do(http.MethodPost, "/book/"+unitID.String(), "duration=semester", "application/x-www-form-urlencoded", "text/html")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "session_id=cs_sandbox_")
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateBooking_FullUnitRedirectsWithError(t *testing.T) {
	s := newTestServer(t, false)
	unitID := uuid.New()

	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 1, 1, false))
	s.mock.ExpectQuery(`SELECT (.+) FROM accommodation_units`).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 1, 1, false))

	w := s.do(http.MethodPost, "/book/"+unitID.String(), "duration=semester", "application/x-www-form-urlencoded", "")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/accommodation/"+unitID.String()+"?error="))
	assert.Contains(t, location, "fully+booked")
	assert.Empty(t, s.gateway.Sessions())
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateBooking_MissingDuration(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodPost, "/book/"+uuid.NewString(), `{}`, jsonType, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "is required", resp.Fields["duration"])
}

func TestCreateBooking_InvalidUnitID(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodPost, "/book/not-a-uuid", `{"duration":"semester"}`, jsonType, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentSuccess_MissingSession(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/payment/success", "", "", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/?error="))
}

func TestPaymentSuccess_UnknownSession(t *testing.T) {
	s := newTestServer(t, false)

	s.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE payment_reference`).
		WithArgs("cs_unknown").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	w := s.do(http.MethodGet, "/payment/success?session_id=cs_unknown", "", "", jsonType)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestPaymentSuccess_PendingIsAccepted(t *testing.T) {
	s := newTestServer(t, false)
	ref := createSandboxSession(t, s)
	bookingID := uuid.New()

	s.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE payment_reference`).
		WithArgs(ref).
		WillReturnRows(bookingRowFor(bookingID, s.userID, uuid.New(), "awaiting_payment", ref))

	w := s.do(http.MethodGet, "/payment/success?session_id="+ref, "", "", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/my-bookings?pending="+bookingID.String(), w.Header().Get("Location"))
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestPaymentCancel_OtherUsersBooking(t *testing.T) {
	s := newTestServer(t, false)
	bookingID := uuid.New()

	s.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs(bookingID).
		WillReturnRows(bookingRowFor(bookingID, uuid.New(), uuid.New(), "awaiting_payment", "cs_1"))

	w := s.do(http.MethodGet, "/payment/cancel/"+bookingID.String(), "", "", jsonType)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

var bookingCols = []string{
	"id", "user_id", "unit_id", "duration_tier", "months", "total_price_cents",
	"currency", "status", "payment_reference", "cancel_reason",
	"created_at", "updated_at", "paid_at", "cancelled_at",
}

func bookingRowFor(id, userID, unitID uuid.UUID, status, ref string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingCols).AddRow(
		id, userID, unitID, "semester", 5, int64(250000),
		"zar", status, ref, nil,
		now, now, nil, nil,
	)
}

func TestCreateBooking_RateLimited(t *testing.T) {
	s := newTestServerWithLimits(t, false, services.RateLimitConfig{MaxUserAttempts: 3, UserWindow: 10 * time.Minute})

	s.mock.ExpectQuery(`SELECT COUNT(.+) FROM bookings`).
		WithArgs(s.userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(3, time.Now()))

	w := s.do(http.MethodPost, "/book/"+uuid.NewString(), `{"duration":"semester"}`, jsonType, "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"user"`)
	assert.Empty(t, s.gateway.Sessions())
	assert.NoError(t, s.mock.ExpectationsWereMet())
}
