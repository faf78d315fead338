package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, user_id, unit_id, duration_tier, months, total_price_cents,
	currency, status, payment_reference, cancel_reason,
	created_at, updated_at, paid_at, cancelled_at`

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ============================================================================
// CRUD OPERATIONS
// ============================================================================

// Create inserts a booking in the created state
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = uuid.New()
	booking.Status = models.BookingStatusCreated
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			id, user_id, unit_id, duration_tier, months, total_price_cents,
			currency, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.UserID, booking.UnitID, booking.DurationTier, booking.Months,
		booking.TotalPriceCents, booking.Currency, booking.Status, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return r.getOne(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetByReference retrieves the booking correlated with a payment reference
func (r *BookingRepository) GetByReference(ctx context.Context, ref string) (*models.Booking, error) {
	return r.getOne(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference = $1`, ref)
}

// LockByID reads a booking and holds its row lock until the transaction ends
func (r *BookingRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id uuid.UUID) (*models.Booking, error) {
	return r.getOne(ctx, tx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) getOne(ctx context.Context, q sqlx.QueryerContext, query string, arg interface{}) (*models.Booking, error) {
	var booking models.Booking
	err := sqlx.GetContext(ctx, q, &booking, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

// ListByUser returns a user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListAll returns all bookings, newest first (admin view)
func (r *BookingRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &bookings, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListAwaitingPaymentBefore returns bookings still awaiting payment that were
// last touched before cutoff
func (r *BookingRepository) ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'awaiting_payment' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &bookings, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	return bookings, nil
}

// HasPaidBooking reports whether the user holds a settled booking for the unit
func (r *BookingRepository) HasPaidBooking(ctx context.Context, userID, unitID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND unit_id = $2 AND status = 'paid'
		)`
	if err := r.db.GetContext(ctx, &exists, query, userID, unitID); err != nil {
		return false, fmt.Errorf("failed to check paid booking: %w", err)
	}
	return exists, nil
}

// ============================================================================
// STATUS TRANSITIONS (each guarded on the source state)
// ============================================================================

// MarkAwaitingPayment stores the payment reference and moves created -> awaiting_payment
func (r *BookingRepository) MarkAwaitingPayment(ctx context.Context, id uuid.UUID, ref string) error {
	query := `
		UPDATE bookings
		SET status = 'awaiting_payment',
		    payment_reference = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'created'`
	return r.execGuarded(ctx, r.db, query, id, ref)
}

// MarkPaid moves awaiting_payment -> paid
func (r *BookingRepository) MarkPaid(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	query := `
		UPDATE bookings
		SET status = 'paid',
		    paid_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'awaiting_payment'`
	return r.execGuarded(ctx, q, query, id)
}

// MarkCancelled moves created/awaiting_payment -> cancelled.
// Returns ErrStaleState if the booking was already terminal.
func (r *BookingRepository) MarkCancelled(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, reason string) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled',
		    cancel_reason = $2,
		    cancelled_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('created', 'awaiting_payment')`
	return r.execGuarded(ctx, q, query, id, reason)
}

// DB returns the underlying connection pool for transaction boundaries
func (r *BookingRepository) DB() *sqlx.DB {
	return r.db
}

func (r *BookingRepository) execGuarded(ctx context.Context, q sqlx.ExecerContext, query string, args ...interface{}) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleState
	}
	return nil
}
