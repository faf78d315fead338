package database

import (
	"context"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentEventRepository persists the append-only payment event log
type PaymentEventRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentEventRepository {
	return &PaymentEventRepository{
		db:     db,
		logger: logger,
	}
}

// Log appends a payment event
func (r *PaymentEventRepository) Log(ctx context.Context, event *models.PaymentEvent) error {
	if event == nil {
		return fmt.Errorf("payment event cannot be nil")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_events (
			id, booking_id, payment_reference, event_type, event_source,
			provider_status, amount_cents, error_message,
			ip_address, user_agent, device_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.BookingID, event.PaymentReference, event.EventType, event.EventSource,
		event.ProviderStatus, event.AmountCents, event.ErrorMessage,
		event.IPAddress, event.UserAgent, event.DeviceType, event.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.EventType,
			"booking_id": event.BookingID,
		}).Error("Failed to write payment event")
		return fmt.Errorf("failed to log payment event: %w", err)
	}
	return nil
}

// ListByBooking returns the events recorded for a booking, oldest first
func (r *PaymentEventRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentEvent, error) {
	events := []models.PaymentEvent{}
	query := `
		SELECT id, booking_id, payment_reference, event_type, event_source,
		       provider_status, amount_cents, error_message,
		       ip_address, user_agent, device_type, created_at
		FROM payment_events
		WHERE booking_id = $1
		ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &events, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	return events, nil
}

// HasEvent reports whether an event of the given type was already recorded for the booking
func (r *PaymentEventRepository) HasEvent(ctx context.Context, bookingID uuid.UUID, eventType models.PaymentEventType) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payment_events WHERE booking_id = $1 AND event_type = $2)`
	if err := r.db.GetContext(ctx, &exists, query, bookingID, eventType); err != nil {
		return false, fmt.Errorf("failed to check payment event: %w", err)
	}
	return exists, nil
}
