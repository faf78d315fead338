package services

import (
	"context"
	"fmt"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentEventStore persists payment events.
// Implemented by database.PaymentEventRepository.
type PaymentEventStore interface {
	Log(ctx context.Context, event *models.PaymentEvent) error
	HasEvent(ctx context.Context, bookingID uuid.UUID, eventType models.PaymentEventType) (bool, error)
}

// AuditService records payment events. Recording is best effort: a failed
// write is logged and never fails the operation being audited.
type AuditService struct {
	store  PaymentEventStore
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store PaymentEventStore, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
	}
}

// Record writes an event
func (s *AuditService) Record(ctx context.Context, event *models.PaymentEvent) {
	if err := s.store.Log(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.EventType,
			"booking_id": event.BookingID,
		}).Warn("Payment event not recorded")
	}
}

// RefundHook is invoked whenever money was taken for a booking that did not
// end up paid. Implementations must be idempotent per booking.
type RefundHook interface {
	RequestRefund(ctx context.Context, booking *models.Booking, cause string) error
}

// AuditRefundHook records a refund_required event and raises an error-level
// log line for operators. It is the default when no automated refund is wired.
type AuditRefundHook struct {
	store  PaymentEventStore
	logger *logrus.Logger
}

// NewAuditRefundHook creates the default refund hook
func NewAuditRefundHook(store PaymentEventStore, logger *logrus.Logger) *AuditRefundHook {
	return &AuditRefundHook{
		store:  store,
		logger: logger,
	}
}

// RequestRefund records the refund request once per booking
func (h *AuditRefundHook) RequestRefund(ctx context.Context, booking *models.Booking, cause string) error {
	exists, err := h.store.HasEvent(ctx, booking.ID, models.PaymentEventRefundRequired)
	if err != nil {
		return fmt.Errorf("failed to check refund state: %w", err)
	}
	if exists {
		return nil
	}

	event := models.NewPaymentEvent(models.PaymentEventRefundRequired, models.PaymentSourceSystem).
		SetBooking(booking.ID).
		SetAmount(booking.TotalPriceCents).
		SetProviderStatus(cause)
	if booking.PaymentReference != nil {
		event.SetReference(*booking.PaymentReference)
	}
	if err := h.store.Log(ctx, event); err != nil {
		return fmt.Errorf("failed to record refund request: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"booking_id":    booking.ID,
		"has_reference": booking.PaymentReference != nil,
		"amount_cents":  booking.TotalPriceCents,
		"currency":      booking.Currency,
		"cause":         cause,
	}).Error("Refund required: payment settled for a booking that is not paid")
	return nil
}
