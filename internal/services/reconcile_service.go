package services

import (
	"context"
	"errors"
	"time"

	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/pkg/payment"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReconcileService applies the provider's authoritative session status to
// the correlated booking. Every entry point (success redirect, cancel
// redirect, sweep, CLI) goes through Reconcile, so applying the same status
// twice changes nothing.
type ReconcileService struct {
	bookingRepo *database.BookingRepository
	bookings    *BookingService
	payments    *PaymentService
	logger      *logrus.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	bookingRepo *database.BookingRepository,
	bookings *BookingService,
	payments *PaymentService,
	logger *logrus.Logger,
) *ReconcileService {
	return &ReconcileService{
		bookingRepo: bookingRepo,
		bookings:    bookings,
		payments:    payments,
		logger:      logger,
	}
}

// Reconcile looks the reference up at the provider and moves the booking:
// settled -> paid (or cancelled with ErrCapacityExceeded), failed ->
// cancelled, pending -> unchanged. Unknown references return ErrNotFound.
func (s *ReconcileService) Reconcile(ctx context.Context, reference string, meta models.RequestMeta) (*models.Booking, error) {
	if reference == "" {
		return nil, ErrNotFound
	}

	booking, err := s.bookingRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	status, err := s.payments.LookupStatus(ctx, booking.ID, reference, meta)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":      booking.ID,
		"booking_status":  booking.Status,
		"provider_status": status.ProviderStatus,
		"status":          status.Status,
	}).Debug("Reconciling booking with provider status")

	switch status.Status {
	case payment.StatusSettled:
		return s.bookings.ConfirmSettlement(ctx, booking.ID, reference)

	case payment.StatusFailed:
		cancelled, err := s.bookings.Cancel(ctx, booking.ID, models.CancelReasonPaymentFailed)
		if errors.Is(err, ErrInvalidTransition) {
			// already paid; the provider's failure refers to a retried attempt
			return s.bookings.Get(ctx, booking.ID)
		}
		return cancelled, err

	default:
		return booking, nil
	}
}

// CancelCheckout handles a payer returning from the provider's cancel page.
// The provider is consulted first so a payment that did go through is never
// discarded; only a still-unsettled booking is cancelled.
func (s *ReconcileService) CancelCheckout(ctx context.Context, bookingID, userID uuid.UUID, meta models.RequestMeta) (*models.Booking, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotFound
	}
	if booking.Status.IsTerminal() {
		return booking, nil
	}

	if booking.PaymentReference != nil {
		booking, err = s.Reconcile(ctx, *booking.PaymentReference, meta)
		if err != nil {
			return booking, err
		}
		if booking.Status.IsTerminal() {
			return booking, nil
		}
	}

	return s.bookings.Cancel(ctx, bookingID, models.CancelReasonUser)
}

// SweepStale reconciles awaiting_payment bookings untouched for longer than
// staleAfter. It only applies provider status; a booking the provider still
// reports pending stays awaiting_payment. Returns how many bookings changed.
func (s *ReconcileService) SweepStale(ctx context.Context, staleAfter time.Duration, batchSize int) (int, error) {
	stale, err := s.bookingRepo.ListAwaitingPaymentBefore(ctx, time.Now().Add(-staleAfter), batchSize)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, b := range stale {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if b.PaymentReference == nil {
			continue
		}

		result, err := s.Reconcile(ctx, *b.PaymentReference, models.RequestMeta{})
		if err != nil && !errors.Is(err, ErrCapacityExceeded) {
			s.logger.WithError(err).WithField("booking_id", b.ID).Warn("Sweep could not reconcile booking")
			continue
		}
		if result != nil && result.Status != b.Status {
			changed++
		}
	}

	return changed, nil
}
