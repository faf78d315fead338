package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// BookingService drives a booking through created -> awaiting_payment ->
// paid, or to cancelled. Every status change is a guarded update on the
// expected source state.
type BookingService struct {
	bookings           *database.BookingRepository
	units              *database.UnitRepository
	ledger             *CapacityLedger
	payments           *PaymentService
	audit              *AuditService
	refunds            RefundHook
	minimumChargeCents int64
	logger             *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings *database.BookingRepository,
	units *database.UnitRepository,
	ledger *CapacityLedger,
	payments *PaymentService,
	audit *AuditService,
	refunds RefundHook,
	cfg *config.Config,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:           bookings,
		units:              units,
		ledger:             ledger,
		payments:           payments,
		audit:              audit,
		refunds:            refunds,
		minimumChargeCents: cfg.Booking.MinimumChargeCents,
		logger:             logger,
	}
}

// Create validates the request and inserts a booking in the created state.
// Nothing is sent to the payment provider.
func (s *BookingService) Create(ctx context.Context, userID, unitID uuid.UUID, rawTier string) (*models.Booking, error) {
	unit, err := s.units.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}

	tier, err := models.ParseDurationTier(rawTier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBookingRequest, err)
	}

	available, err := s.ledger.ReserveIfAvailable(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("%w: this accommodation is fully booked", ErrInvalidBookingRequest)
	}

	total := models.TotalPrice(unit.MonthlyPriceCents, tier)
	if total < s.minimumChargeCents {
		return nil, fmt.Errorf("%w: total of %d cents is below the minimum charge of %d cents",
			ErrInvalidBookingRequest, total, s.minimumChargeCents)
	}

	booking := &models.Booking{
		UserID:          userID,
		UnitID:          unitID,
		DurationTier:    tier,
		Months:          tier.Months(),
		TotalPriceCents: total,
		Currency:        s.payments.Currency(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"user_id":      userID,
		"unit_id":      unitID,
		"tier":         tier,
		"amount_cents": total,
	}).Info("Booking created")

	return booking, nil
}

// OpenPaymentSession opens a checkout session for a created booking and moves
// it to awaiting_payment. If the provider fails, or the reference cannot be
// stored, the booking is cancelled and ErrPaymentSessionError is returned. Returns the payer redirect URL.
func (s *BookingService) OpenPaymentSession(ctx context.Context, booking *models.Booking, payerEmail string, meta models.RequestMeta) (string, error) {
	if !booking.CanTransitionTo(models.BookingStatusAwaitingPayment) {
		return "", ErrInvalidTransition
	}

	unit, err := s.units.GetUnit(ctx, booking.UnitID)
	if err != nil {
		return "", err
	}

	reference, redirectURL, err := s.payments.OpenSession(ctx, booking, unit, payerEmail, meta)
	if err != nil {
		if _, cancelErr := s.Cancel(ctx, booking.ID, models.CancelReasonPaymentSessionFailed); cancelErr != nil {
			s.logger.WithError(cancelErr).WithField("booking_id", booking.ID).
				Error("Failed to cancel booking after payment session failure")
		}
		return "", fmt.Errorf("%w: %v", ErrPaymentSessionError, err)
	}

	if err := s.bookings.MarkAwaitingPayment(ctx, booking.ID, reference); err != nil {
		if errors.Is(err, database.ErrStaleState) {
			return "", ErrInvalidTransition
		}
		// The provider session is live but unreferenced; never leave the booking in created
		s.audit.Record(ctx, models.NewPaymentEvent(models.PaymentEventSessionFailed, models.PaymentSourceBackend).
			SetBooking(booking.ID).
			SetReference(reference).
			SetAmount(booking.TotalPriceCents).
			SetError(err).
			SetMetadata(meta))
		if _, cancelErr := s.Cancel(ctx, booking.ID, models.CancelReasonPaymentSessionFailed); cancelErr != nil {
			s.logger.WithError(cancelErr).WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"reference":  reference,
			}).Error("Failed to cancel booking after storing payment reference failed")
		}
		return "", fmt.Errorf("%w: %v", ErrPaymentSessionError, err)
	}

	booking.Status = models.BookingStatusAwaitingPayment
	booking.PaymentReference = &reference
	return redirectURL, nil
}

// ConfirmSettlement marks an awaiting_payment booking paid and consumes one
// slot, atomically. It is idempotent: a paid booking is returned unchanged.
// When the unit filled up first, the booking is cancelled in the same
// transaction, the refund hook runs, and ErrCapacityExceeded is returned
// together with the cancelled booking.
func (s *BookingService) ConfirmSettlement(ctx context.Context, bookingID uuid.UUID, reference string) (*models.Booking, error) {
	var (
		result           *models.Booking
		capacityExceeded bool
		alreadyCancelled bool
		justPaid         bool
	)

	err := database.WithTx(ctx, s.bookings.DB(), func(tx *sqlx.Tx) error {
		capacityExceeded, alreadyCancelled, justPaid = false, false, false

		booking, err := s.bookings.LockByID(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		result = booking

		switch booking.Status {
		case models.BookingStatusPaid:
			return nil
		case models.BookingStatusCancelled:
			alreadyCancelled = true
			return nil
		case models.BookingStatusCreated:
			return ErrInvalidTransition
		}

		if !booking.HasReference(reference) {
			return ErrReferenceMismatch
		}

		if _, err := s.ledger.CommitOccupant(ctx, tx, booking.UnitID); err != nil {
			if !errors.Is(err, ErrCapacityExceeded) {
				return err
			}
			if err := s.bookings.MarkCancelled(ctx, tx, booking.ID, models.CancelReasonCapacityExceeded); err != nil {
				return err
			}
			now := time.Now()
			reason := models.CancelReasonCapacityExceeded
			booking.Status = models.BookingStatusCancelled
			booking.CancelReason = &reason
			booking.CancelledAt = &now
			capacityExceeded = true
			return nil
		}

		if err := s.bookings.MarkPaid(ctx, tx, booking.ID); err != nil {
			return err
		}
		now := time.Now()
		booking.Status = models.BookingStatusPaid
		booking.PaidAt = &now
		justPaid = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case capacityExceeded:
		s.logger.WithFields(logrus.Fields{
			"booking_id": result.ID,
			"unit_id":    result.UnitID,
			"reference":  reference,
		}).Warn("Settlement lost the race for the last slot")
		s.audit.Record(ctx, models.NewPaymentEvent(models.PaymentEventCapacityExceeded, models.PaymentSourceSystem).
			SetBooking(result.ID).
			SetReference(reference).
			SetAmount(result.TotalPriceCents))
		s.requestRefund(ctx, result, models.CancelReasonCapacityExceeded)
		return result, ErrCapacityExceeded

	case alreadyCancelled:
		// money arrived for a booking that had already been cancelled
		if result.HasReference(reference) {
			s.requestRefund(ctx, result, "settled_after_cancel")
		}
		return result, nil

	case justPaid:
		s.audit.Record(ctx, models.NewPaymentEvent(models.PaymentEventSettled, models.PaymentSourceProvider).
			SetBooking(result.ID).
			SetReference(reference).
			SetAmount(result.TotalPriceCents))
		s.logger.WithFields(logrus.Fields{
			"booking_id": result.ID,
			"unit_id":    result.UnitID,
		}).Info("Booking paid")
	}

	return result, nil
}

// Cancel moves a created or awaiting_payment booking to cancelled.
// Cancelling a cancelled booking is a no-op; a paid booking cannot be cancelled.
// Occupancy is never released here since only paid bookings hold a slot.
func (s *BookingService) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	var (
		result  *models.Booking
		changed bool
	)

	err := database.WithTx(ctx, s.bookings.DB(), func(tx *sqlx.Tx) error {
		changed = false

		booking, err := s.bookings.LockByID(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		result = booking

		if booking.Status == models.BookingStatusCancelled {
			return nil
		}
		if !booking.CanTransitionTo(models.BookingStatusCancelled) {
			return ErrInvalidTransition
		}

		if err := s.bookings.MarkCancelled(ctx, tx, booking.ID, reason); err != nil {
			return err
		}
		now := time.Now()
		booking.Status = models.BookingStatusCancelled
		booking.CancelReason = &reason
		booking.CancelledAt = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		event := models.NewPaymentEvent(models.PaymentEventCancelled, models.PaymentSourceBackend).
			SetBooking(result.ID).
			SetProviderStatus(reason)
		if result.PaymentReference != nil {
			event.SetReference(*result.PaymentReference)
		}
		s.audit.Record(ctx, event)

		s.logger.WithFields(logrus.Fields{
			"booking_id": result.ID,
			"reason":     reason,
		}).Info("Booking cancelled")
	}

	return result, nil
}

// Get returns a booking by id
func (s *BookingService) Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

// ListForUser returns the user's bookings, newest first
func (s *BookingService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// ListAll returns every booking, newest first (admin view)
func (s *BookingService) ListAll(ctx context.Context, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookings.ListAll(ctx, limit, offset)
}

func (s *BookingService) requestRefund(ctx context.Context, booking *models.Booking, cause string) {
	if err := s.refunds.RequestRefund(ctx, booking, cause); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"cause":      cause,
		}).Error("Refund hook failed")
	}
}
