package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/pkg/payment"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentService correlates bookings with checkout sessions at the payment
// provider. It never touches booking state; see ReconcileService.
type PaymentService struct {
	gateway       payment.Gateway
	audit         *AuditService
	currency      string
	publicBaseURL string
	logger        *logrus.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(gateway payment.Gateway, audit *AuditService, cfg *config.Config, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		gateway:       gateway,
		audit:         audit,
		currency:      strings.ToLower(cfg.Payment.Currency),
		publicBaseURL: strings.TrimRight(cfg.Server.PublicBaseURL, "/"),
		logger:        logger,
	}
}

// Currency returns the ISO currency bookings are charged in
func (s *PaymentService) Currency() string {
	return s.currency
}

// SuccessURL is where the provider sends the payer after checkout
func (s *PaymentService) SuccessURL() string {
	return s.publicBaseURL + "/payment/success?session_id=" + payment.SessionIDPlaceholder
}

// CancelURL is where the provider sends the payer who abandons checkout
func (s *PaymentService) CancelURL(bookingID uuid.UUID) string {
	return s.publicBaseURL + "/payment/cancel/" + bookingID.String()
}

// OpenSession asks the provider for a hosted checkout for the booking's total
// and returns the session reference and the payer redirect URL.
// Must not be called inside a database transaction.
func (s *PaymentService) OpenSession(ctx context.Context, booking *models.Booking, unit *models.AccommodationUnit, payerEmail string, meta models.RequestMeta) (string, string, error) {
	req := payment.CheckoutRequest{
		ClientReference: booking.ID.String(),
		AmountCents:     booking.TotalPriceCents,
		Currency:        booking.Currency,
		Description: fmt.Sprintf("%s: %s booking (%d months) - %s room",
			unit.Title, booking.DurationTier.Label(), booking.Months, unit.RoomType),
		CustomerEmail: payerEmail,
		SuccessURL:    s.SuccessURL(),
		CancelURL:     s.CancelURL(booking.ID),
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"provider":   s.gateway.Name(),
		}).Error("Failed to open checkout session")
		s.audit.Record(ctx, models.NewPaymentEvent(models.PaymentEventSessionFailed, models.PaymentSourceBackend).
			SetBooking(booking.ID).
			SetAmount(booking.TotalPriceCents).
			SetError(err).
			SetMetadata(meta))
		return "", "", err
	}

	s.audit.Record(ctx, models.NewPaymentEvent(models.PaymentEventSessionOpened, models.PaymentSourceBackend).
		SetBooking(booking.ID).
		SetReference(session.ID).
		SetAmount(booking.TotalPriceCents).
		SetMetadata(meta))

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  session.ID,
		"provider":   s.gateway.Name(),
	}).Info("Checkout session opened")

	return session.ID, session.RedirectURL, nil
}

// LookupStatus asks the provider for the authoritative status of a session.
// This is the only trusted signal that money moved.
func (s *PaymentService) LookupStatus(ctx context.Context, bookingID uuid.UUID, reference string, meta models.RequestMeta) (*payment.StatusResult, error) {
	result, err := s.gateway.GetSessionStatus(ctx, reference)
	event := models.NewPaymentEvent(models.PaymentEventStatusLookup, models.PaymentSourceProvider).
		SetBooking(bookingID).
		SetReference(reference).
		SetMetadata(meta)
	if err != nil {
		s.audit.Record(ctx, event.SetError(err))
		return nil, fmt.Errorf("failed to look up payment status: %w", err)
	}

	event.SetProviderStatus(result.ProviderStatus)
	if result.AmountCents > 0 {
		event.SetAmount(result.AmountCents)
	}
	s.audit.Record(ctx, event)
	return result, nil
}
