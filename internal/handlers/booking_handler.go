package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campusstay/reservation-backend/internal/middleware"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/internal/utils"
	"github.com/campusstay/reservation-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles booking and payment redirect HTTP requests
type BookingHandler struct {
	bookings   *services.BookingService
	reconciler *services.ReconcileService
	limiter    *services.RateLimitService
	validator  *validator.Validator
	logger     *logrus.Logger
}

// NewBookingHandler creates a new booking handler. A nil limiter disables
// booking attempt limits.
func NewBookingHandler(
	bookings *services.BookingService,
	reconciler *services.ReconcileService,
	limiter *services.RateLimitService,
	v *validator.Validator,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookings:   bookings,
		reconciler: reconciler,
		limiter:    limiter,
		validator:  v,
		logger:     logger,
	}
}

// CreateBooking handles POST /book/:unit_id
// Browsers are redirected (303) to the provider's checkout page; JSON clients
// receive the payment URL instead.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "User context not found"})
		return
	}

	unitID, ok := parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}
	unitPage := "/accommodation/" + unitID.String()

	var req models.CreateBookingRequest
	if errResp := bindAndValidate(c, h.validator, &req); errResp != nil {
		if wantsJSON(c) {
			c.JSON(http.StatusBadRequest, errResp)
			return
		}
		redirectWithError(c, unitPage, "Please choose a booking duration")
		return
	}

	if h.limiter != nil {
		err := h.limiter.CheckBookingRateLimit(c.Request.Context(), userCtx.UserID, utils.ClientIP(c))
		var rateLimitErr *services.RateLimitError
		switch {
		case errors.As(err, &rateLimitErr):
			h.logger.WithFields(logrus.Fields{
				"user_id": userCtx.UserID,
				"type":    rateLimitErr.Type,
			}).Warn("Booking rate limit exceeded")
			if wantsJSON(c) {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error":       "rate_limit_exceeded",
					"message":     rateLimitErr.Message,
					"retry_after": rateLimitErr.RetryAfter,
					"type":        rateLimitErr.Type,
				})
				return
			}
			redirectWithError(c, unitPage, rateLimitErr.Message)
			return
		case err != nil:
			// the limiter is an abuse guard; a lookup failure must not block bookings
			h.logger.WithError(err).Warn("Booking rate limit check failed")
		}
	}

	booking, err := h.bookings.Create(c.Request.Context(), userCtx.UserID, unitID, req.Duration)
	if err != nil {
		h.fail(c, unitPage, err)
		return
	}

	paymentURL, err := h.bookings.OpenPaymentSession(c.Request.Context(), booking, userCtx.Email, utils.RequestMetaFromGin(c))
	if err != nil {
		h.fail(c, unitPage, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, models.CreateBookingResponse{
			BookingID:       booking.ID,
			Status:          booking.Status,
			TotalPriceCents: booking.TotalPriceCents,
			Currency:        booking.Currency,
			PaymentURL:      paymentURL,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, paymentURL)
}

// PaymentSuccess handles GET /payment/success?session_id=
// The provider's redirect is only a hint; Reconcile asks the provider for the
// real status before anything changes.
func (h *BookingHandler) PaymentSuccess(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		if wantsJSON(c) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_session", Message: "session_id is required"})
			return
		}
		redirectWithError(c, "/", "Missing payment session")
		return
	}

	booking, err := h.reconciler.Reconcile(c.Request.Context(), sessionID, utils.RequestMetaFromGin(c))
	if err != nil {
		target := "/"
		if booking != nil {
			target = "/accommodation/" + booking.UnitID.String()
		}
		h.fail(c, target, err)
		return
	}

	switch booking.Status {
	case models.BookingStatusPaid:
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "booking": booking})
			return
		}
		c.Redirect(http.StatusSeeOther, "/my-bookings?paid="+booking.ID.String())
	case models.BookingStatusCancelled:
		if wantsJSON(c) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "booking_cancelled", Message: "This booking was cancelled"})
			return
		}
		redirectWithError(c, "/accommodation/"+booking.UnitID.String(), "This booking was cancelled")
	default:
		if wantsJSON(c) {
			c.JSON(http.StatusAccepted, gin.H{"message": "Payment is still processing", "booking": booking})
			return
		}
		c.Redirect(http.StatusSeeOther, "/my-bookings?pending="+booking.ID.String())
	}
}

// PaymentCancel handles GET /payment/cancel/:booking_id
func (h *BookingHandler) PaymentCancel(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "User context not found"})
		return
	}

	bookingID, ok := parseUUIDParam(c, "booking_id")
	if !ok {
		return
	}

	booking, err := h.reconciler.CancelCheckout(c.Request.Context(), bookingID, userCtx.UserID, utils.RequestMetaFromGin(c))
	if err != nil {
		h.fail(c, "/", err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"booking": booking})
		return
	}
	if booking.Status == models.BookingStatusPaid {
		c.Redirect(http.StatusSeeOther, "/my-bookings?paid="+booking.ID.String())
		return
	}
	c.Redirect(http.StatusSeeOther, "/accommodation/"+booking.UnitID.String()+"?cancelled=1")
}

// MyBookings handles GET /api/v1/my-bookings
func (h *BookingHandler) MyBookings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookings, err := h.bookings.ListForUser(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ListAllBookings handles GET /api/v1/admin/bookings?limit=&offset=
func (h *BookingHandler) ListAllBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.bookings.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

// fail reports err as JSON, or redirects a browser to target with the message
func (h *BookingHandler) fail(c *gin.Context, target string, err error) {
	status, body := describeError(h.logger, c, err)
	if wantsJSON(c) {
		c.JSON(status, body)
		return
	}
	if errors.Is(err, services.ErrNotFound) {
		target = "/"
	}
	redirectWithError(c, target, body.Message)
}
