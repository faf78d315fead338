package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// wantsJSON reports whether the caller is an API client rather than a browser
// form post. Browsers get redirects, API clients get JSON bodies.
func wantsJSON(c *gin.Context) bool {
	if c.ContentType() == gin.MIMEJSON {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// redirectWithError sends the browser to target with an ?error= message
func redirectWithError(c *gin.Context, target, message string) {
	c.Redirect(http.StatusSeeOther, target+"?error="+url.QueryEscape(message))
}

// describeError maps the service error taxonomy to status, code and a user
// facing message. Unknown errors are logged and reported generically.
func describeError(logger *logrus.Logger, c *gin.Context, err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "The requested item no longer exists"}
	case errors.Is(err, services.ErrInvalidBookingRequest):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_booking", Message: userMessage(err)}
	case errors.Is(err, services.ErrPaymentSessionError):
		return http.StatusBadGateway, ErrorResponse{Error: "payment_unavailable", Message: "Payment could not be started, please try again"}
	case errors.Is(err, services.ErrCapacityExceeded):
		return http.StatusConflict, ErrorResponse{Error: "capacity_exceeded", Message: "This accommodation filled up before your payment completed. A refund will be issued."}
	case errors.Is(err, services.ErrNotEligible):
		return http.StatusForbidden, ErrorResponse{Error: "not_eligible", Message: "Only guests with a paid booking can review, once"}
	case errors.Is(err, services.ErrDuplicateReview):
		return http.StatusConflict, ErrorResponse{Error: "duplicate_review", Message: "You have already reviewed this accommodation"}
	case errors.Is(err, services.ErrInvalidReview):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_review", Message: "Rating must be between 1 and 5"}
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, ErrorResponse{Error: "invalid_state", Message: "The booking can no longer be changed"}
	case errors.Is(err, services.ErrReferenceMismatch):
		return http.StatusBadRequest, ErrorResponse{Error: "reference_mismatch", Message: "Payment reference does not match the booking"}
	case errors.Is(err, services.ErrInvalidOccupancy):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_occupancy", Message: err.Error()}
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: "invalid_credentials", Message: "Invalid email or password"}
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("Unhandled request error")
	return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Something went wrong, please try again"}
}

// userMessage strips the taxonomy prefix from a wrapped ErrInvalidBookingRequest
func userMessage(err error) string {
	return strings.TrimPrefix(err.Error(), services.ErrInvalidBookingRequest.Error()+": ")
}

func respondError(logger *logrus.Logger, c *gin.Context, err error) {
	status, body := describeError(logger, c, err)
	c.JSON(status, body)
}

// bindAndValidate binds a JSON or form body into dst and runs its validate tags
func bindAndValidate(c *gin.Context, v *validator.Validator, dst interface{}) *ErrorResponse {
	if err := c.ShouldBind(dst); err != nil {
		return &ErrorResponse{Error: "validation_error", Message: "Invalid request body"}
	}
	if err := v.Validate(dst); err != nil {
		return &ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Fields:  validator.FieldErrors(err),
		}
	}
	return nil
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid " + name + " format",
		})
		return uuid.Nil, false
	}
	return id, true
}
