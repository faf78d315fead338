package handlers

import (
	"net/http"

	"github.com/campusstay/reservation-backend/internal/middleware"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReviewHandler handles review HTTP requests
type ReviewHandler struct {
	reviews   *services.ReviewService
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *services.ReviewService, v *validator.Validator, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		validator: v,
		logger:    logger,
	}
}

// SubmitReview handles POST /review/:unit_id
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	unitID, ok := parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}
	unitPage := "/accommodation/" + unitID.String()

	var req models.SubmitReviewRequest
	if errResp := bindAndValidate(c, h.validator, &req); errResp != nil {
		if wantsJSON(c) {
			c.JSON(http.StatusBadRequest, errResp)
			return
		}
		redirectWithError(c, unitPage, "Rating must be between 1 and 5")
		return
	}

	review, err := h.reviews.SubmitReview(c.Request.Context(), userCtx.UserID, unitID, req.Rating, req.Comment)
	if err != nil {
		status, body := describeError(h.logger, c, err)
		if wantsJSON(c) {
			c.JSON(status, body)
			return
		}
		redirectWithError(c, unitPage, body.Message)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"review": review})
		return
	}
	c.Redirect(http.StatusSeeOther, unitPage+"?reviewed=1")
}

// Eligibility handles GET /api/v1/units/:unit_id/review-eligibility
func (h *ReviewHandler) Eligibility(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	unitID, ok := parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	canReview, err := h.reviews.CanReview(c.Request.Context(), userCtx.UserID, unitID)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unit_id":    unitID,
		"can_review": canReview,
	})
}

// ListReviews handles GET /api/v1/units/:unit_id/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	unitID, ok := parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	summary, err := h.reviews.ListForUnit(c.Request.Context(), unitID)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
