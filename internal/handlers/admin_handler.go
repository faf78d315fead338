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

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	ledger    *services.CapacityLedger
	cron      *services.CronService
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler. cron may be nil when the
// sweep is disabled.
func NewAdminHandler(
	ledger *services.CapacityLedger,
	cron *services.CronService,
	v *validator.Validator,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		cron:      cron,
		validator: v,
		logger:    logger,
	}
}

// SetOccupancy handles PUT /api/v1/admin/units/:unit_id/occupancy
func (h *AdminHandler) SetOccupancy(c *gin.Context) {
	unitID, ok := parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	var req models.SetOccupancyRequest
	if errResp := bindAndValidate(c, h.validator, &req); errResp != nil {
		c.JSON(http.StatusBadRequest, errResp)
		return
	}

	unit, err := h.ledger.CorrectOccupancy(c.Request.Context(), unitID, *req.Occupancy)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id":  middleware.MustGetUserContext(c).UserID,
		"unit_id":   unitID,
		"occupancy": unit.CurrentOccupancy,
	}).Info("Admin corrected occupancy")

	c.JSON(http.StatusOK, gin.H{"unit": unit})
}

// CronStatus handles GET /api/v1/admin/cron/status
func (h *AdminHandler) CronStatus(c *gin.Context) {
	if h.cron == nil {
		c.JSON(http.StatusOK, gin.H{"running": false, "job_count": 0})
		return
	}
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}

// RunReconcile handles POST /api/v1/admin/cron/reconcile
func (h *AdminHandler) RunReconcile(c *gin.Context) {
	if h.cron == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "sweep_disabled",
			Message: "Reconcile sweep is not enabled",
		})
		return
	}

	changed, err := h.cron.RunReconcileNow(c.Request.Context())
	if err != nil {
		respondError(h.logger, c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Reconcile sweep finished",
		"changed": changed,
	})
}
