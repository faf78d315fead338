package handlers

import (
	"net/http"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/internal/utils"
	"github.com/campusstay/reservation-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth      *services.AuthService
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService, v *validator.Validator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		validator: v,
		logger:    logger,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if errResp := bindAndValidate(c, h.validator, &req); errResp != nil {
		c.JSON(http.StatusBadRequest, errResp)
		return
	}

	resp, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ip":          utils.ClientIP(c),
			"device_type": utils.DeviceType(c.Request.UserAgent()),
		}).Info("Login rejected")
		respondError(h.logger, c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
