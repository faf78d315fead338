package handlers

import (
	"net/http"

	"github.com/campusstay/reservation-backend/internal/middleware"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FavoriteHandler handles wishlist HTTP requests
type FavoriteHandler struct {
	favorites *services.FavoriteService
	logger    *logrus.Logger
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(favorites *services.FavoriteService, logger *logrus.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favorites: favorites,
		logger:    logger,
	}
}

// Toggle handles POST /favorite/toggle/:unit_id
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	unitID, ok := parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	result, err := h.favorites.Toggle(c.Request.Context(), userCtx.UserID, unitID)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": result})
}

// List handles GET /api/v1/favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	units, err := h.favorites.ListForUser(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(h.logger, c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"units": units,
		"count": len(units),
	})
}
