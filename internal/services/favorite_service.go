package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxToggleAttempts = 3

// FavoriteService manages a user's wishlist
type FavoriteService struct {
	favorites *database.FavoriteRepository
	units     *database.UnitRepository
	logger    *logrus.Logger
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(favorites *database.FavoriteRepository, units *database.UnitRepository, logger *logrus.Logger) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		units:     units,
		logger:    logger,
	}
}

// Toggle removes the favorite if present, otherwise adds it. A unique
// violation on insert means a concurrent toggle added it first, so the
// favorite is now present and the loop goes round to remove it.
func (s *FavoriteService) Toggle(ctx context.Context, userID, unitID uuid.UUID) (models.ToggleResult, error) {
	if _, err := s.units.GetUnit(ctx, unitID); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		removed, err := s.favorites.Delete(ctx, userID, unitID)
		if err != nil {
			return "", err
		}
		if removed {
			return models.FavoriteRemoved, nil
		}

		_, err = s.favorites.Create(ctx, userID, unitID)
		if err == nil {
			return models.FavoriteAdded, nil
		}
		if !errors.Is(err, database.ErrConflict) {
			return "", err
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"unit_id": unitID,
			"attempt": attempt,
		}).Debug("Concurrent favorite toggle, retrying")
	}

	return "", fmt.Errorf("favorite toggle did not settle after %d attempts", maxToggleAttempts)
}

// ListForUser returns the active units the user favorited
func (s *FavoriteService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.AccommodationUnit, error) {
	return s.favorites.ListUnitsForUser(ctx, userID)
}
