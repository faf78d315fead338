package database

import (
	"context"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FavoriteRepository handles favorite (wishlist) database operations
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository creates a new FavoriteRepository
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Delete removes the (user, unit) favorite and reports whether one existed
func (r *FavoriteRepository) Delete(ctx context.Context, userID, unitID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND unit_id = $2`, userID, unitID)
	if err != nil {
		return false, fmt.Errorf("failed to delete favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

// Create inserts a favorite. Returns ErrConflict if it already exists.
func (r *FavoriteRepository) Create(ctx context.Context, userID, unitID uuid.UUID) (*models.Favorite, error) {
	fav := &models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		UnitID:    unitID,
		CreatedAt: time.Now(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, unit_id, created_at) VALUES ($1, $2, $3, $4)`,
		fav.ID, fav.UserID, fav.UnitID, fav.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create favorite: %w", err)
	}
	return fav, nil
}

// ListUnitsForUser returns the active units a user has favorited
func (r *FavoriteRepository) ListUnitsForUser(ctx context.Context, userID uuid.UUID) ([]models.AccommodationUnit, error) {
	units := []models.AccommodationUnit{}
	query := `
		SELECT u.id, u.title, u.location, u.room_type, u.monthly_price_cents,
		       u.capacity, u.current_occupancy, u.is_active, u.created_at, u.updated_at
		FROM favorites f
		JOIN accommodation_units u ON u.id = f.unit_id
		WHERE f.user_id = $1 AND u.is_active = TRUE
		ORDER BY f.created_at DESC`
	if err := r.db.SelectContext(ctx, &units, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return units, nil
}
