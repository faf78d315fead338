package database

import (
	"context"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReviewRepository handles review database operations
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Eligibility reports whether the user has a paid booking for the unit and
// whether they already reviewed it, read in one snapshot
func (r *ReviewRepository) Eligibility(ctx context.Context, userID, unitID uuid.UUID) (hasPaid bool, hasReview bool, err error) {
	var row struct {
		HasPaid   bool `db:"has_paid"`
		HasReview bool `db:"has_review"`
	}
	query := `
		SELECT
			EXISTS (SELECT 1 FROM bookings WHERE user_id = $1 AND unit_id = $2 AND status = 'paid') AS has_paid,
			EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND unit_id = $2) AS has_review`
	if err := r.db.GetContext(ctx, &row, query, userID, unitID); err != nil {
		return false, false, fmt.Errorf("failed to check review eligibility: %w", err)
	}
	return row.HasPaid, row.HasReview, nil
}

// CreateIfEligible inserts the review only if a paid booking exists at write
// time. Returns ErrStaleState when no paid booking exists and ErrConflict when
// a review for (user, unit) already exists.
func (r *ReviewRepository) CreateIfEligible(ctx context.Context, review *models.Review) error {
	review.ID = uuid.New()
	review.CreatedAt = time.Now()

	query := `
		INSERT INTO reviews (id, user_id, unit_id, rating, comment, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $2 AND unit_id = $3 AND status = 'paid'
		)`

	result, err := r.db.ExecContext(ctx, query,
		review.ID, review.UserID, review.UnitID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleState
	}
	return nil
}

// ListByUnit returns a unit's reviews, newest first
func (r *ReviewRepository) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]models.Review, error) {
	reviews := []models.Review{}
	query := `
		SELECT id, user_id, unit_id, rating, comment, created_at
		FROM reviews
		WHERE unit_id = $1
		ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &reviews, query, unitID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
