package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxReviewCommentLength = 2000

// ReviewService gates reviews on a paid booking
type ReviewService struct {
	reviews *database.ReviewRepository
	logger  *logrus.Logger
}

// NewReviewService creates a new review service
func NewReviewService(reviews *database.ReviewRepository, logger *logrus.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		logger:  logger,
	}
}

// CanReview is true iff the user holds a paid booking for the unit and has
// not reviewed it yet
func (s *ReviewService) CanReview(ctx context.Context, userID, unitID uuid.UUID) (bool, error) {
	hasPaid, hasReview, err := s.reviews.Eligibility(ctx, userID, unitID)
	if err != nil {
		return false, err
	}
	return hasPaid && !hasReview, nil
}

// SubmitReview stores a review. Eligibility is checked again by the insert
// itself, so a review can never land without a paid booking.
func (s *ReviewService) SubmitReview(ctx context.Context, userID, unitID uuid.UUID, rating int, comment string) (*models.Review, error) {
	comment = strings.TrimSpace(comment)
	if rating < 1 || rating > 5 || utf8.RuneCountInString(comment) > maxReviewCommentLength {
		return nil, ErrInvalidReview
	}

	ok, err := s.CanReview(ctx, userID, unitID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotEligible
	}

	review := &models.Review{
		UserID:  userID,
		UnitID:  unitID,
		Rating:  rating,
		Comment: comment,
	}
	err = s.reviews.CreateIfEligible(ctx, review)
	switch {
	case errors.Is(err, database.ErrStaleState):
		return nil, ErrNotEligible
	case errors.Is(err, database.ErrConflict):
		return nil, ErrDuplicateReview
	case err != nil:
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"review_id": review.ID,
		"user_id":   userID,
		"unit_id":   unitID,
		"rating":    rating,
	}).Info("Review submitted")
	return review, nil
}

// ListForUnit returns a unit's reviews and their average rating
func (s *ReviewService) ListForUnit(ctx context.Context, unitID uuid.UUID) (*models.ReviewSummary, error) {
	reviews, err := s.reviews.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}

	summary := &models.ReviewSummary{
		UnitID:  unitID,
		Count:   len(reviews),
		Reviews: reviews,
	}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		summary.AverageRating = math.Round(float64(total)/float64(len(reviews))*10) / 10
	}
	return summary, nil
}
