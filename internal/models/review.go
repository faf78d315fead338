package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is one user's rating of one unit. At most one per (user, unit).
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	UnitID    uuid.UUID `json:"unit_id" db:"unit_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SubmitReviewRequest is the body of POST /review/:unit_id
type SubmitReviewRequest struct {
	Rating  int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" form:"comment" validate:"max=2000"`
}

// ReviewSummary aggregates reviews of a unit
type ReviewSummary struct {
	UnitID        uuid.UUID `json:"unit_id"`
	Count         int       `json:"count"`
	AverageRating float64   `json:"average_rating"`
	Reviews       []Review  `json:"reviews"`
}
