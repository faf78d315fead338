package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite marks a unit as wishlisted by a user
type Favorite struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	UnitID    uuid.UUID `json:"unit_id" db:"unit_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ToggleResult is what a favorite toggle did
type ToggleResult string

const (
	FavoriteAdded   ToggleResult = "added"
	FavoriteRemoved ToggleResult = "removed"
)
