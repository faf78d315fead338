package models

import (
	"time"

	"github.com/google/uuid"
)

// AccommodationUnit is a bookable dwelling listing with a fixed capacity.
// CurrentOccupancy is only ever changed by the capacity ledger.
type AccommodationUnit struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	Location          string    `json:"location" db:"location"`
	RoomType          string    `json:"room_type" db:"room_type"`
	MonthlyPriceCents int64     `json:"monthly_price_cents" db:"monthly_price_cents"`
	Capacity          int       `json:"capacity" db:"capacity"`
	CurrentOccupancy  int       `json:"current_occupancy" db:"current_occupancy"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// AvailableSpots returns how many occupants can still settle on the unit
func (u *AccommodationUnit) AvailableSpots() int {
	if u.CurrentOccupancy >= u.Capacity {
		return 0
	}
	return u.Capacity - u.CurrentOccupancy
}

// IsFull reports whether occupancy has reached capacity
func (u *AccommodationUnit) IsFull() bool {
	return u.CurrentOccupancy >= u.Capacity
}

// SetOccupancyRequest is the body of PUT /api/v1/admin/units/:unit_id/occupancy
type SetOccupancyRequest struct {
	Occupancy *int `json:"occupancy" validate:"required,min=0"`
}
