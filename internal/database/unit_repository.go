package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const unitColumns = `id, title, location, room_type, monthly_price_cents,
	capacity, current_occupancy, is_active, created_at, updated_at`

// UnitRepository handles accommodation unit database operations.
// It is the catalog lookup and the storage half of the capacity ledger.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository creates a new UnitRepository
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// CreateUnit inserts a new unit (used by seeding and maintenance tooling)
func (r *UnitRepository) CreateUnit(ctx context.Context, unit *models.AccommodationUnit) error {
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	now := time.Now()
	unit.CreatedAt = now
	unit.UpdatedAt = now
	unit.IsActive = unit.CurrentOccupancy < unit.Capacity

	query := `
		INSERT INTO accommodation_units (
			id, title, location, room_type, monthly_price_cents,
			capacity, current_occupancy, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		unit.ID, unit.Title, unit.Location, unit.RoomType, unit.MonthlyPriceCents,
		unit.Capacity, unit.CurrentOccupancy, unit.IsActive, unit.CreatedAt, unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}
	return nil
}

// GetUnit retrieves a unit by ID
func (r *UnitRepository) GetUnit(ctx context.Context, id uuid.UUID) (*models.AccommodationUnit, error) {
	var unit models.AccommodationUnit
	query := `SELECT ` + unitColumns + ` FROM accommodation_units WHERE id = $1`

	err := r.db.GetContext(ctx, &unit, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unit: %w", err)
	}
	return &unit, nil
}

// IncrementOccupancy adds one occupant if, and only if, a slot is still free.
// The comparison and the increment happen in one statement, so concurrent
// callers on the same row serialize on the row lock and the loser re-evaluates
// the WHERE clause against the committed value. Returns ErrStaleState when the
// unit is already full.
func (r *UnitRepository) IncrementOccupancy(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*models.AccommodationUnit, error) {
	var unit models.AccommodationUnit
	query := `
		UPDATE accommodation_units
		SET current_occupancy = current_occupancy + 1,
		    is_active = CASE WHEN current_occupancy + 1 >= capacity THEN FALSE ELSE is_active END,
		    updated_at = NOW()
		WHERE id = $1 AND current_occupancy < capacity
		RETURNING ` + unitColumns

	err := sqlx.GetContext(ctx, q, &unit, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment occupancy: %w", err)
	}
	return &unit, nil
}

// SetOccupancy overwrites the occupancy counter (administrative correction).
// Values outside 0..capacity are rejected with ErrStaleState.
func (r *UnitRepository) SetOccupancy(ctx context.Context, id uuid.UUID, occupancy int) (*models.AccommodationUnit, error) {
	var unit models.AccommodationUnit
	query := `
		UPDATE accommodation_units
		SET current_occupancy = $2,
		    is_active = ($2 < capacity),
		    updated_at = NOW()
		WHERE id = $1 AND $2 >= 0 AND $2 <= capacity
		RETURNING ` + unitColumns

	err := r.db.GetContext(ctx, &unit, query, id, occupancy)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetUnit(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set occupancy: %w", err)
	}
	return &unit, nil
}
