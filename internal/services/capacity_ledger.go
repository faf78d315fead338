package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// CapacityLedger owns the occupancy counter of every unit.
// Only CommitOccupant and CorrectOccupancy change it.
type CapacityLedger struct {
	units  *database.UnitRepository
	logger *logrus.Logger
}

// NewCapacityLedger creates a new CapacityLedger
func NewCapacityLedger(units *database.UnitRepository, logger *logrus.Logger) *CapacityLedger {
	return &CapacityLedger{
		units:  units,
		logger: logger,
	}
}

// ReserveIfAvailable reports whether the unit is active and has a free slot
// right now. It is advisory: nothing is held, and a later CommitOccupant may
// still fail.
func (l *CapacityLedger) ReserveIfAvailable(ctx context.Context, unitID uuid.UUID) (bool, error) {
	unit, err := l.units.GetUnit(ctx, unitID)
	if err != nil {
		return false, err
	}
	return unit.IsActive && !unit.IsFull(), nil
}

// CommitOccupant consumes one slot inside the settling transaction.
// Returns ErrCapacityExceeded if the unit is already full.
func (l *CapacityLedger) CommitOccupant(ctx context.Context, tx sqlx.ExtContext, unitID uuid.UUID) (*models.AccommodationUnit, error) {
	unit, err := l.units.IncrementOccupancy(ctx, tx, unitID)
	if errors.Is(err, database.ErrStaleState) {
		return nil, ErrCapacityExceeded
	}
	if err != nil {
		return nil, err
	}

	if !unit.IsActive {
		l.logger.WithFields(logrus.Fields{
			"unit_id":   unit.ID,
			"occupancy": unit.CurrentOccupancy,
			"capacity":  unit.Capacity,
		}).Info("Unit reached capacity and was deactivated")
	}
	return unit, nil
}

// CorrectOccupancy overwrites the counter (administrative correction) and
// recomputes the active flag
func (l *CapacityLedger) CorrectOccupancy(ctx context.Context, unitID uuid.UUID, occupancy int) (*models.AccommodationUnit, error) {
	if occupancy < 0 {
		return nil, ErrInvalidOccupancy
	}

	unit, err := l.units.SetOccupancy(ctx, unitID, occupancy)
	if errors.Is(err, database.ErrStaleState) {
		return nil, ErrInvalidOccupancy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to correct occupancy: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"unit_id":   unit.ID,
		"occupancy": unit.CurrentOccupancy,
		"capacity":  unit.Capacity,
		"is_active": unit.IsActive,
	}).Warn("Occupancy corrected by administrator")
	return unit, nil
}
