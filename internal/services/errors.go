package services

import (
	"errors"

	"github.com/campusstay/reservation-backend/internal/database"
)

// Error taxonomy surfaced to handlers. Compare with errors.Is.
var (
	// ErrNotFound is a stale reference or a deleted entity
	ErrNotFound = database.ErrNotFound

	// ErrInvalidBookingRequest is user-correctable bad input, a full unit or a
	// price below the provider's minimum charge
	ErrInvalidBookingRequest = errors.New("invalid booking request")

	// ErrPaymentSessionError means the provider was unreachable or rejected the session
	ErrPaymentSessionError = errors.New("payment session could not be opened")

	// ErrCapacityExceeded means the last slot was taken by a concurrent settlement
	ErrCapacityExceeded = errors.New("unit capacity exceeded")

	// ErrNotEligible means the user has no paid booking for the unit or already reviewed it
	ErrNotEligible = errors.New("not eligible to review this unit")

	// ErrDuplicateReview means a concurrent submission for the same (user, unit) won
	ErrDuplicateReview = errors.New("review already submitted")

	ErrInvalidTransition  = errors.New("invalid booking status transition")
	ErrReferenceMismatch  = errors.New("payment reference does not match booking")
	ErrInvalidReview      = errors.New("invalid review")
	ErrInvalidOccupancy   = errors.New("occupancy must be between 0 and capacity")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
