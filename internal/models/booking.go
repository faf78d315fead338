package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING STATUS & TRANSITIONS (matches bookings.status CHECK constraint)
// ============================================================================

// BookingStatus is the closed set of states a booking can be in
type BookingStatus string

const (
	BookingStatusCreated         BookingStatus = "created"          // Durably created, no payment session yet
	BookingStatusAwaitingPayment BookingStatus = "awaiting_payment" // Payment session opened
	BookingStatusPaid            BookingStatus = "paid"             // Settled, terminal
	BookingStatusCancelled       BookingStatus = "cancelled"        // Terminal
)

// bookingTransitions lists every allowed (from -> to) move. Anything else is rejected.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusCreated:         {BookingStatusAwaitingPayment, BookingStatusCancelled},
	BookingStatusAwaitingPayment: {BookingStatusPaid, BookingStatusCancelled},
	BookingStatusPaid:            {},
	BookingStatusCancelled:       {},
}

// Valid reports whether s is one of the known statuses
func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s
func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether moving from -> to is in the transition table
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cancellation reasons stored on bookings.cancel_reason
const (
	CancelReasonUser                 = "user_cancelled"
	CancelReasonPaymentFailed        = "payment_failed"
	CancelReasonPaymentSessionFailed = "payment_session_failed"
	CancelReasonCapacityExceeded     = "capacity_exceeded"
)

// ============================================================================
// DURATION TIERS
// ============================================================================

// DurationTier is the length of stay a booking is priced for
type DurationTier string

const (
	DurationSemester DurationTier = "semester"
	DurationAnnual   DurationTier = "annual"
)

var tierMonths = map[DurationTier]int{
	DurationSemester: 5,
	DurationAnnual:   10,
}

// ParseDurationTier normalises user input into a known tier
func ParseDurationTier(raw string) (DurationTier, error) {
	tier := DurationTier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := tierMonths[tier]; !ok {
		return "", fmt.Errorf("unknown duration tier %q", raw)
	}
	return tier, nil
}

// Months returns the number of billed months for the tier (0 if unknown)
func (t DurationTier) Months() int {
	return tierMonths[t]
}

// Label returns the human readable tier name, e.g. "Semester"
func (t DurationTier) Label() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ============================================================================
// BOOKING
// ============================================================================

// Booking is a single reservation of one unit by one user
type Booking struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	UserID           uuid.UUID     `json:"user_id" db:"user_id"`
	UnitID           uuid.UUID     `json:"unit_id" db:"unit_id"`
	DurationTier     DurationTier  `json:"duration_tier" db:"duration_tier"`
	Months           int           `json:"months" db:"months"`
	TotalPriceCents  int64         `json:"total_price_cents" db:"total_price_cents"`
	Currency         string        `json:"currency" db:"currency"`
	Status           BookingStatus `json:"status" db:"status"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	CancelReason     *string       `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
	PaidAt           *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// CanTransitionTo reports whether the booking may move to the given status
func (b *Booking) CanTransitionTo(to BookingStatus) bool {
	return CanTransition(b.Status, to)
}

// HasReference reports whether ref is the booking's payment reference
func (b *Booking) HasReference(ref string) bool {
	return b.PaymentReference != nil && ref != "" && *b.PaymentReference == ref
}

// TotalPrice computes the immutable booking price from the unit's monthly price
func TotalPrice(monthlyPriceCents int64, tier DurationTier) int64 {
	return monthlyPriceCents * int64(tier.Months())
}

// ============================================================================
// REQUEST / RESPONSE DTOs
// ============================================================================

// CreateBookingRequest is the body of POST /book/:unit_id
type CreateBookingRequest struct {
	Duration string `json:"duration" form:"duration" validate:"required,max=20"`
}

// CreateBookingResponse is returned to JSON clients instead of a redirect
type CreateBookingResponse struct {
	BookingID       uuid.UUID     `json:"booking_id"`
	Status          BookingStatus `json:"status"`
	TotalPriceCents int64         `json:"total_price_cents"`
	Currency        string        `json:"currency"`
	PaymentURL      string        `json:"payment_url"`
}
