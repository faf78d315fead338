package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		allowed  bool
	}{
		{BookingStatusCreated, BookingStatusAwaitingPayment, true},
		{BookingStatusCreated, BookingStatusCancelled, true},
		{BookingStatusCreated, BookingStatusPaid, false},
		{BookingStatusAwaitingPayment, BookingStatusPaid, true},
		{BookingStatusAwaitingPayment, BookingStatusCancelled, true},
		{BookingStatusAwaitingPayment, BookingStatusCreated, false},
		{BookingStatusPaid, BookingStatusCancelled, false},
		{BookingStatusPaid, BookingStatusPaid, false},
		{BookingStatusCancelled, BookingStatusAwaitingPayment, false},
		{BookingStatus("approved"), BookingStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBookingStatus_Terminal(t *testing.T) {
	assert.True(t, BookingStatusPaid.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.False(t, BookingStatusCreated.IsTerminal())
	assert.False(t, BookingStatusAwaitingPayment.IsTerminal())
	assert.False(t, BookingStatus("approved").Valid())
}

func TestParseDurationTier(t *testing.T) {
	tier, err := ParseDurationTier(" SEMESTER ")
	require.NoError(t, err)
	assert.Equal(t, DurationSemester, tier)
	assert.Equal(t, 5, tier.Months())
	assert.Equal(t, "Semester", tier.Label())

	tier, err = ParseDurationTier("annual")
	require.NoError(t, err)
	assert.Equal(t, 10, tier.Months())

	_, err = ParseDurationTier("weekly")
	assert.Error(t, err)
}

func TestTotalPrice(t *testing.T) {
	assert.Equal(t, int64(250000), TotalPrice(50000, DurationSemester))
	assert.Equal(t, int64(500000), TotalPrice(50000, DurationAnnual))
	assert.Equal(t, int64(0), TotalPrice(50000, DurationTier("weekly")))
}

func TestBooking_HasReference(t *testing.T) {
	ref := "cs_test_123"
	b := &Booking{PaymentReference: &ref}
	assert.True(t, b.HasReference("cs_test_123"))
	assert.False(t, b.HasReference("cs_test_999"))
	assert.False(t, b.HasReference(""))
	assert.False(t, (&Booking{}).HasReference("cs_test_123"))
}

func TestAccommodationUnit_Spots(t *testing.T) {
	u := &AccommodationUnit{Capacity: 2, CurrentOccupancy: 1}
	assert.Equal(t, 1, u.AvailableSpots())
	assert.False(t, u.IsFull())

	u.CurrentOccupancy = 2
	assert.Equal(t, 0, u.AvailableSpots())
	assert.True(t, u.IsFull())
}
