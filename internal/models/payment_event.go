package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventSessionOpened    PaymentEventType = "session_opened"
	PaymentEventSessionFailed    PaymentEventType = "session_failed"
	PaymentEventStatusLookup     PaymentEventType = "status_lookup"
	PaymentEventSettled          PaymentEventType = "settled"
	PaymentEventCapacityExceeded PaymentEventType = "capacity_exceeded"
	PaymentEventRefundRequired   PaymentEventType = "refund_required"
	PaymentEventCancelled        PaymentEventType = "cancelled"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend  PaymentEventSource = "backend"
	PaymentSourceProvider PaymentEventSource = "provider"
	PaymentSourceUser     PaymentEventSource = "user"
	PaymentSourceSystem   PaymentEventSource = "system"
)

// PaymentEvent is an append-only audit row for provider interactions and settlement outcomes
type PaymentEvent struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	BookingID        *uuid.UUID         `json:"booking_id,omitempty" db:"booking_id"`
	PaymentReference *string            `json:"payment_reference,omitempty" db:"payment_reference"`
	EventType        PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource      PaymentEventSource `json:"event_source" db:"event_source"`
	ProviderStatus   *string            `json:"provider_status,omitempty" db:"provider_status"`
	AmountCents      *int64             `json:"amount_cents,omitempty" db:"amount_cents"`
	ErrorMessage     *string            `json:"error_message,omitempty" db:"error_message"`
	IPAddress        *string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent        *string            `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType       *string            `json:"device_type,omitempty" db:"device_type"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
}

// RequestMeta carries caller metadata recorded alongside payment events
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceType string
}

// NewPaymentEvent creates a new payment event with required fields
func NewPaymentEvent(eventType PaymentEventType, source PaymentEventSource) *PaymentEvent {
	return &PaymentEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking the event belongs to
func (e *PaymentEvent) SetBooking(bookingID uuid.UUID) *PaymentEvent {
	e.BookingID = &bookingID
	return e
}

// SetReference sets the provider correlation reference
func (e *PaymentEvent) SetReference(ref string) *PaymentEvent {
	if ref != "" {
		e.PaymentReference = &ref
	}
	return e
}

// SetProviderStatus records the status reported by the provider
func (e *PaymentEvent) SetProviderStatus(status string) *PaymentEvent {
	e.ProviderStatus = &status
	return e
}

// SetAmount records the amount involved in minor units
func (e *PaymentEvent) SetAmount(cents int64) *PaymentEvent {
	e.AmountCents = &cents
	return e
}

// SetError records an error message
func (e *PaymentEvent) SetError(err error) *PaymentEvent {
	if err != nil {
		msg := err.Error()
		e.ErrorMessage = &msg
	}
	return e
}

// SetMetadata sets request metadata
func (e *PaymentEvent) SetMetadata(meta RequestMeta) *PaymentEvent {
	if meta.IPAddress != "" {
		e.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		e.UserAgent = &meta.UserAgent
	}
	if meta.DeviceType != "" {
		e.DeviceType = &meta.DeviceType
	}
	return e
}
