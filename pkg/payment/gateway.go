// Package payment talks to hosted-checkout payment providers.
package payment

import (
	"context"
	"errors"
)

// SessionIDPlaceholder is substituted by the provider with the real session
// id when it redirects the payer back to the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// ErrProviderUnavailable wraps transport and 5xx failures talking to the provider
var ErrProviderUnavailable = errors.New("payment provider unavailable")

// SessionStatus is the provider-neutral state of a checkout session
type SessionStatus string

const (
	StatusPending SessionStatus = "pending"
	StatusSettled SessionStatus = "settled"
	StatusFailed  SessionStatus = "failed"
)

// CheckoutRequest describes one hosted checkout for one booking
type CheckoutRequest struct {
	ClientReference string // booking id, echoed back by the provider
	AmountCents     int64
	Currency        string
	Description     string
	CustomerEmail   string
	SuccessURL      string // may contain SessionIDPlaceholder
	CancelURL       string
}

// CheckoutSession is the provider's handle for an opened session
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// StatusResult is the outcome of a status lookup
type StatusResult struct {
	Status         SessionStatus
	ProviderStatus string // raw provider wording, kept for the audit log
	AmountCents    int64
}

// Gateway is implemented by every payment provider integration
type Gateway interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*StatusResult, error)
}
