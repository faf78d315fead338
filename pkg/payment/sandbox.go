package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SandboxGateway is an in-memory provider for local development and tests.
// Sessions start pending unless autoSettle is set.
type SandboxGateway struct {
	mu         sync.Mutex
	sessions   map[string]*sandboxSession
	autoSettle bool
	createErr  error
	lookupErr  error
}

type sandboxSession struct {
	request CheckoutRequest
	status  SessionStatus
}

// NewSandboxGateway creates a new in-memory gateway
func NewSandboxGateway(autoSettle bool) *SandboxGateway {
	return &SandboxGateway{
		sessions:   make(map[string]*sandboxSession),
		autoSettle: autoSettle,
	}
}

// Name returns the provider name
func (g *SandboxGateway) Name() string {
	return "sandbox"
}

// CreateCheckoutSession records a session and returns the success URL as the
// redirect target, as if the payer completed checkout immediately
func (g *SandboxGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		err := g.createErr
		g.createErr = nil
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("payment gateway rejected request: amount must be positive")
	}

	id := "cs_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	status := StatusPending
	if g.autoSettle {
		status = StatusSettled
	}
	g.sessions[id] = &sandboxSession{request: req, status: status}

	return &CheckoutSession{
		ID:          id,
		RedirectURL: strings.ReplaceAll(req.SuccessURL, SessionIDPlaceholder, id),
	}, nil
}

// GetSessionStatus reports the recorded status. Unknown ids are failed.
func (g *SandboxGateway) GetSessionStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lookupErr != nil {
		return nil, g.lookupErr
	}
	s, ok := g.sessions[sessionID]
	if !ok {
		return &StatusResult{Status: StatusFailed, ProviderStatus: "not_found"}, nil
	}
	return &StatusResult{
		Status:         s.status,
		ProviderStatus: string(s.status),
		AmountCents:    s.request.AmountCents,
	}, nil
}

// Settle marks a session as paid
func (g *SandboxGateway) Settle(sessionID string) {
	g.setStatus(sessionID, StatusSettled)
}

// Fail marks a session as failed or expired
func (g *SandboxGateway) Fail(sessionID string) {
	g.setStatus(sessionID, StatusFailed)
}

// FailNextCreate makes the next CreateCheckoutSession call return err
func (g *SandboxGateway) FailNextCreate(err error) {
	g.mu.Lock()
	g.createErr = err
	g.mu.Unlock()
}

// SetLookupError makes every status lookup return err until cleared with nil
func (g *SandboxGateway) SetLookupError(err error) {
	g.mu.Lock()
	g.lookupErr = err
	g.mu.Unlock()
}

// Sessions returns the ids of all sessions created so far
func (g *SandboxGateway) Sessions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.sessions))
	for id := range g.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (g *SandboxGateway) setStatus(sessionID string, status SessionStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[sessionID]; ok {
		s.status = status
	}
}
