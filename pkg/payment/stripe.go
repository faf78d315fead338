package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StripeGateway integrates with Stripe Checkout over its REST API
type StripeGateway struct {
	secretKey string
	baseURL   string
	logger    *logrus.Logger
	client    *http.Client
}

// stripeSession is the subset of the Checkout Session object we read
type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`         // open, complete, expired
	PaymentStatus string `json:"payment_status"` // paid, unpaid, no_payment_required
	AmountTotal   int64  `json:"amount_total"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewStripeGateway creates a new Stripe Checkout gateway
func NewStripeGateway(secretKey, baseURL string, timeout time.Duration, logger *logrus.Logger) *StripeGateway {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// CreateCheckoutSession opens a one-line-item payment session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if g.secretKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.ClientReference)
	form.Set("metadata[booking_id]", req.ClientReference)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	g.logger.WithFields(logrus.Fields{
		"booking_id":   req.ClientReference,
		"amount_cents": req.AmountCents,
		"currency":     req.Currency,
	}).Info("Creating Stripe checkout session")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// One session per booking even if the call is retried
	httpReq.Header.Set("Idempotency-Key", "checkout-"+req.ClientReference)

	var session stripeSession
	status, err := g.do(httpReq, &session)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d", status)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("payment initiation failed: no session id or url returned")
	}

	g.logger.WithFields(logrus.Fields{
		"booking_id": req.ClientReference,
		"session_id": session.ID,
	}).Info("Stripe checkout session created")

	return &CheckoutSession{ID: session.ID, RedirectURL: session.URL}, nil
}

// GetSessionStatus retrieves a session and maps it to a SessionStatus
func (g *StripeGateway) GetSessionStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var session stripeSession
	status, err := g.do(httpReq, &session)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &StatusResult{Status: StatusFailed, ProviderStatus: "not_found"}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d", status)
	}

	result := mapStripeSession(session)
	g.logger.WithFields(logrus.Fields{
		"session_id":      sessionID,
		"status":          result.Status,
		"provider_status": result.ProviderStatus,
	}).Debug("Stripe session status retrieved")
	return result, nil
}

func mapStripeSession(s stripeSession) *StatusResult {
	result := &StatusResult{
		ProviderStatus: s.Status + "/" + s.PaymentStatus,
		AmountCents:    s.AmountTotal,
	}
	switch {
	case s.PaymentStatus == "paid":
		result.Status = StatusSettled
	case s.Status == "expired":
		result.Status = StatusFailed
	default:
		result.Status = StatusPending
	}
	return result
}

// do sends the request with credentials and decodes a 2xx body into out.
// 404 is returned as a status without error; 5xx and transport errors wrap
// ErrProviderUnavailable.
func (g *StripeGateway) do(req *http.Request, out interface{}) (int, error) {
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).Error("Failed to call Stripe")
		return 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr stripeErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		g.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"error_type":  apiErr.Error.Type,
			"error_code":  apiErr.Error.Code,
		}).Error("Stripe request rejected")
		if apiErr.Error.Message != "" {
			return 0, fmt.Errorf("payment gateway rejected request: %s", apiErr.Error.Message)
		}
		return 0, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}
