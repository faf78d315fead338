package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RateLimitService caps how often one user or one IP can start a booking.
// Every attempt opens a provider checkout session, so the counts come from
// the bookings table (per user) and session_opened payment events (per IP).
type RateLimitService struct {
	db     *sqlx.DB
	config RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxUserAttempts int           // Max bookings created per user
	UserWindow      time.Duration // Time window for user rate limit
	MaxIPSessions   int           // Max checkout sessions opened per IP
	IPWindow        time.Duration // Time window for IP rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxUserAttempts: 5,                // 5 bookings
		UserWindow:      10 * time.Minute, // per 10 minutes
		MaxIPSessions:   20,               // 20 sessions
		IPWindow:        1 * time.Hour,    // per hour
	}
}

// RateLimitConfigFrom reads the limits from the booking configuration
func RateLimitConfigFrom(cfg config.BookingConfig) RateLimitConfig {
	return RateLimitConfig{
		MaxUserAttempts: cfg.MaxAttemptsPerUser,
		UserWindow:      cfg.UserWindow,
		MaxIPSessions:   cfg.MaxSessionsPerIP,
		IPWindow:        cfg.IPWindow,
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db *sqlx.DB, cfg RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: cfg,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "user" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckBookingRateLimit returns a *RateLimitError if the user or IP has
// started too many bookings recently
func (s *RateLimitService) CheckBookingRateLimit(ctx context.Context, userID uuid.UUID, ip string) error {
	if s.config.MaxUserAttempts > 0 {
		count, lastRequest, err := s.countUserBookings(ctx, userID, s.config.UserWindow)
		if err != nil {
			return fmt.Errorf("failed to check user rate limit: %w", err)
		}

		if count >= s.config.MaxUserAttempts {
			retryAfter := lastRequest.Add(s.config.UserWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many booking attempts. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "user",
			}
		}
	}

	if ip != "" && s.config.MaxIPSessions > 0 {
		count, lastRequest, err := s.countIPSessions(ctx, ip, s.config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if count >= s.config.MaxIPSessions {
			retryAfter := lastRequest.Add(s.config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many booking attempts from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

func (s *RateLimitService) countUserBookings(ctx context.Context, userID uuid.UUID, window time.Duration) (int, time.Time, error) {
	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM bookings
		WHERE user_id = $1
		  AND created_at > $2`
	return s.count(ctx, query, userID, time.Now().Add(-window))
}

func (s *RateLimitService) countIPSessions(ctx context.Context, ip string, window time.Duration) (int, time.Time, error) {
	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM payment_events
		WHERE ip_address = $1
		  AND event_type = 'session_opened'
		  AND created_at > $2`
	return s.count(ctx, query, ip, time.Now().Add(-window))
}

func (s *RateLimitService) count(ctx context.Context, query string, args ...interface{}) (int, time.Time, error) {
	var count int
	var lastRequest time.Time
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count, &lastRequest); err != nil {
		return 0, time.Time{}, err
	}
	return count, lastRequest, nil
}
