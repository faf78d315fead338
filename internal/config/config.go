package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Payment   PaymentConfig
	Booking   BookingConfig
	Reconcile ReconcileConfig
	CORS      CORSConfig
	Security  SecurityConfig
	Admin     AdminConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          string
	Environment   string // development, staging, production
	LogLevel      string // debug, info, warn, error
	PublicBaseURL string // externally reachable base URL, used for provider redirects
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	Driver             string // "postgres" (lib/pq) or "pgx"
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// PaymentConfig holds checkout provider configuration
type PaymentConfig struct {
	Provider       string // "stripe" or "sandbox"
	SecretKey      string // Stripe secret key (never exposed to clients)
	APIBaseURL     string
	Currency       string
	RequestTimeout time.Duration
}

// BookingConfig holds booking policy values
type BookingConfig struct {
	MinimumChargeCents int64 // smallest charge the provider accepts

	// Booking attempt limits; zero disables the check
	MaxAttemptsPerUser int
	UserWindow         time.Duration
	MaxSessionsPerIP   int
	IPWindow           time.Duration
}

// ReconcileConfig controls the optional stale-session sweep
type ReconcileConfig struct {
	SweepEnabled  bool
	SweepSchedule string // cron spec with seconds
	StaleAfter    time.Duration
	BatchSize     int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// AdminConfig holds the seed administrator credentials
type AdminConfig struct {
	Email    string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Environment:   getEnv("ENVIRONMENT", "development"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			URL:                normalizeDatabaseURL(getEnv("DATABASE_URL", "")),
			Driver:             getEnv("DATABASE_DRIVER", "postgres"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Payment: PaymentConfig{
			Provider:       getEnv("PAYMENT_PROVIDER", "sandbox"),
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			APIBaseURL:     getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			Currency:       strings.ToLower(getEnv("PAYMENT_CURRENCY", "zar")),
			RequestTimeout: time.Duration(getEnvAsInt("PAYMENT_REQUEST_TIMEOUT", 30)) * time.Second,
		},
		Booking: BookingConfig{
			MinimumChargeCents: int64(getEnvAsInt("BOOKING_MINIMUM_CHARGE_CENTS", 50)),
			MaxAttemptsPerUser: getEnvAsInt("BOOKING_RATE_LIMIT_PER_USER", 5),
			UserWindow:         time.Duration(getEnvAsInt("BOOKING_RATE_LIMIT_USER_WINDOW_MINUTES", 10)) * time.Minute,
			MaxSessionsPerIP:   getEnvAsInt("BOOKING_RATE_LIMIT_PER_IP", 20),
			IPWindow:           time.Duration(getEnvAsInt("BOOKING_RATE_LIMIT_IP_WINDOW_MINUTES", 60)) * time.Minute,
		},
		Reconcile: ReconcileConfig{
			SweepEnabled:  getEnvAsBool("RECONCILE_SWEEP_ENABLED", false),
			SweepSchedule: getEnv("RECONCILE_SWEEP_SCHEDULE", "0 */10 * * * *"),
			StaleAfter:    time.Duration(getEnvAsInt("RECONCILE_STALE_AFTER_MINUTES", 30)) * time.Minute,
			BatchSize:     getEnvAsInt("RECONCILE_BATCH_SIZE", 50),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'postgres' or 'pgx')", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Payment.Provider {
	case "stripe":
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	case "sandbox":
		if c.Server.Environment == "production" {
			return fmt.Errorf("sandbox payment provider cannot be used in production")
		}
	default:
		return fmt.Errorf("invalid PAYMENT_PROVIDER: %s (must be 'stripe' or 'sandbox')", c.Payment.Provider)
	}

	if c.Booking.MinimumChargeCents <= 0 {
		return fmt.Errorf("BOOKING_MINIMUM_CHARGE_CENTS must be positive")
	}

	return nil
}

// normalizeDatabaseURL rewrites the legacy postgres:// scheme some hosts hand out
func normalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
