package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserRepository handles user directory lookups
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, full_name, email, password_hash, is_admin, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)`
	err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, full_name, email, password_hash, is_admin, created_at
		FROM users
		WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// UpsertAdmin creates the administrator account or promotes and re-keys an
// existing account with the same email
func (r *UserRepository) UpsertAdmin(ctx context.Context, fullName, email, passwordHash string) (*models.User, error) {
	var user models.User
	query := `
		INSERT INTO users (id, full_name, email, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    is_admin = TRUE
		RETURNING id, full_name, email, password_hash, is_admin, created_at`
	err := r.db.GetContext(ctx, &user, query,
		uuid.New(), fullName, strings.ToLower(strings.TrimSpace(email)), passwordHash, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert admin: %w", err)
	}
	return &user, nil
}
