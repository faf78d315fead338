package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates users against the user directory
type AuthService struct {
	users      *database.UserRepository
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *database.UserRepository, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Authenticate checks the password and issues an access token
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("Login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	roles := []string{jwt.RoleStudent}
	if user.IsAdmin {
		roles = append(roles, jwt.RoleAdmin)
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// SeedAdmin creates or promotes the administrator account
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("admin email and a password of at least 8 characters are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.UpsertAdmin(ctx, "Administrator", email, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Administrator account ready")
	return user, nil
}
