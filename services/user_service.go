package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService manages salon user profiles
type UserService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserService creates a user service backed by db
func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{db: db, logger: logger}
}

// Register creates a client profile for an authenticated account
func (s *UserService) Register(ctx context.Context, auth0ID, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "a valid email is required")
	}

	user := models.User{
		Name:  name,
		Email: email,
		Role:  models.UserRoleClient,
	}
	if auth0ID != "" {
		user.Auth0ID = &auth0ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		query := tx.Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(email))
		if auth0ID != "" {
			query = query.Or("auth0_id = ?", auth0ID)
		}
		if err := query.Count(&count).Error; err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("a user with this account or email already exists: %w", ErrConflict)
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("a user with this account or email already exists: %w", ErrConflict)
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return &user, nil
}

// ResolveIdentity returns the user linked to email
func (s *UserService) ResolveIdentity(ctx context.Context, email string) (*models.User, error) {
	return resolveIdentity(s.db.WithContext(ctx), email)
}

// Me returns the profile of actor
func (s *UserService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	return s.ResolveIdentity(ctx, actor.Email)
}

// SetRole changes the role of a user. Only privileged actors may do this.
func (s *UserService) SetRole(ctx context.Context, actor Actor, userID uint, role models.UserRole) (*models.User, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("change user role: %w", ErrForbidden)
	}
	if !role.Valid() {
		return nil, invalid("role", fmt.Sprintf("unknown role %q", role))
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := findByID(db, &user, "user", userID); err != nil {
		return nil, err
	}
	if err := db.Model(&user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("update role of user %d: %w", userID, err)
	}
	user.Role = role

	s.logger.Info("user role changed", zap.Uint("user_id", userID), zap.String("role", string(role)))
	return &user, nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < 2 {
		return invalid("name", "must be at least 2 characters")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' {
			return invalid("name", "may contain only letters, spaces and hyphens")
		}
	}
	return nil
}
