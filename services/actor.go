package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"gorm.io/gorm"
)

// Actor is the caller of a service operation.
// Privileged actors (administrators) may manage every record.
type Actor struct {
	Email      string
	Privileged bool
}

// Label is the free-text identifier stored in change history
func (a Actor) Label() string {
	return a.Email
}

// ResolveActor builds the actor for email. Administrators are recognized by the
// token role or by the role stored on their salon profile.
func ResolveActor(ctx context.Context, db *gorm.DB, email string, tokenAdmin bool) (Actor, error) {
	actor := Actor{Email: strings.TrimSpace(email), Privileged: tokenAdmin}
	if actor.Privileged || actor.Email == "" || db == nil {
		return actor, nil
	}

	user, err := resolveIdentity(db.WithContext(ctx), actor.Email)
	if errors.Is(err, ErrUnlinkedIdentity) {
		return actor, nil
	}
	if err != nil {
		return Actor{}, err
	}
	actor.Privileged = user.Role == models.UserRoleAdmin
	return actor, nil
}

// resolveIdentity finds the salon user whose email matches
func resolveIdentity(tx *gorm.DB, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrUnlinkedIdentity
	}

	var user models.User
	if err := tx.Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnlinkedIdentity
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return &user, nil
}
