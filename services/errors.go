package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidSchedule         = errors.New("appointment must be in the future")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnlinkedIdentity        = errors.New("no salon user is linked to this account")
	ErrForbidden               = errors.New("forbidden")
	ErrValidation              = errors.New("validation failed")
	ErrConflict                = errors.New("conflict")
)

// ValidationError reports a rejected field value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for every *ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// findByID loads dest by primary key, translating a missing row into ErrNotFound
func findByID(tx *gorm.DB, dest interface{}, entity string, id uint) error {
	if err := tx.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(entity, id)
		}
		return fmt.Errorf("load %s %d: %w", entity, id, err)
	}
	return nil
}

// exists reports whether a row with id exists in model's table
func exists(tx *gorm.DB, model interface{}, entity string, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s %d: %w", entity, id, err)
	}
	if count == 0 {
		return notFound(entity, id)
	}
	return nil
}
