package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateBookingInput holds the fields a caller may supply when booking
type CreateBookingInput struct {
	UserID        *uint
	MasterID      uint
	ServiceID     uint
	AppointmentAt time.Time
	Status        models.BookingStatus
}

// BookingPatch is a partial update. Nil fields are left untouched.
type BookingPatch struct {
	MasterID      *uint
	ServiceID     *uint
	AppointmentAt *time.Time
	Status        *models.BookingStatus
}

// BookingService validates and applies every booking mutation and records its history
type BookingService struct {
	db     *gorm.DB
	audit  *AuditService
	logger *zap.Logger
	now    func() time.Time
}

// NewBookingService creates a booking service backed by db
func NewBookingService(db *gorm.DB, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		db:     db,
		audit:  NewAuditService(db, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Create books an appointment. Non-privileged actors always book for themselves
// and their bookings start pending.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (*models.Booking, error) {
	if err := s.validateSchedule(in.AppointmentAt); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.BookingStatusPending
	}
	if !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if status == models.BookingStatusCompleted {
		return nil, fmt.Errorf("booking cannot be created as %s: %w", status, ErrInvalidStatusTransition)
	}

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownerID, err := s.resolveOwner(tx, actor, in.UserID)
		if err != nil {
			return err
		}
		if !actor.Privileged {
			status = models.BookingStatusPending
		}
		if err := exists(tx, &models.Master{}, "master", in.MasterID); err != nil {
			return err
		}
		if err := exists(tx, &models.Service{}, "service", in.ServiceID); err != nil {
			return err
		}

		booking = models.Booking{
			UserID:        ownerID,
			MasterID:      in.MasterID,
			ServiceID:     in.ServiceID,
			AppointmentAt: in.AppointmentAt.UTC(),
			Status:        status,
		}
		if err := tx.Omit(clause.Associations).Create(&booking).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		_, err = RecordChange[models.BookingSnapshot](s.audit, tx, bookingRef(booking.ID), models.ChangeActionCreated, actor.Label(), nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.Uint("user_id", booking.UserID),
		zap.String("status", string(booking.Status)),
	)
	return s.load(ctx, booking.ID)
}

// Update applies patch to a booking. Status changes from non-privileged actors are discarded.
func (s *BookingService) Update(ctx context.Context, actor Actor, id uint, patch BookingPatch) (*models.Booking, error) {
	if patch.AppointmentAt != nil {
		if err := s.validateSchedule(*patch.AppointmentAt); err != nil {
			return nil, err
		}
	}
	if actor.Privileged && patch.Status != nil && !patch.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", *patch.Status))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockForActor(tx, actor, id)
		if err != nil {
			return err
		}
		before := booking.Snapshot()

		if patch.AppointmentAt != nil {
			booking.AppointmentAt = patch.AppointmentAt.UTC()
		}
		if patch.MasterID != nil {
			if err := exists(tx, &models.Master{}, "master", *patch.MasterID); err != nil {
				return err
			}
			booking.MasterID = *patch.MasterID
		}
		if patch.ServiceID != nil {
			if err := exists(tx, &models.Service{}, "service", *patch.ServiceID); err != nil {
				return err
			}
			booking.ServiceID = *patch.ServiceID
		}
		if actor.Privileged && patch.Status != nil {
			booking.Status = *patch.Status
		}

		return s.save(tx, actor, booking, before)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// TransitionStatus moves a booking to status. Only privileged actors may do this.
func (s *BookingService) TransitionStatus(ctx context.Context, actor Actor, id uint, status models.BookingStatus) (*models.Booking, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("change booking status: %w", ErrForbidden)
	}
	if !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockForActor(tx, actor, id)
		if err != nil {
			return err
		}
		before := booking.Snapshot()
		booking.Status = status
		return s.save(tx, actor, booking, before)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking status changed", zap.Uint("booking_id", id), zap.String("status", string(status)))
	return s.load(ctx, id)
}

// Delete removes a booking after recording its last known state
func (s *BookingService) Delete(ctx context.Context, actor Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockForActor(tx, actor, id)
		if err != nil {
			return err
		}
		return s.deleteLocked(tx, actor, booking)
	})
	if err != nil {
		return err
	}

	s.logger.Info("booking deleted", zap.Uint("booking_id", id))
	return nil
}

// Get returns a booking visible to actor
func (s *BookingService) Get(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged {
		user, err := resolveIdentity(s.db.WithContext(ctx), actor.Email)
		if err != nil {
			return nil, err
		}
		if booking.UserID != user.ID {
			return nil, notFound("booking", id)
		}
	}
	return booking, nil
}

func (s *BookingService) deleteLocked(tx *gorm.DB, actor Actor, booking *models.Booking) error {
	before := booking.Snapshot()
	if _, err := RecordChange(s.audit, tx, bookingRef(booking.ID), models.ChangeActionDeleted, actor.Label(), &before, nil); err != nil {
		return err
	}
	if err := tx.Delete(&models.Booking{}, booking.ID).Error; err != nil {
		return fmt.Errorf("delete booking %d: %w", booking.ID, err)
	}
	return nil
}

func (s *BookingService) save(tx *gorm.DB, actor Actor, booking *models.Booking, before models.BookingSnapshot) error {
	if err := tx.Model(booking).Omit(clause.Associations).Updates(map[string]interface{}{
		"status":         booking.Status,
		"appointment_at": booking.AppointmentAt,
		"master_id":      booking.MasterID,
		"service_id":     booking.ServiceID,
	}).Error; err != nil {
		return fmt.Errorf("update booking %d: %w", booking.ID, err)
	}

	after := booking.Snapshot()
	_, err := RecordChange(s.audit, tx, bookingRef(booking.ID), models.ChangeActionUpdated, actor.Label(), &before, &after)
	return err
}

// lockForActor loads the booking row for update. Bookings of other users look
// missing to non-privileged actors.
func (s *BookingService) lockForActor(tx *gorm.DB, actor Actor, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := findByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &booking, "booking", id); err != nil {
		return nil, err
	}
	if actor.Privileged {
		return &booking, nil
	}

	user, err := resolveIdentity(tx, actor.Email)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.ID {
		return nil, notFound("booking", id)
	}
	return &booking, nil
}

func (s *BookingService) resolveOwner(tx *gorm.DB, actor Actor, requested *uint) (uint, error) {
	if !actor.Privileged {
		user, err := resolveIdentity(tx, actor.Email)
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	}

	if requested != nil {
		if err := exists(tx, &models.User{}, "user", *requested); err != nil {
			return 0, err
		}
		return *requested, nil
	}

	user, err := resolveIdentity(tx, actor.Email)
	if err != nil {
		return 0, invalid("user_id", "an owner is required when the administrator has no salon profile")
	}
	return user.ID, nil
}

func (s *BookingService) validateSchedule(at time.Time) error {
	if at.IsZero() {
		return invalid("appointment_at", "is required")
	}
	if !at.After(s.now()) {
		return fmt.Errorf("appointment at %s: %w", at.UTC().Format(time.RFC3339), ErrInvalidSchedule)
	}
	return nil
}

func (s *BookingService) load(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	db := s.db.WithContext(ctx).Preload("User").Preload("Master").Preload("Service")
	if err := findByID(db, &booking, "booking", id); err != nil {
		return nil, err
	}
	return &booking, nil
}

func bookingRef(id uint) models.EntityRef {
	return models.EntityRef{Type: models.EntityTypeBooking, ID: id}
}
