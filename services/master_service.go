package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Specialization keywords used by the experience filters ("haircut", "colouring")
const (
	haircutKeyword   = "стрижк"
	colouringKeyword = "окрашивание"
	seniorMinYears   = 5
	juniorBelowYears = 1
)

// MasterInput holds the fields of a new master
type MasterInput struct {
	FullName        string
	Specialization  string
	ExperienceYears uint
}

// MasterPatch is a partial update. Nil fields are left untouched.
type MasterPatch struct {
	FullName        *string
	Specialization  *string
	ExperienceYears *uint
}

// MasterFilter holds the master listing options
type MasterFilter struct {
	MinExperience   *uint
	MaxExperience   *uint
	Specialization  string
	Experienced     bool
	SeniorNotJunior bool
	Search          string
	Ordering        string
	Pagination
}

var masterOrderings = map[string]string{
	"full_name":         "full_name ASC",
	"-full_name":        "full_name DESC",
	"experience_years":  "experience_years ASC",
	"-experience_years": "experience_years DESC",
	"created_at":        "created_at ASC",
	"-created_at":       "created_at DESC",
}

// MasterService manages masters, the services they perform and their portraits
type MasterService struct {
	db       *gorm.DB
	audit    *AuditService
	bookings *BookingService
	images   ImageService
	logger   *zap.Logger
}

// NewMasterService creates a master service. images may be nil when portraits are disabled.
func NewMasterService(db *gorm.DB, images ImageService, logger *zap.Logger) *MasterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	bookings := NewBookingService(db, logger)
	return &MasterService{
		db:       db,
		audit:    bookings.audit,
		bookings: bookings,
		images:   images,
		logger:   logger,
	}
}

// Create adds a master
func (s *MasterService) Create(ctx context.Context, actor Actor, in MasterInput) (*models.Master, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("create master: %w", ErrForbidden)
	}
	master := models.Master{
		FullName:        strings.TrimSpace(in.FullName),
		Specialization:  strings.TrimSpace(in.Specialization),
		ExperienceYears: in.ExperienceYears,
	}
	if err := validateMaster(&master); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&master).Error; err != nil {
			return fmt.Errorf("create master: %w", err)
		}
		_, err := RecordChange[models.MasterSnapshot](s.audit, tx, masterRef(master.ID), models.ChangeActionCreated, actor.Label(), nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("master created", zap.Uint("master_id", master.ID), zap.String("full_name", master.FullName))
	return &master, nil
}

// Update applies patch to a master
func (s *MasterService) Update(ctx context.Context, actor Actor, id uint, patch MasterPatch) (*models.Master, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("update master: %w", ErrForbidden)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := lockMaster(tx, id)
		if err != nil {
			return err
		}
		before := master.Snapshot()

		if patch.FullName != nil {
			master.FullName = strings.TrimSpace(*patch.FullName)
		}
		if patch.Specialization != nil {
			master.Specialization = strings.TrimSpace(*patch.Specialization)
		}
		if patch.ExperienceYears != nil {
			master.ExperienceYears = *patch.ExperienceYears
		}
		if err := validateMaster(master); err != nil {
			return err
		}

		if err := tx.Model(master).Omit(clause.Associations).Updates(map[string]interface{}{
			"full_name":        master.FullName,
			"specialization":   master.Specialization,
			"experience_years": master.ExperienceYears,
		}).Error; err != nil {
			return fmt.Errorf("update master %d: %w", id, err)
		}

		after := master.Snapshot()
		_, err = RecordChange(s.audit, tx, masterRef(id), models.ChangeActionUpdated, actor.Label(), &before, &after)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a master together with its bookings, reviews and service links.
// Each removed booking gets its own history record.
func (s *MasterService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.Privileged {
		return fmt.Errorf("delete master: %w", ErrForbidden)
	}

	var removedBookings int
	var portrait models.Image
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := lockMaster(tx, id)
		if err != nil {
			return err
		}

		var bookings []models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("master_id = ?", id).Find(&bookings).Error; err != nil {
			return fmt.Errorf("load bookings of master %d: %w", id, err)
		}
		for i := range bookings {
			if err := s.bookings.deleteLocked(tx, actor, &bookings[i]); err != nil {
				return err
			}
		}
		removedBookings = len(bookings)

		if err := tx.Where("master_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("delete reviews of master %d: %w", id, err)
		}
		if err := tx.Where("master_id = ?", id).Delete(&models.MasterService{}).Error; err != nil {
			return fmt.Errorf("delete services of master %d: %w", id, err)
		}

		before := master.Snapshot()
		if _, err := RecordChange(s.audit, tx, masterRef(id), models.ChangeActionDeleted, actor.Label(), &before, nil); err != nil {
			return err
		}
		if err := tx.Delete(&models.Master{}, id).Error; err != nil {
			return fmt.Errorf("delete master %d: %w", id, err)
		}
		if master.ImageID != nil {
			if err := tx.Limit(1).Find(&portrait, *master.ImageID).Error; err != nil {
				return fmt.Errorf("load portrait of master %d: %w", id, err)
			}
			if portrait.ID != 0 {
				if err := tx.Delete(&portrait).Error; err != nil {
					return fmt.Errorf("delete portrait of master %d: %w", id, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if portrait.StorageKey != "" && s.images != nil {
		if err := s.images.DeleteImage(ctx, portrait.StorageKey); err != nil {
			s.logger.Warn("failed to remove portrait of deleted master", zap.String("key", portrait.StorageKey), zap.Error(err))
		}
	}

	s.logger.Info("master deleted", zap.Uint("master_id", id), zap.Int("bookings_removed", removedBookings))
	return nil
}

// Get returns a master with its services and portrait URL
func (s *MasterService) Get(ctx context.Context, id uint) (*models.Master, error) {
	db := s.db.WithContext(ctx)
	var master models.Master
	if err := findByID(db.Preload("Image"), &master, "master", id); err != nil {
		return nil, err
	}

	services, err := s.servicesOf(db, id)
	if err != nil {
		return nil, err
	}
	master.Services = services
	s.resolveImageURL(ctx, &master)
	return &master, nil
}

// List returns masters matching filter
func (s *MasterService) List(ctx context.Context, filter MasterFilter) (*Page[models.Master], error) {
	order := "full_name ASC"
	if filter.Ordering != "" {
		var ok bool
		if order, ok = masterOrderings[filter.Ordering]; !ok {
			return nil, invalid("ordering", fmt.Sprintf("unsupported ordering %q", filter.Ordering))
		}
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Master{})
	if filter.MinExperience != nil {
		query = query.Where("experience_years >= ?", *filter.MinExperience)
	}
	if filter.MaxExperience != nil {
		query = query.Where("experience_years <= ?", *filter.MaxExperience)
	}
	if spec := strings.TrimSpace(filter.Specialization); spec != "" {
		query = query.Where("LOWER(specialization) LIKE ? ESCAPE '\\'", likePattern(spec))
	}
	if filter.Experienced {
		query = query.Where(db.Where("experience_years >= ?", seniorMinYears).
			Or("LOWER(specialization) LIKE ? ESCAPE '\\'", likePattern(haircutKeyword)))
	}
	if filter.SeniorNotJunior {
		query = query.Where(db.Where("experience_years >= ?", seniorMinYears).
			Or("LOWER(specialization) LIKE ? ESCAPE '\\'", likePattern(haircutKeyword)).
			Or("LOWER(specialization) LIKE ? ESCAPE '\\'", likePattern(colouringKeyword))).
			Where("experience_years >= ?", juniorBelowYears)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(db.Where("LOWER(full_name) LIKE ? ESCAPE '\\'", pattern).
			Or("LOWER(specialization) LIKE ? ESCAPE '\\'", pattern))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count masters: %w", err)
	}

	page := filter.Pagination.normalize()
	var masters []models.Master
	if err := page.apply(query).Preload("Image").Order(order).Order("id ASC").Find(&masters).Error; err != nil {
		return nil, fmt.Errorf("list masters: %w", err)
	}
	for i := range masters {
		s.resolveImageURL(ctx, &masters[i])
	}

	return &Page[models.Master]{Items: masters, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// AddService links a master to a service. Linking an existing pair is a no-op.
func (s *MasterService) AddService(ctx context.Context, actor Actor, masterID, serviceID uint) ([]models.Service, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("assign service: %w", ErrForbidden)
	}

	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Master{}, "master", masterID); err != nil {
		return nil, err
	}
	if err := exists(db, &models.Service{}, "service", serviceID); err != nil {
		return nil, err
	}

	link := models.MasterService{MasterID: masterID, ServiceID: serviceID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&link).Error; err != nil {
		return nil, fmt.Errorf("link master %d to service %d: %w", masterID, serviceID, err)
	}

	s.logger.Info("service assigned", zap.Uint("master_id", masterID), zap.Uint("service_id", serviceID))
	return s.servicesOf(db, masterID)
}

// RemoveService unlinks a service from a master
func (s *MasterService) RemoveService(ctx context.Context, actor Actor, masterID, serviceID uint) error {
	if !actor.Privileged {
		return fmt.Errorf("unassign service: %w", ErrForbidden)
	}

	result := s.db.WithContext(ctx).
		Where("master_id = ? AND service_id = ?", masterID, serviceID).
		Delete(&models.MasterService{})
	if result.Error != nil {
		return fmt.Errorf("unlink master %d from service %d: %w", masterID, serviceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("master %d does not perform service %d: %w", masterID, serviceID, ErrNotFound)
	}
	return nil
}

// ListServices returns the services a master performs
func (s *MasterService) ListServices(ctx context.Context, masterID uint) ([]models.Service, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Master{}, "master", masterID); err != nil {
		return nil, err
	}
	return s.servicesOf(db, masterID)
}

// AttachImage stores a portrait and makes it the master's image
func (s *MasterService) AttachImage(ctx context.Context, actor Actor, masterID uint, fileHeader *multipart.FileHeader) (*models.Master, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("upload portrait: %w", ErrForbidden)
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}
	if err := exists(s.db.WithContext(ctx), &models.Master{}, "master", masterID); err != nil {
		return nil, err
	}

	key, err := s.images.UploadImage(ctx, fileHeader)
	if err != nil {
		return nil, err
	}

	var previous *models.Image
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := lockMaster(tx, masterID)
		if err != nil {
			return err
		}
		before := master.Snapshot()

		image := models.Image{StorageKey: key}
		if err := tx.Create(&image).Error; err != nil {
			return fmt.Errorf("create image: %w", err)
		}
		if master.ImageID != nil {
			previous = &models.Image{}
			if err := tx.Limit(1).Find(previous, *master.ImageID).Error; err != nil {
				return fmt.Errorf("load previous image: %w", err)
			}
		}
		if err := tx.Model(master).Omit(clause.Associations).Update("image_id", image.ID).Error; err != nil {
			return fmt.Errorf("set image of master %d: %w", masterID, err)
		}
		if previous != nil && previous.ID != 0 {
			if err := tx.Delete(previous).Error; err != nil {
				return fmt.Errorf("delete previous image: %w", err)
			}
		}

		after := master.Snapshot()
		_, err = RecordChange(s.audit, tx, masterRef(masterID), models.ChangeActionUpdated, actor.Label(), &before, &after)
		return err
	})
	if err != nil {
		if delErr := s.images.DeleteImage(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned portrait", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	if previous != nil && previous.StorageKey != "" {
		if err := s.images.DeleteImage(ctx, previous.StorageKey); err != nil {
			s.logger.Warn("failed to remove replaced portrait", zap.String("key", previous.StorageKey), zap.Error(err))
		}
	}

	s.logger.Info("portrait attached", zap.Uint("master_id", masterID), zap.String("key", key))
	return s.Get(ctx, masterID)
}

func (s *MasterService) servicesOf(db *gorm.DB, masterID uint) ([]models.Service, error) {
	var services []models.Service
	err := db.Model(&models.Service{}).
		Joins("JOIN master_services ON master_services.service_id = services.id").
		Where("master_services.master_id = ?", masterID).
		Order("services.title ASC").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("list services of master %d: %w", masterID, err)
	}
	return services, nil
}

func (s *MasterService) resolveImageURL(ctx context.Context, master *models.Master) {
	if master.Image == nil || s.images == nil {
		return
	}
	url, err := s.images.GetImageURL(ctx, master.Image.StorageKey)
	if err != nil {
		s.logger.Warn("failed to resolve portrait URL", zap.Uint("master_id", master.ID), zap.Error(err))
		return
	}
	master.Image.URL = url
}

func lockMaster(tx *gorm.DB, id uint) (*models.Master, error) {
	var master models.Master
	if err := findByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &master, "master", id); err != nil {
		return nil, err
	}
	return &master, nil
}

func validateMaster(m *models.Master) error {
	if m.FullName == "" {
		return invalid("full_name", "is required")
	}
	if m.Specialization == "" {
		return invalid("specialization", "is required")
	}
	return nil
}

func masterRef(id uint) models.EntityRef {
	return models.EntityRef{Type: models.EntityTypeMaster, ID: id}
}
