package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceInput holds the fields of a new catalogue service
type ServiceInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
}

// ServicePatch is a partial update. Nil fields are left untouched.
type ServicePatch struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
}

// ServiceFilter holds the catalogue listing options
type ServiceFilter struct {
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	Ordering string
	Pagination
}

var serviceOrderings = map[string]string{
	"title":       "title ASC",
	"-title":      "title DESC",
	"price":       "price ASC",
	"-price":      "price DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

// CatalogService manages the salon's service catalogue
type CatalogService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCatalogService creates a catalogue service backed by db
func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{db: db, logger: logger}
}

// Create adds a service to the catalogue
func (s *CatalogService) Create(ctx context.Context, actor Actor, in ServiceInput) (*models.Service, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("create service: %w", ErrForbidden)
	}
	service := models.Service{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
	}
	if err := validateService(&service); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&service).Error; err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.logger.Info("service created", zap.Uint("service_id", service.ID), zap.String("price", service.Price.StringFixed(2)))
	return &service, nil
}

// Update applies patch to a service
func (s *CatalogService) Update(ctx context.Context, actor Actor, id uint, patch ServicePatch) (*models.Service, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("update service: %w", ErrForbidden)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var service models.Service
		if err := findByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &service, "service", id); err != nil {
			return err
		}
		if patch.Title != nil {
			service.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			service.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Price != nil {
			service.Price = patch.Price.Round(2)
		}
		if err := validateService(&service); err != nil {
			return err
		}

		return tx.Model(&service).Omit(clause.Associations).Updates(map[string]interface{}{
			"title":       service.Title,
			"description": service.Description,
			"price":       service.Price,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns a service with its related services
func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Service, error) {
	db := s.db.WithContext(ctx)
	var service models.Service
	if err := findByID(db, &service, "service", id); err != nil {
		return nil, err
	}

	var related []models.Service
	err := db.Model(&models.Service{}).
		Joins("JOIN related_services ON related_services.related_service_id = services.id").
		Where("related_services.service_id = ?", id).
		Order("services.title ASC").
		Find(&related).Error
	if err != nil {
		return nil, fmt.Errorf("load related services of %d: %w", id, err)
	}
	service.RelatedServices = related
	return &service, nil
}

// List returns services matching filter
func (s *CatalogService) List(ctx context.Context, filter ServiceFilter) (*Page[models.Service], error) {
	order := "title ASC"
	if filter.Ordering != "" {
		var ok bool
		if order, ok = serviceOrderings[filter.Ordering]; !ok {
			return nil, invalid("ordering", fmt.Sprintf("unsupported ordering %q", filter.Ordering))
		}
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Service{})
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(db.Where("LOWER(title) LIKE ? ESCAPE '\\'", pattern).Or("LOWER(description) LIKE ? ESCAPE '\\'", pattern))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}

	page := filter.Pagination.normalize()
	var services []models.Service
	if err := page.apply(query).Order(order).Order("id ASC").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	return &Page[models.Service]{Items: services, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// LinkRelated marks two services as related in both directions. Repeating a link is a no-op.
func (s *CatalogService) LinkRelated(ctx context.Context, actor Actor, serviceID, relatedID uint) (*models.Service, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("link services: %w", ErrForbidden)
	}
	if serviceID == relatedID {
		return nil, invalid("related_service_id", "a service cannot be related to itself")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Service{}, "service", serviceID); err != nil {
			return err
		}
		if err := exists(tx, &models.Service{}, "service", relatedID); err != nil {
			return err
		}
		links := []models.RelatedService{
			{ServiceID: serviceID, RelatedServiceID: relatedID},
			{ServiceID: relatedID, RelatedServiceID: serviceID},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&links).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, serviceID)
}

func validateService(service *models.Service) error {
	if service.Title == "" {
		return invalid("title", "is required")
	}
	if service.Description == "" {
		return invalid("description", "is required")
	}
	if service.Price.IsNegative() {
		return invalid("price", "must not be negative")
	}
	return nil
}
