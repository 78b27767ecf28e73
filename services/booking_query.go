package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is one page of a listing
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Pagination selects a page. Zero values mean the first page of the default size.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Pagination) apply(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

// BookingFilter holds the booking listing options
type BookingFilter struct {
	Status         models.BookingStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	UserID         uint
	MasterID       uint
	ServiceID      uint
	MyBookings     bool
	HighPriority   bool
	ActiveOnly     bool
	UpcomingActive bool
	Search         string
	Ordering       string
	Pagination
}

// PendingFilter holds the pending queue options
type PendingFilter struct {
	MasterID   uint
	ClientName string
}

// PendingQueue is the list of bookings awaiting confirmation
type PendingQueue struct {
	Bookings     []models.Booking `json:"bookings"`
	PendingCount int64            `json:"pending_count"`
}

var bookingOrderings = map[string]string{
	"appointment_at":  "bookings.appointment_at ASC",
	"-appointment_at": "bookings.appointment_at DESC",
	"created_at":      "bookings.created_at ASC",
	"-created_at":     "bookings.created_at DESC",
	"status":          "bookings.status ASC",
	"-status":         "bookings.status DESC",
}

// BookingQuery answers read-only booking listings
type BookingQuery struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBookingQuery creates a booking query service backed by db
func NewBookingQuery(db *gorm.DB) *BookingQuery {
	return &BookingQuery{db: db, now: time.Now}
}

// List returns the bookings visible to actor that match filter
func (q *BookingQuery) List(ctx context.Context, actor Actor, filter BookingFilter) (*Page[models.Booking], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	order := "bookings.appointment_at DESC"
	if filter.Ordering != "" {
		var ok bool
		if order, ok = bookingOrderings[filter.Ordering]; !ok {
			return nil, invalid("ordering", fmt.Sprintf("unsupported ordering %q", filter.Ordering))
		}
	}

	db := q.db.WithContext(ctx)
	query := db.Model(&models.Booking{})

	if !actor.Privileged || filter.MyBookings {
		user, err := resolveIdentity(db, actor.Email)
		if err != nil {
			return nil, err
		}
		query = query.Where("bookings.user_id = ?", user.ID)
	}

	now := q.now().UTC()
	if filter.Status != "" {
		query = query.Where("bookings.status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("bookings.appointment_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		query = query.Where("bookings.appointment_at <= ?", filter.DateTo.UTC())
	}
	if filter.UserID != 0 {
		query = query.Where("bookings.user_id = ?", filter.UserID)
	}
	if filter.MasterID != 0 {
		query = query.Where("bookings.master_id = ?", filter.MasterID)
	}
	if filter.ServiceID != 0 {
		query = query.Where("bookings.service_id = ?", filter.ServiceID)
	}
	if filter.HighPriority {
		query = query.Where("bookings.status = ? AND bookings.appointment_at BETWEEN ? AND ?",
			models.BookingStatusConfirmed, now, now.AddDate(0, 0, 7))
	}
	if filter.ActiveOnly {
		query = query.Where("bookings.status <> ? AND bookings.status IN ?",
			models.BookingStatusCancelled,
			[]models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusPending})
	}
	if filter.UpcomingActive {
		query = query.Where("bookings.appointment_at > ? AND bookings.status NOT IN ?",
			now, []models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		query = query.
			Joins("JOIN users ON users.id = bookings.user_id").
			Joins("JOIN masters ON masters.id = bookings.master_id").
			Joins("JOIN services ON services.id = bookings.service_id").
			Where(db.Where("LOWER(users.name) LIKE ? ESCAPE '\\'", pattern).
				Or("LOWER(users.email) LIKE ? ESCAPE '\\'", pattern).
				Or("LOWER(masters.full_name) LIKE ? ESCAPE '\\'", pattern).
				Or("LOWER(services.title) LIKE ? ESCAPE '\\'", pattern))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	page := filter.Pagination.normalize()
	var bookings []models.Booking
	err := page.apply(query).
		Preload("User").Preload("Master").Preload("Service").
		Order(order).Order("bookings.id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return &Page[models.Booking]{Items: bookings, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// Pending returns the confirmation queue, oldest request first
func (q *BookingQuery) Pending(ctx context.Context, actor Actor, filter PendingFilter) (*PendingQueue, error) {
	if !actor.Privileged {
		return nil, fmt.Errorf("view pending bookings: %w", ErrForbidden)
	}

	db := q.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Booking{}).Where("status = ?", models.BookingStatusPending).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count pending bookings: %w", err)
	}

	query := db.Model(&models.Booking{}).Where("bookings.status = ?", models.BookingStatusPending)
	if filter.MasterID != 0 {
		query = query.Where("bookings.master_id = ?", filter.MasterID)
	}
	if name := strings.TrimSpace(filter.ClientName); name != "" {
		query = query.Joins("JOIN users ON users.id = bookings.user_id").
			Where("LOWER(users.name) LIKE ? ESCAPE '\\'", likePattern(name))
	}

	var bookings []models.Booking
	err := query.Preload("User").Preload("Master").Preload("Service").
		Order("bookings.created_at ASC").Order("bookings.id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list pending bookings: %w", err)
	}

	return &PendingQueue{Bookings: bookings, PendingCount: count}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches term anywhere in a lowercased column.
// Queries using it must declare ESCAPE '\'.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
