package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	upcomingWindowDays = 30
	recentWindowDays   = 30
	topServicesLimit   = 5
	highRatingMin      = 4
)

// BookingStats summarises bookings
type BookingStats struct {
	Total    int64                          `json:"total"`
	ByStatus map[models.BookingStatus]int64 `json:"by_status"`
	Upcoming int64                          `json:"upcoming"`
}

// MasterStats summarises masters
type MasterStats struct {
	Total             int64   `json:"total"`
	WithBookings      int64   `json:"with_bookings"`
	AverageExperience float64 `json:"average_experience"`
	Experienced       int64   `json:"experienced"`
}

// ServiceUsage is a service with its booking count
type ServiceUsage struct {
	ServiceID uint   `json:"service_id"`
	Title     string `json:"title"`
	Bookings  int64  `gorm:"column:booking_count" json:"bookings"`
}

// ServiceStats summarises the catalogue
type ServiceStats struct {
	Total        int64           `json:"total"`
	AveragePrice decimal.Decimal `json:"average_price"`
	MostBooked   []ServiceUsage  `json:"most_booked"`
}

// ReviewStats summarises reviews
type ReviewStats struct {
	Total         int64   `json:"total"`
	AverageRating float64 `json:"average_rating"`
	HighRated     int64   `json:"high_rated"`
	WithComments  int64   `json:"with_comments"`
}

// UserStats summarises users
type UserStats struct {
	Total        int64 `json:"total"`
	Clients      int64 `json:"clients"`
	Admins       int64 `json:"admins"`
	WithBookings int64 `json:"with_bookings"`
}

// RecentActivity counts what was created in the last 30 days
type RecentActivity struct {
	Bookings int64 `json:"bookings"`
	Reviews  int64 `json:"reviews"`
	Users    int64 `json:"users"`
}

// Statistics is the salon overview
type Statistics struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Bookings    BookingStats   `json:"bookings"`
	Masters     MasterStats    `json:"masters"`
	Services    ServiceStats   `json:"services"`
	Reviews     ReviewStats    `json:"reviews"`
	Users       UserStats      `json:"users"`
	Recent      RecentActivity `json:"recent"`
}

// StatsService computes salon statistics
type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStatsService creates a statistics service backed by db
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: time.Now}
}

// Collect computes every statistic in one read
func (s *StatsService) Collect(ctx context.Context) (*Statistics, error) {
	now := s.now().UTC()
	stats := &Statistics{GeneratedAt: now}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []func(*gorm.DB, time.Time, *Statistics) error{
			collectBookings,
			collectMasters,
			collectServices,
			collectReviews,
			collectUsers,
			collectRecent,
		}
		for _, step := range steps {
			if err := step(tx, now, stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect statistics: %w", err)
	}
	return stats, nil
}

func collectBookings(tx *gorm.DB, now time.Time, stats *Statistics) error {
	if err := tx.Model(&models.Booking{}).Count(&stats.Bookings.Total).Error; err != nil {
		return err
	}

	var rows []struct {
		Status models.BookingStatus
		Count  int64
	}
	if err := tx.Model(&models.Booking{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	stats.Bookings.ByStatus = make(map[models.BookingStatus]int64, len(models.BookingStatuses))
	for _, status := range models.BookingStatuses {
		stats.Bookings.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.Bookings.ByStatus[row.Status] = row.Count
	}

	return tx.Model(&models.Booking{}).
		Where("appointment_at BETWEEN ? AND ?", now, now.AddDate(0, 0, upcomingWindowDays)).
		Where("status IN ?", []models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Count(&stats.Bookings.Upcoming).Error
}

func collectMasters(tx *gorm.DB, _ time.Time, stats *Statistics) error {
	if err := tx.Model(&models.Master{}).Count(&stats.Masters.Total).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Booking{}).Distinct("master_id").Count(&stats.Masters.WithBookings).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Master{}).Where("experience_years >= ?", seniorMinYears).Count(&stats.Masters.Experienced).Error; err != nil {
		return err
	}

	var avg struct{ Value *float64 }
	if err := tx.Model(&models.Master{}).Select("AVG(experience_years) AS value").Scan(&avg).Error; err != nil {
		return err
	}
	if avg.Value != nil {
		stats.Masters.AverageExperience = *avg.Value
	}
	return nil
}

func collectServices(tx *gorm.DB, _ time.Time, stats *Statistics) error {
	if err := tx.Model(&models.Service{}).Count(&stats.Services.Total).Error; err != nil {
		return err
	}

	var avg struct{ Value decimal.NullDecimal }
	if err := tx.Model(&models.Service{}).Select("AVG(price) AS value").Scan(&avg).Error; err != nil {
		return err
	}
	stats.Services.AveragePrice = decimal.Zero
	if avg.Value.Valid {
		stats.Services.AveragePrice = avg.Value.Decimal.Round(2)
	}

	stats.Services.MostBooked = []ServiceUsage{}
	return tx.Model(&models.Booking{}).
		Select("services.id AS service_id, services.title AS title, COUNT(bookings.id) AS booking_count").
		Joins("JOIN services ON services.id = bookings.service_id").
		Group("services.id, services.title").
		Order("booking_count DESC").Order("services.id ASC").
		Limit(topServicesLimit).
		Scan(&stats.Services.MostBooked).Error
}

func collectReviews(tx *gorm.DB, _ time.Time, stats *Statistics) error {
	if err := tx.Model(&models.Review{}).Count(&stats.Reviews.Total).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Review{}).Where("rating >= ?", highRatingMin).Count(&stats.Reviews.HighRated).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Review{}).Where("comment IS NOT NULL AND comment <> ''").Count(&stats.Reviews.WithComments).Error; err != nil {
		return err
	}

	var avg struct{ Value *float64 }
	if err := tx.Model(&models.Review{}).Select("AVG(rating) AS value").Scan(&avg).Error; err != nil {
		return err
	}
	if avg.Value != nil {
		stats.Reviews.AverageRating = *avg.Value
	}
	return nil
}

func collectUsers(tx *gorm.DB, _ time.Time, stats *Statistics) error {
	if err := tx.Model(&models.User{}).Count(&stats.Users.Total).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.User{}).Where("role = ?", models.UserRoleClient).Count(&stats.Users.Clients).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&stats.Users.Admins).Error; err != nil {
		return err
	}
	return tx.Model(&models.Booking{}).Distinct("user_id").Count(&stats.Users.WithBookings).Error
}

func collectRecent(tx *gorm.DB, now time.Time, stats *Statistics) error {
	since := now.AddDate(0, 0, -recentWindowDays)
	if err := tx.Model(&models.Booking{}).Where("created_at >= ?", since).Count(&stats.Recent.Bookings).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Review{}).Where("created_at >= ?", since).Count(&stats.Recent.Reviews).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("created_at >= ?", since).Count(&stats.Recent.Users).Error
}
