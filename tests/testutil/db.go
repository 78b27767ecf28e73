package testutil

import (
	"testing"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB opens a migrated in-memory SQLite database, installs it as the
// application database and closes it when the test ends
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	// every connection to ":memory:" is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	config.SetDB(db)
	return db
}

// Salon holds a small seeded salon: one administrator, two clients, a master and a service
type Salon struct {
	Admin   models.User
	Client  models.User
	Other   models.User
	Master  models.Master
	Service models.Service
}

// SeedSalon inserts the Salon fixtures into db
func SeedSalon(t *testing.T, db *gorm.DB) Salon {
	t.Helper()

	s := Salon{
		Admin:   models.User{Name: "Salon Admin", Email: "admin@salon.test", Role: models.UserRoleAdmin},
		Client:  models.User{Name: "Maria Ivanova", Email: "maria@example.com", Role: models.UserRoleClient},
		Other:   models.User{Name: "Olga Smirnova", Email: "olga@example.com", Role: models.UserRoleClient},
		Master:  models.Master{FullName: "Anna Petrova", Specialization: "Женские стрижки", ExperienceYears: 6},
		Service: models.Service{Title: "Haircut", Description: "Wash, cut and style", Price: decimal.RequireFromString("45.00")},
	}
	for _, user := range []*models.User{&s.Admin, &s.Client, &s.Other} {
		require.NoError(t, db.Create(user).Error)
	}
	require.NoError(t, db.Create(&s.Master).Error)
	require.NoError(t, db.Create(&s.Service).Error)
	return s
}
