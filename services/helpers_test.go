package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a migrated in-memory database.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), testGormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// setupFileDB opens a migrated database file that several connections share
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "salon.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), testGormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func testGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

type fixtures struct {
	admin   models.User
	client  models.User
	other   models.User
	master  models.Master
	master2 models.Master
	service models.Service
	extra   models.Service
}

func (f fixtures) adminActor() Actor  { return Actor{Email: f.admin.Email, Privileged: true} }
func (f fixtures) clientActor() Actor { return Actor{Email: f.client.Email} }
func (f fixtures) otherActor() Actor  { return Actor{Email: f.other.Email} }

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()

	f := fixtures{
		admin:   models.User{Name: "Salon Admin", Email: "admin@salon.test", Role: models.UserRoleAdmin},
		client:  models.User{Name: "Maria Ivanova", Email: "maria@example.com", Role: models.UserRoleClient},
		other:   models.User{Name: "Olga Smirnova", Email: "olga@example.com", Role: models.UserRoleClient},
		master:  models.Master{FullName: "Anna Petrova", Specialization: "Женские стрижки", ExperienceYears: 6},
		master2: models.Master{FullName: "Irina Volkova", Specialization: "Manicure", ExperienceYears: 2},
		service: models.Service{Title: "Haircut", Description: "Wash, cut and style", Price: decimal.RequireFromString("45.00")},
		extra:   models.Service{Title: "Manicure", Description: "Classic manicure", Price: decimal.RequireFromString("30.50")},
	}
	for _, user := range []*models.User{&f.admin, &f.client, &f.other} {
		require.NoError(t, db.Create(user).Error)
	}
	require.NoError(t, db.Create(&f.master).Error)
	require.NoError(t, db.Create(&f.master2).Error)
	require.NoError(t, db.Create(&f.service).Error)
	require.NoError(t, db.Create(&f.extra).Error)
	return f
}

func historyOf(t *testing.T, db *gorm.DB, entityType models.EntityType, id uint) []models.ChangeHistory {
	t.Helper()

	var records []models.ChangeHistory
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", entityType, id).
		Order("id ASC").Find(&records).Error)
	return records
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func statusPtr(v models.BookingStatus) *models.BookingStatus { return &v }
