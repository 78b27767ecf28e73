package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/middleware"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminEmail  = "admin@salon.test"
	clientEmail = "maria@example.com"
	otherEmail  = "olga@example.com"
)

// setupTestDB opens a migrated in-memory database and installs it as the application database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))

	previous := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(previous) })
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(auth0ID, role, email, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)

		mockClaims := &validator.ValidatedClaims{
			CustomClaims: &middleware.CustomClaims{
				Role:  role,
				Email: email,
			},
		}
		c.Set("validated_claims", mockClaims)

		c.Next()
	}
}

func asAdmin() gin.HandlerFunc {
	return mockAuthMiddleware("auth0|admin", "admin", adminEmail, "token-admin")
}

func asClient() gin.HandlerFunc {
	return mockAuthMiddleware("auth0|maria", "client", clientEmail, "token-maria")
}

func asOther() gin.HandlerFunc {
	return mockAuthMiddleware("auth0|olga", "client", otherEmail, "token-olga")
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

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()

	f := fixtures{
		admin:   models.User{Name: "Salon Admin", Email: adminEmail, Role: models.UserRoleAdmin},
		client:  models.User{Name: "Maria Ivanova", Email: clientEmail, Role: models.UserRoleClient},
		other:   models.User{Name: "Olga Smirnova", Email: otherEmail, Role: models.UserRoleClient},
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

// performRequest sends body (JSON encoded unless it is already a reader) through router
func performRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	response := decodeResponse(t, w)
	errorData, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return errorData["code"].(string)
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	response := decodeResponse(t, w)
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func seedBooking(t *testing.T, db *gorm.DB, userID, masterID, serviceID uint, at time.Time, status models.BookingStatus) models.Booking {
	t.Helper()

	booking := models.Booking{UserID: userID, MasterID: masterID, ServiceID: serviceID, AppointmentAt: at.UTC(), Status: status}
	require.NoError(t, db.Create(&booking).Error)
	return booking
}
