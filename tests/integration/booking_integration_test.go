package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/controllers"
	"github.com/kendall-kelly/beauty-salon-api/middleware"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// BookingIntegrationTestSuite runs the booking lifecycle through the HTTP handlers
type BookingIntegrationTestSuite struct {
	suite.Suite
	db     *gorm.DB
	admin  *gin.Engine
	client *gin.Engine
	other  *gin.Engine
	salon  testutil.Salon
}

// SetupSuite runs once before all tests
func (suite *BookingIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	suite.admin = suite.createRouter(testutil.MockAuthMiddleware("auth0|admin", "admin", "admin@salon.test"))
	suite.client = suite.createRouter(testutil.MockAuthMiddleware("auth0|maria", "client", "maria@example.com"))
	suite.other = suite.createRouter(testutil.MockAuthMiddleware("auth0|olga", "client", "olga@example.com"))
}

// SetupTest runs before each test
func (suite *BookingIntegrationTestSuite) SetupTest() {
	suite.db = testutil.OpenTestDB(suite.T())
	suite.salon = testutil.SeedSalon(suite.T(), suite.db)
}

func (suite *BookingIntegrationTestSuite) createRouter(auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1", auth)
	{
		v1.GET("/bookings", controllers.ListBookings)
		v1.POST("/bookings", controllers.CreateBooking)
		v1.GET("/bookings/pending", controllers.ListPendingBookings)
		v1.GET("/bookings/:id", controllers.GetBooking)
		v1.PATCH("/bookings/:id", controllers.UpdateBooking)
		v1.POST("/bookings/:id/status", controllers.UpdateBookingStatus)
		v1.DELETE("/bookings/:id", controllers.DeleteBooking)
		v1.GET("/bookings/:id/history", middleware.RequireAdmin(), controllers.GetBookingHistory)
	}

	return router
}

func (suite *BookingIntegrationTestSuite) request(router *gin.Engine, method, path string, body interface{}) (int, map[string]interface{}) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		suite.Require().NoError(err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w.Code, response
}

func (suite *BookingIntegrationTestSuite) book(router *gin.Engine, at time.Time, extra map[string]interface{}) (int, map[string]interface{}) {
	body := map[string]interface{}{
		"master_id":      suite.salon.Master.ID,
		"service_id":     suite.salon.Service.ID,
		"appointment_at": at.UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	return suite.request(router, http.MethodPost, "/api/v1/bookings", body)
}

func dataOf(response map[string]interface{}) map[string]interface{} {
	return response["data"].(map[string]interface{})
}

func errorCodeOf(response map[string]interface{}) string {
	return response["error"].(map[string]interface{})["code"].(string)
}

func idOf(response map[string]interface{}) uint {
	return uint(dataOf(response)["id"].(float64))
}

func tomorrow() time.Time {
	return time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)
}

// TestBookingLifecycle walks a booking from creation to completion and checks its history
func (suite *BookingIntegrationTestSuite) TestBookingLifecycle() {
	status, created := suite.book(suite.client, tomorrow(), map[string]interface{}{"status": "confirmed"})
	suite.Require().Equal(http.StatusCreated, status)
	booking := dataOf(created)
	assert.Equal(suite.T(), "pending", booking["status"])
	assert.Equal(suite.T(), float64(suite.salon.Client.ID), booking["user_id"])
	id := idOf(created)

	status, response := suite.request(suite.admin, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/status", id), map[string]string{"status": "confirmed"})
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), "confirmed", dataOf(response)["status"])

	status, response = suite.request(suite.admin, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/status", id), map[string]string{"status": "completed"})
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), "completed", dataOf(response)["status"])

	status, response = suite.request(suite.admin, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d/history", id), nil)
	suite.Require().Equal(http.StatusOK, status)
	entries := response["data"].([]interface{})
	suite.Require().Len(entries, 3)

	newest := entries[0].(map[string]interface{})
	assert.Equal(suite.T(), "updated", newest["action"])
	assert.Equal(suite.T(), "admin@salon.test", newest["changed_by"])
	assert.Equal(suite.T(),
		map[string]interface{}{"status": map[string]interface{}{"old": "confirmed", "new": "completed"}},
		newest["changes"])

	oldest := entries[2].(map[string]interface{})
	assert.Equal(suite.T(), "created", oldest["action"])
	assert.Equal(suite.T(), "maria@example.com", oldest["changed_by"])
	assert.Empty(suite.T(), oldest["changes"])
}

// TestClientCannotChangeStatus checks both the dedicated route and the status field on edits
func (suite *BookingIntegrationTestSuite) TestClientCannotChangeStatus() {
	_, created := suite.book(suite.client, tomorrow(), nil)
	id := idOf(created)

	status, response := suite.request(suite.client, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/status", id), map[string]string{"status": "confirmed"})
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "FORBIDDEN", errorCodeOf(response))

	later := tomorrow().Add(2 * time.Hour)
	status, response = suite.request(suite.client, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d", id), map[string]interface{}{
		"appointment_at": later.Format(time.RFC3339),
		"status":         "cancelled",
	})
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), "pending", dataOf(response)["status"])

	var stored models.Booking
	suite.Require().NoError(suite.db.First(&stored, id).Error)
	assert.Equal(suite.T(), models.BookingStatusPending, stored.Status)
	assert.True(suite.T(), later.Equal(stored.AppointmentAt))
}

// TestBookingsAreInvisibleToOtherClients checks that foreign bookings look missing
func (suite *BookingIntegrationTestSuite) TestBookingsAreInvisibleToOtherClients() {
	_, created := suite.book(suite.client, tomorrow(), nil)
	path := fmt.Sprintf("/api/v1/bookings/%d", idOf(created))

	status, response := suite.request(suite.other, http.MethodGet, path, nil)
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "NOT_FOUND", errorCodeOf(response))

	status, _ = suite.request(suite.other, http.MethodDelete, path, nil)
	assert.Equal(suite.T(), http.StatusNotFound, status)

	status, response = suite.request(suite.other, http.MethodGet, "/api/v1/bookings", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), float64(0), dataOf(response)["total"])

	status, response = suite.request(suite.admin, http.MethodGet, "/api/v1/bookings", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), float64(1), dataOf(response)["total"])
}

// TestListBookings_Pagination checks page metadata and ordering
func (suite *BookingIntegrationTestSuite) TestListBookings_Pagination() {
	start := tomorrow()
	for i := 0; i < 5; i++ {
		status, _ := suite.book(suite.client, start.Add(time.Duration(i)*time.Hour), nil)
		suite.Require().Equal(http.StatusCreated, status)
	}

	status, response := suite.request(suite.client, http.MethodGet, "/api/v1/bookings?page=2&page_size=2&ordering=appointment_at", nil)
	suite.Require().Equal(http.StatusOK, status)

	page := dataOf(response)
	assert.Equal(suite.T(), float64(5), page["total"])
	assert.Equal(suite.T(), float64(2), page["page"])
	assert.Equal(suite.T(), float64(2), page["page_size"])

	items := page["items"].([]interface{})
	suite.Require().Len(items, 2)
	first, err := time.Parse(time.RFC3339, items[0].(map[string]interface{})["appointment_at"].(string))
	suite.Require().NoError(err)
	assert.True(suite.T(), start.Add(2*time.Hour).Equal(first))
}

// TestPendingQueue checks the administrator confirmation queue
func (suite *BookingIntegrationTestSuite) TestPendingQueue() {
	suite.book(suite.client, tomorrow(), nil)
	suite.book(suite.other, tomorrow().Add(time.Hour), nil)
	suite.book(suite.admin, tomorrow().Add(2*time.Hour), map[string]interface{}{
		"user_id": suite.salon.Client.ID,
		"status":  "confirmed",
	})

	status, response := suite.request(suite.admin, http.MethodGet, "/api/v1/bookings/pending", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), float64(2), dataOf(response)["pending_count"])

	status, response = suite.request(suite.client, http.MethodGet, "/api/v1/bookings/pending", nil)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "FORBIDDEN", errorCodeOf(response))
}

// TestDeleteBooking_KeepsHistory checks that deletions leave an audit trail
func (suite *BookingIntegrationTestSuite) TestDeleteBooking_KeepsHistory() {
	_, created := suite.book(suite.client, tomorrow(), nil)
	id := idOf(created)

	status, _ := suite.request(suite.client, http.MethodDelete, fmt.Sprintf("/api/v1/bookings/%d", id), nil)
	suite.Require().Equal(http.StatusNoContent, status)

	var remaining int64
	suite.db.Model(&models.Booking{}).Where("id = ?", id).Count(&remaining)
	assert.Zero(suite.T(), remaining)

	status, response := suite.request(suite.admin, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d/history", id), nil)
	suite.Require().Equal(http.StatusOK, status)
	entries := response["data"].([]interface{})
	suite.Require().Len(entries, 2)

	deleted := entries[0].(map[string]interface{})
	assert.Equal(suite.T(), "deleted", deleted["action"])
	assert.Nil(suite.T(), deleted["subject"])
	changes := deleted["changes"].(map[string]interface{})
	assert.Equal(suite.T(), map[string]interface{}{"old": "pending", "new": ""}, changes["status"])
}

// TestCreateBooking_Rejections covers invalid booking requests
func (suite *BookingIntegrationTestSuite) TestCreateBooking_Rejections() {
	testCases := []struct {
		name           string
		router         *gin.Engine
		at             time.Time
		extra          map[string]interface{}
		expectedStatus int
		expectedCode   string
	}{
		{"appointment in the past", suite.client, time.Now().Add(-time.Hour), nil, http.StatusBadRequest, "INVALID_SCHEDULE"},
		{"created as completed", suite.admin, tomorrow(), map[string]interface{}{"status": "completed"}, http.StatusBadRequest, "INVALID_STATUS_TRANSITION"},
		{"unknown status", suite.admin, tomorrow(), map[string]interface{}{"status": "archived"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown master", suite.client, tomorrow(), map[string]interface{}{"master_id": 9999}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown client", suite.admin, tomorrow(), map[string]interface{}{"user_id": 9999}, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			status, response := suite.book(tc.router, tc.at, tc.extra)

			assert.Equal(t, tc.expectedStatus, status)
			assert.Equal(t, tc.expectedCode, errorCodeOf(response))
		})
	}

	var count int64
	suite.db.Model(&models.Booking{}).Count(&count)
	assert.Zero(suite.T(), count)
}

func TestBookingIntegrationSuite(t *testing.T) {
	suite.Run(t, new(BookingIntegrationTestSuite))
}
