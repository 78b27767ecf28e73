package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/services"
)

// CreateBookingRequest represents the request body for creating a booking
type CreateBookingRequest struct {
	UserID        *uint                `json:"user_id"`
	MasterID      uint                 `json:"master_id" binding:"required"`
	ServiceID     uint                 `json:"service_id" binding:"required"`
	AppointmentAt time.Time            `json:"appointment_at" binding:"required"`
	Status        models.BookingStatus `json:"status"`
}

// UpdateBookingRequest represents the request body for editing a booking
type UpdateBookingRequest struct {
	MasterID      *uint                 `json:"master_id"`
	ServiceID     *uint                 `json:"service_id"`
	AppointmentAt *time.Time            `json:"appointment_at"`
	Status        *models.BookingStatus `json:"status"`
}

// UpdateBookingStatusRequest represents the request body for a status change
type UpdateBookingStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required"`
}

func bookingService() *services.BookingService {
	return services.NewBookingService(config.GetDB(), config.GetLogger())
}

// CreateBooking handles POST /api/v1/bookings
func CreateBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	booking, err := bookingService().Create(c.Request.Context(), actor, services.CreateBookingInput{
		UserID:        req.UserID,
		MasterID:      req.MasterID,
		ServiceID:     req.ServiceID,
		AppointmentAt: req.AppointmentAt,
		Status:        req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, booking)
}

// ListBookings handles GET /api/v1/bookings
// Clients only see their own bookings.
func ListBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	p := &queryParser{c: c}
	filter := services.BookingFilter{
		Status:         models.BookingStatus(c.Query("status")),
		DateFrom:       p.time("date_from"),
		DateTo:         p.time("date_to"),
		UserID:         p.uint("user"),
		MasterID:       p.uint("master"),
		ServiceID:      p.uint("service"),
		MyBookings:     p.bool("my_bookings"),
		HighPriority:   c.Query("priority") == "high",
		ActiveOnly:     p.bool("active_only"),
		UpcomingActive: p.bool("upcoming_active"),
		Search:         c.Query("search"),
		Ordering:       c.Query("ordering"),
		Pagination:     p.pagination(),
	}
	if !p.ok() {
		return
	}
	if filter.DateTo != nil && len(c.Query("date_to")) == len("2006-01-02") {
		endOfDay := filter.DateTo.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &endOfDay
	}

	page, err := services.NewBookingQuery(config.GetDB()).List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, page)
}

// ListPendingBookings handles GET /api/v1/bookings/pending - the confirmation queue (admins only)
func ListPendingBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	p := &queryParser{c: c}
	filter := services.PendingFilter{
		MasterID:   p.uint("master"),
		ClientName: c.Query("client"),
	}
	if !p.ok() {
		return
	}

	queue, err := services.NewBookingQuery(config.GetDB()).Pending(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, queue)
}

// GetBookingStatistics handles GET /api/v1/bookings/statistics
func GetBookingStatistics(c *gin.Context) {
	stats, err := services.NewStatsService(config.GetDB()).Collect(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, stats)
}

// GetBooking handles GET /api/v1/bookings/:id
func GetBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, err := bookingService().Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, booking)
}

// UpdateBooking handles PATCH /api/v1/bookings/:id
// A status sent by a client is ignored.
func UpdateBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	booking, err := bookingService().Update(c.Request.Context(), actor, id, services.BookingPatch{
		MasterID:      req.MasterID,
		ServiceID:     req.ServiceID,
		AppointmentAt: req.AppointmentAt,
		Status:        req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, booking)
}

// UpdateBookingStatus handles POST /api/v1/bookings/:id/status (admins only)
func UpdateBookingStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	booking, err := bookingService().TransitionStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, booking)
}

// DeleteBooking handles DELETE /api/v1/bookings/:id
func DeleteBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := bookingService().Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetBookingHistory handles GET /api/v1/bookings/:id/history
func GetBookingHistory(c *gin.Context) {
	entityHistory(c, models.EntityTypeBooking)
}
