package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/services"
)

// CreateMasterRequest represents the request body for adding a master
type CreateMasterRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Specialization  string `json:"specialization" binding:"required"`
	ExperienceYears uint   `json:"experience_years"`
}

// UpdateMasterRequest represents the request body for editing a master
type UpdateMasterRequest struct {
	FullName        *string `json:"full_name"`
	Specialization  *string `json:"specialization"`
	ExperienceYears *uint   `json:"experience_years"`
}

// AddMasterServiceRequest represents the request body for assigning a service to a master
type AddMasterServiceRequest struct {
	ServiceID uint `json:"service_id" binding:"required"`
}

// CreateReviewRequest represents the request body for reviewing a master
type CreateReviewRequest struct {
	UserID  *uint   `json:"user_id"`
	Rating  *int    `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}

func masterService() *services.MasterService {
	return services.NewMasterService(config.GetDB(), services.GetImageService(), config.GetLogger())
}

// ListMasters handles GET /api/v1/masters
func ListMasters(c *gin.Context) {
	p := &queryParser{c: c}
	filter := services.MasterFilter{
		MinExperience:   p.uintPtr("min_experience"),
		MaxExperience:   p.uintPtr("max_experience"),
		Specialization:  c.Query("specialization"),
		Experienced:     p.bool("experienced"),
		SeniorNotJunior: p.bool("senior_not_junior"),
		Search:          c.Query("search"),
		Ordering:        c.Query("ordering"),
		Pagination:      p.pagination(),
	}
	if !p.ok() {
		return
	}

	page, err := masterService().List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, page)
}

// CreateMaster handles POST /api/v1/masters (admins only)
func CreateMaster(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	master, err := masterService().Create(c.Request.Context(), actor, services.MasterInput{
		FullName:        req.FullName,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, master)
}

// GetMaster handles GET /api/v1/masters/:id
func GetMaster(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	master, err := masterService().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, master)
}

// UpdateMaster handles PATCH /api/v1/masters/:id (admins only)
func UpdateMaster(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	master, err := masterService().Update(c.Request.Context(), actor, id, services.MasterPatch{
		FullName:        req.FullName,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, master)
}

// DeleteMaster handles DELETE /api/v1/masters/:id (admins only)
func DeleteMaster(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := masterService().Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMasterServices handles GET /api/v1/masters/:id/services
func ListMasterServices(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, err := masterService().ListServices(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, list)
}

// AddMasterService handles POST /api/v1/masters/:id/services (admins only)
// Assigning the same service twice is a no-op.
func AddMasterService(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AddMasterServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	list, err := masterService().AddService(c.Request.Context(), actor, id, req.ServiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, list)
}

// RemoveMasterService handles DELETE /api/v1/masters/:id/services/:serviceId (admins only)
func RemoveMasterService(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	serviceID, ok := pathID(c, "serviceId")
	if !ok {
		return
	}

	if err := masterService().RemoveService(c.Request.Context(), actor, id, serviceID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadMasterImage handles POST /api/v1/masters/:id/image - multipart field "image" (admins only)
func UploadMasterImage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "An image file is required in the 'image' field",
			},
		})
		return
	}

	master, err := masterService().AttachImage(c.Request.Context(), actor, id, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, master)
}

// ListMasterReviews handles GET /api/v1/masters/:id/reviews
func ListMasterReviews(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p := &queryParser{c: c}
	filter := services.ReviewFilter{
		MinRating: p.intPtr("min_rating"),
		MaxRating: p.intPtr("max_rating"),
	}
	if !p.ok() {
		return
	}

	reviews, err := services.NewReviewService(config.GetDB(), config.GetLogger()).ListByMaster(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, reviews)
}

// CreateMasterReview handles POST /api/v1/masters/:id/reviews
func CreateMasterReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	review, err := services.NewReviewService(config.GetDB(), config.GetLogger()).Create(c.Request.Context(), actor, services.ReviewInput{
		UserID:   req.UserID,
		MasterID: id,
		Rating:   *req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, review)
}

// GetMasterHistory handles GET /api/v1/masters/:id/history
func GetMasterHistory(c *gin.Context) {
	entityHistory(c, models.EntityTypeMaster)
}
