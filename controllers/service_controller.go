package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/services"
	"github.com/shopspring/decimal"
)

// CreateServiceRequest represents the request body for adding a catalogue service
type CreateServiceRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
}

// UpdateServiceRequest represents the request body for editing a catalogue service
type UpdateServiceRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

// LinkRelatedServiceRequest represents the request body for relating two services
type LinkRelatedServiceRequest struct {
	RelatedServiceID uint `json:"related_service_id" binding:"required"`
}

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), config.GetLogger())
}

// ListServices handles GET /api/v1/services
func ListServices(c *gin.Context) {
	filter := services.ServiceFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	for name, dest := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": name + ": must be a decimal number",
				},
			})
			return
		}
		*dest = &price
	}

	p := &queryParser{c: c}
	filter.Pagination = p.pagination()
	if !p.ok() {
		return
	}

	page, err := catalogService().List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, page)
}

// CreateService handles POST /api/v1/services (admins only)
func CreateService(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	service, err := catalogService().Create(c.Request.Context(), actor, services.ServiceInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       *req.Price,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, service)
}

// GetService handles GET /api/v1/services/:id
func GetService(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	service, err := catalogService().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, service)
}

// UpdateService handles PATCH /api/v1/services/:id (admins only)
func UpdateService(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	service, err := catalogService().Update(c.Request.Context(), actor, id, services.ServicePatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, service)
}

// LinkRelatedService handles POST /api/v1/services/:id/related (admins only)
func LinkRelatedService(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req LinkRelatedServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	service, err := catalogService().LinkRelated(c.Request.Context(), actor, id, req.RelatedServiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, service)
}
