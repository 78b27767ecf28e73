package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/services"
)

func auditService() *services.AuditService {
	return services.NewAuditService(config.GetDB(), config.GetLogger())
}

// ListHistory handles GET /api/v1/history?entity_type=&entity_id=&limit=
func ListHistory(c *gin.Context) {
	p := &queryParser{c: c}
	filter := services.HistoryFilter{
		EntityType: models.EntityType(c.Query("entity_type")),
		EntityID:   p.uint("entity_id"),
		Limit:      p.int("limit"),
	}
	if !p.ok() {
		return
	}

	entries, err := auditService().ListHistory(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, entries)
}

// entityHistory lists the change history of the entity named by the :id path parameter, newest first
func entityHistory(c *gin.Context, entityType models.EntityType) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := auditService().ListHistory(c.Request.Context(), services.HistoryFilter{
		EntityType: entityType,
		EntityID:   id,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, entries)
}
