package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/middleware"
	"github.com/kendall-kelly/beauty-salon-api/services"
	"github.com/kendall-kelly/beauty-salon-api/utils"
	"go.uber.org/zap"
)

// errorStatus maps a service error to its HTTP status and error code
func errorStatus(err error) (int, string) {
	var uploadErr *utils.FileUploadError
	switch {
	case errors.As(err, &uploadErr):
		return http.StatusBadRequest, uploadErr.Code
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrInvalidSchedule):
		return http.StatusBadRequest, "INVALID_SCHEDULE"
	case errors.Is(err, services.ErrInvalidStatusTransition):
		return http.StatusBadRequest, "INVALID_STATUS_TRANSITION"
	case errors.Is(err, services.ErrUnlinkedIdentity):
		return http.StatusForbidden, "UNLINKED_IDENTITY"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "DATABASE_ERROR"
	}
}

// respondError writes err in the standard error envelope
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		config.GetLogger().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "An unexpected error occurred"
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// currentActor returns the authenticated caller, writing a 401 when there is none
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, err := middleware.GetActor(c)
	var authErr *middleware.AuthError
	if err != nil && !errors.As(err, &authErr) {
		respondError(c, err)
		return services.Actor{}, false
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return services.Actor{}, false
	}
	return actor, true
}

// pathID parses a numeric path parameter, writing a 400 when it is malformed
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": fmt.Sprintf("Invalid %s", name),
			},
		})
		return 0, false
	}
	return uint(id), true
}

// queryParser collects query-string parsing errors so handlers can report the first one
type queryParser struct {
	c   *gin.Context
	err error
}

func (p *queryParser) uint(name string) uint {
	raw := p.c.Query(name)
	if raw == "" || p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		p.err = fmt.Errorf("%s: must be a positive integer", name)
		return 0
	}
	return uint(v)
}

func (p *queryParser) uintPtr(name string) *uint {
	if p.c.Query(name) == "" {
		return nil
	}
	v := p.uint(name)
	if p.err != nil {
		return nil
	}
	return &v
}

func (p *queryParser) int(name string) int {
	raw := p.c.Query(name)
	if raw == "" || p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("%s: must be an integer", name)
		return 0
	}
	return v
}

func (p *queryParser) intPtr(name string) *int {
	if p.c.Query(name) == "" {
		return nil
	}
	v := p.int(name)
	if p.err != nil {
		return nil
	}
	return &v
}

func (p *queryParser) bool(name string) bool {
	raw := p.c.Query(name)
	if raw == "" || p.err != nil {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = fmt.Errorf("%s: must be true or false", name)
		return false
	}
	return v
}

// time accepts RFC 3339 timestamps and plain dates
func (p *queryParser) time(name string) *time.Time {
	raw := p.c.Query(name)
	if raw == "" || p.err != nil {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	p.err = fmt.Errorf("%s: must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	return nil
}

func (p *queryParser) pagination() services.Pagination {
	return services.Pagination{Page: p.int("page"), PageSize: p.int("page_size")}
}

// ok writes a 400 for the first parse error and reports whether parsing succeeded
func (p *queryParser) ok() bool {
	if p.err == nil {
		return true
	}
	c := p.c
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": p.err.Error(),
		},
	})
	return false
}
