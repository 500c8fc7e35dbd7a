package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/models"
)

func currentUser(c *gin.Context) models.User {
	return c.MustGet("user").(models.User)
}

// serverError logs err and answers with a generic 500.
func serverError(c *gin.Context, log logging.Logger, msg string, err error) {
	log.Error(c.Request.Context(), msg, "error", err, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"message": msg})
}

// bindJSON decodes the body and answers 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid request body")
		return false
	}
	return true
}

// paging applies ?limit=&page= when limit is given; without it the whole
// list is returned, which is what the dashboards expect.
type paging struct {
	Limit int
	Page  int
	On    bool
}

func parsePaging(c *gin.Context) paging {
	p := paging{Limit: 20, Page: 1}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
			p.On = true
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1" {
		p.On = false
	}
	return p
}

func (p paging) apply(q *gorm.DB) *gorm.DB {
	if !p.On {
		return q
	}
	return q.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

func (p paging) meta(total int64) gin.H {
	if !p.On {
		return gin.H{"total": total, "all": true}
	}
	return gin.H{"total": total, "page": p.Page, "limit": p.Limit}
}

// summarySelect trims preloaded accounts to their public identity.
func summarySelect(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "role", "student_id")
}
