package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-console-api/internal/models"
	"github.com/noah-isme/lms-console-api/internal/service"
	"github.com/noah-isme/lms-console-api/pkg/response"
)

// ActivityHandler exposes the admin query surface over the activity log.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List activity logs
// @Description List audit records newest first, filtered and paginated
// @Tags Activity
// @Produce json
// @Param action query string false "Action filter (LOGIN, MATERIAL_VIEW)"
// @Param user_id query string false "User filter"
// @Param material_id query string false "Material filter"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param keyword query string false "Free text over email, IP, agent and title"
// @Param page query int false "Page (1-indexed)"
// @Param limit query int false "Page size, clamped to [1,200]"
// @Success 200 {object} response.Envelope
// @Router /activity-logs [get]
func (h *ActivityHandler) List(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), activityFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{Page: page.Page, PageSize: page.Limit, TotalCount: page.Total}
	response.JSON(c, http.StatusOK, page.Items, pagination)
}

// Export godoc
// @Summary Export activity logs
// @Description Download the filtered activity log as CSV or PDF
// @Tags Activity
// @Produce octet-stream
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /activity-logs/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	format := c.Query("format")
	payload, contentType, err := h.service.Export(c.Request.Context(), activityFilter(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("activity-logs-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

func activityFilter(c *gin.Context) models.ActivityFilter {
	filter := models.ActivityFilter{
		Action:     c.Query("action"),
		UserID:     c.Query("user_id"),
		MaterialID: c.Query("material_id"),
		Keyword:    c.Query("keyword"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 0),
	}
	if raw := c.Query("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &ts
		}
	}
	if raw := c.Query("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &ts
		}
	}
	return filter
}
