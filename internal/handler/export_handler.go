package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/service"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
	"github.com/noah-isme/lms-class-api/pkg/response"
)

type exportService interface {
	RosterExport(ctx context.Context, classID, format string) (*service.ExportFile, error)
	ScheduleFeed(ctx context.Context, classID, token string) (*service.ExportFile, error)
	FeedLink(ctx context.Context, classID string, claims *models.JWTClaims) (*dto.FeedLink, error)
}

// ExportHandler serves roster downloads and the schedule feed.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// RosterExport godoc
// @Summary Download the class roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/roster/export [get]
func (h *ExportHandler) RosterExport(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", service.FormatCSV))
	file, err := h.service.RosterExport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}

// ScheduleFeed godoc
// @Summary iCalendar schedule feed
// @Description Authenticated by the signed token of a feed link.
// @Tags Exports
// @Produce text/calendar
// @Param id path string true "Class ID"
// @Param token query string true "Feed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /classes/{id}/schedule.ics [get]
func (h *ExportHandler) ScheduleFeed(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "feed token required"))
		return
	}
	file, err := h.service.ScheduleFeed(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\""+file.Filename+"\"")
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// FeedLink godoc
// @Summary Issue a signed schedule feed link
// @Tags Exports
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /classes/{id}/schedule/feed-link [get]
func (h *ExportHandler) FeedLink(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.FeedLink(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}
