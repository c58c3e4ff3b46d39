package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-class-api/internal/dto"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
	"github.com/noah-isme/lms-class-api/pkg/response"
)

type scheduleService interface {
	CalendarView(ctx context.Context, classID, month string) (*dto.CalendarView, bool, error)
	IngestSessions(ctx context.Context, classID string, req dto.CreateSessionsRequest) (*dto.IngestResult, error)
	GenerateRecurring(ctx context.Context, classID string, req dto.RecurringSessionsRequest) (*dto.IngestResult, error)
}

// ScheduleHandler serves class calendars and session ingestion.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Calendar godoc
// @Summary Class calendar month
// @Description Month grid, navigable window and sessions bucketed by local day.
// @Tags Schedule
// @Produce json
// @Param id path string true "Class ID"
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/calendar [get]
func (h *ScheduleHandler) Calendar(c *gin.Context) {
	view, hit, err := h.service.CalendarView(c.Request.Context(), c.Param("id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, http.StatusOK, view, hit)
}

// CreateSessions godoc
// @Summary Ingest class sessions
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.CreateSessionsRequest true "Sessions"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/sessions [post]
func (h *ScheduleHandler) CreateSessions(c *gin.Context) {
	var req dto.CreateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.IngestSessions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if result != nil && errors.Is(err, appErrors.ErrInvalidSession) {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CreateRecurring godoc
// @Summary Generate sessions from a recurrence rule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.RecurringSessionsRequest true "Recurrence"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/sessions/recurring [post]
func (h *ScheduleHandler) CreateRecurring(c *gin.Context) {
	var req dto.RecurringSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.GenerateRecurring(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
