package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
	"github.com/noah-isme/lms-class-api/pkg/response"
)

type rosterService interface {
	RosterView(ctx context.Context, classID string) (*dto.RosterView, bool, error)
	StudentAttendance(ctx context.Context, classID, studentID string) (*models.AttendanceSummary, error)
	Progress(ctx context.Context, classID string) (*models.ClassProgress, bool, error)
	InviteSummary(ctx context.Context, classID string) (*dto.InviteSummary, bool, error)
}

// RosterHandler exposes roster, attendance and progress views.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs handler.
func NewRosterHandler(svc rosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// Roster godoc
// @Summary Class roster
// @Description Per-session rosters with lifecycle state, per-student attendance and class progress.
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *RosterHandler) Roster(c *gin.Context) {
	view, hit, err := h.service.RosterView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, http.StatusOK, view, hit)
}

// StudentAttendance godoc
// @Summary Attendance summary of one student
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students/{studentId}/attendance [get]
func (h *RosterHandler) StudentAttendance(c *gin.Context) {
	studentID := c.Param("studentId")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && claims.UserID != studentID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own attendance"))
		return
	}
	summary, err := h.service.StudentAttendance(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Progress godoc
// @Summary Class progress
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/progress [get]
func (h *RosterHandler) Progress(c *gin.Context) {
	progress, hit, err := h.service.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, http.StatusOK, progress, hit)
}

// Invite godoc
// @Summary Public invite summary
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/invite [get]
func (h *RosterHandler) Invite(c *gin.Context) {
	summary, hit, err := h.service.InviteSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, http.StatusOK, summary, hit)
}
