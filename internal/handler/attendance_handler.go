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

type attendanceService interface {
	RequestAttendanceMark(ctx context.Context, enrollmentID string, req dto.MarkAttendanceRequest, claims *models.JWTClaims) (*dto.AttendanceMarkResult, error)
}

// AttendanceHandler records instructor attendance marks.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark attendance for an enrollment
// @Description Only open while the session is active (current week, not yet past).
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.MarkAttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/attendance [patch]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.RequestAttendanceMark(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
