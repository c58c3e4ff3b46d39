package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/middleware"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/service"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

type exportServiceMock struct {
	format string
	token  string
}

func (m *exportServiceMock) RosterExport(ctx context.Context, classID, format string) (*service.ExportFile, error) {
	m.format = format
	if format != service.FormatCSV && format != service.FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{Filename: "roster.csv", ContentType: "text/csv", Body: []byte("student_id\n")}, nil
}

func (m *exportServiceMock) ScheduleFeed(ctx context.Context, classID, token string) (*service.ExportFile, error) {
	m.token = token
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid feed token")
	}
	return &service.ExportFile{Filename: "schedule.ics", ContentType: "text/calendar; charset=utf-8", Body: []byte("BEGIN:VCALENDAR\r\n")}, nil
}

func (m *exportServiceMock) FeedLink(ctx context.Context, classID string, claims *models.JWTClaims) (*dto.FeedLink, error) {
	return &dto.FeedLink{URL: "/api/v1/classes/" + classID + "/schedule.ics?token=t", ExpiresAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func TestExportHandlerRosterDefaultsToCSV(t *testing.T) {
	svc := &exportServiceMock{}
	h := NewExportHandler(svc)
	c, w := newTestContext(http.MethodGet, "/classes/class-1/roster/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.RosterExport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.FormatCSV, svc.format)
	assert.Equal(t, `attachment; filename="roster.csv"`, w.Header().Get("Content-Disposition"))
}

func TestExportHandlerRosterRejectsUnknownFormat(t *testing.T) {
	svc := &exportServiceMock{}
	h := NewExportHandler(svc)
	c, w := newTestContext(http.MethodGet, "/classes/class-1/roster/export?format=XLSX", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.RosterExport(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", svc.format)
}

func TestExportHandlerScheduleFeed(t *testing.T) {
	svc := &exportServiceMock{}
	h := NewExportHandler(svc)

	c, w := newTestContext(http.MethodGet, "/classes/class-1/schedule.ics", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	h.ScheduleFeed(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/classes/class-1/schedule.ics?token=bad", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	h.ScheduleFeed(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "bad", svc.token)

	c, w = newTestContext(http.MethodGet, "/classes/class-1/schedule.ics?token=good", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	h.ScheduleFeed(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "BEGIN:VCALENDAR\r\n", w.Body.String())
}

func TestExportHandlerFeedLink(t *testing.T) {
	h := NewExportHandler(&exportServiceMock{})

	c, w := newTestContext(http.MethodGet, "/classes/class-1/schedule/feed-link", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	h.FeedLink(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/classes/class-1/schedule/feed-link", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	h.FeedLink(c)
	require.Equal(t, http.StatusOK, w.Code)
	var link dto.FeedLink
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &link))
	assert.Contains(t, link.URL, "/classes/class-1/schedule.ics?token=")
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)

	h = NewMetricsHandler(nil, map[string]Pinger{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")

	c, w = newTestContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
