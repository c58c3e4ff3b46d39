package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/roster"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
	"github.com/noah-isme/lms-class-api/pkg/export"
	"github.com/noah-isme/lms-class-api/pkg/feedtoken"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
	FormatICS = "ics"
)

var rosterHeaders = []string{"student_id", "student_name", "total_sessions", "marked_sessions", "present_count", "percentage"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
	ContentType() string
}

type icsRenderer interface {
	Render(feed export.Feed) ([]byte, error)
	ContentType() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled   bool
	APIPrefix string
	UIDDomain string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders roster reports and schedule feeds.
type ExportService struct {
	classes     classReader
	sessions    sessionReader
	enrollments enrollmentReader
	engine      *calendar.Engine
	signer      *feedtoken.Signer
	csv         csvRenderer
	pdf         pdfRenderer
	ics         icsRenderer
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         ExportConfig
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(classes classReader, sessions sessionReader, enrollments enrollmentReader, engine *calendar.Engine, signer *feedtoken.Signer, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if engine == nil {
		engine = calendar.New(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UIDDomain == "" {
		cfg.UIDDomain = "lms-class-api"
	}
	return &ExportService{
		classes:     classes,
		sessions:    sessions,
		enrollments: enrollments,
		engine:      engine,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		ics:         export.NewICSExporter(),
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// RosterExport renders per-student attendance summaries as CSV or PDF.
func (s *ExportService) RosterExport(ctx context.Context, classID, format string) (*ExportFile, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	class, err := loadClass(ctx, s.classes, classID)
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, classID, s.logger)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	now := s.now().In(s.engine.Location())
	data := rosterDataset(roster.StudentSummaries(sessions, enrollments))
	filename := fmt.Sprintf("roster-%s-%s.%s", slug(class.Name, class.ID), now.Format("20060102"), format)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case FormatPDF:
		progress := roster.ClassProgress(sessions, now)
		body, err = s.pdf.Render(export.Document{
			Title:    class.Name,
			Subtitle: fmt.Sprintf("Attendance roster - %d of %d sessions completed", progress.Completed, progress.Total),
			Data:     data,
			Footer:   fmt.Sprintf("Generated %s", now.Format("2006-01-02 15:04 MST")),
		})
		contentType = s.pdf.ContentType()
	default:
		body, err = s.csv.Render(data)
		contentType = s.csv.ContentType()
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.metrics.RecordExport(format)
	return &ExportFile{Filename: filename, ContentType: contentType, Body: body}, nil
}

// ScheduleFeed renders the class schedule as an iCalendar feed after checking the feed token.
func (s *ExportService) ScheduleFeed(ctx context.Context, classID, token string) (*ExportFile, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled")
	}
	if err := s.verifyFeedToken(classID, token); err != nil {
		return nil, err
	}

	class, err := loadClass(ctx, s.classes, classID)
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, classID, s.logger)
	if err != nil {
		return nil, err
	}

	feed := export.Feed{Name: class.Name, Timezone: s.engine.Location().String(), Events: make([]export.CalendarEvent, 0, len(sessions))}
	for _, session := range sessions {
		event := export.CalendarEvent{
			UID:       fmt.Sprintf("%s@%s", session.ID, s.cfg.UIDDomain),
			Summary:   session.Title,
			Start:     session.StartTime,
			End:       session.EndTime,
			Cancelled: session.Status == models.SessionCancelled,
			Created:   session.CreatedAt,
			Modified:  session.UpdatedAt,
		}
		if session.Location != nil {
			event.Location = *session.Location
		}
		if session.LocationType == models.LocationOnline {
			event.Description = "Online session"
		}
		feed.Events = append(feed.Events, event)
	}

	body, err := s.ics.Render(feed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule feed")
	}
	s.metrics.RecordExport(FormatICS)
	return &ExportFile{Filename: fmt.Sprintf("schedule-%s.ics", slug(class.Name, class.ID)), ContentType: s.ics.ContentType(), Body: body}, nil
}

// FeedLink issues a signed subscription URL for the schedule feed.
func (s *ExportService) FeedLink(ctx context.Context, classID string, claims *models.JWTClaims) (*dto.FeedLink, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled")
	}
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "schedule feeds are not configured")
	}
	if _, err := loadClass(ctx, s.classes, classID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(classID, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign feed link")
	}
	link := fmt.Sprintf("%s/classes/%s/schedule.ics?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.PathEscape(classID), url.QueryEscape(token))
	return &dto.FeedLink{URL: link, ExpiresAt: expiresAt}, nil
}

func (s *ExportService) verifyFeedToken(classID, token string) error {
	if s.signer == nil {
		return nil
	}
	if token == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "feed token required")
	}
	subscriber, _, err := s.signer.Parse(classID, token)
	if err != nil {
		msg := "invalid feed token"
		if errors.Is(err, feedtoken.ErrExpired) {
			msg = "feed token expired"
		}
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msg)
	}
	s.logger.Debug("schedule feed accessed", zap.String("class_id", classID), zap.String("subscriber_id", subscriber))
	return nil
}

func rosterDataset(summaries []models.AttendanceSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, map[string]string{
			"student_id":      summary.StudentID,
			"student_name":    summary.StudentName,
			"total_sessions":  strconv.Itoa(summary.TotalSessions),
			"marked_sessions": strconv.Itoa(summary.MarkedSessions),
			"present_count":   strconv.Itoa(summary.PresentCount),
			"percentage":      strconv.FormatFloat(summary.Percentage, 'f', 1, 64),
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}

func slug(name, fallback string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}
