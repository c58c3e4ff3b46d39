package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/models"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type sessionReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleSession, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleSession, error)
}

type enrollmentReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Enrollment, error)
	ListByStudent(ctx context.Context, classID, studentID string) ([]models.Enrollment, error)
}

func loadClass(ctx context.Context, repo classReader, classID string) (*models.Class, error) {
	class, err := repo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// loadSessions returns the class schedule, dropping rows that break the session invariants.
func loadSessions(ctx context.Context, repo sessionReader, classID string, logger *zap.Logger) ([]models.ScheduleSession, error) {
	sessions, err := repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	usable := sessions[:0:0]
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			logger.Warn("skipping invalid stored session", zap.String("class_id", classID), zap.String("session_id", s.ID), zap.Error(err))
			continue
		}
		usable = append(usable, s)
	}
	return usable, nil
}
