package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-class-api/internal/models"
)

const sessionColumns = `id, class_id, title, start_time, end_time, duration_minutes, location_type, location, status, created_at, updated_at`

// ScheduleSessionRepository provides persistence for scheduled class sessions.
type ScheduleSessionRepository struct {
	db *sqlx.DB
}

// NewScheduleSessionRepository creates a new schedule session repository.
func NewScheduleSessionRepository(db *sqlx.DB) *ScheduleSessionRepository {
	return &ScheduleSessionRepository{db: db}
}

// ListByClass returns every session of a class ordered by start time.
func (r *ScheduleSessionRepository) ListByClass(ctx context.Context, classID string) ([]models.ScheduleSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM schedule_sessions WHERE class_id = $1 ORDER BY start_time ASC, id ASC`
	var sessions []models.ScheduleSession
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list schedule sessions by class: %w", err)
	}
	return sessions, nil
}

// FindByID loads a session by id.
func (r *ScheduleSessionRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM schedule_sessions WHERE id = $1`
	var session models.ScheduleSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateBatch stores sessions atomically, assigning ids and timestamps where missing.
func (r *ScheduleSessionRepository) CreateBatch(ctx context.Context, sessions []models.ScheduleSession) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule session tx: %w", err)
	}

	const query = `INSERT INTO schedule_sessions (id, class_id, title, start_time, end_time, duration_minutes, location_type, location, status, created_at, updated_at)
VALUES (:id, :class_id, :title, :start_time, :end_time, :duration_minutes, :location_type, :location, :status, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		if sessions[i].CreatedAt.IsZero() {
			sessions[i].CreatedAt = now
		}
		sessions[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, sessions[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create schedule session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule session tx: %w", err)
	}
	return nil
}
