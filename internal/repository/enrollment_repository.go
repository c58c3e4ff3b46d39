package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-class-api/internal/models"
)

const enrollmentSelect = `SELECT e.id, e.student_id, COALESCE(u.full_name, '') AS student_name, e.class_id, e.scheduled_instance_id, e.did_attend, e.is_attendance_marked, e.created_at, e.updated_at
FROM enrollments e LEFT JOIN users u ON u.id = e.student_id`

// EnrollmentRepository handles persistence of session enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByClass returns every enrollment of a class in insertion order.
func (r *EnrollmentRepository) ListByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	query := enrollmentSelect + ` WHERE e.class_id = $1 ORDER BY e.created_at ASC, e.id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, classID); err != nil {
		return nil, fmt.Errorf("list enrollments by class: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns a student's enrollments within a class.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, classID, studentID string) ([]models.Enrollment, error) {
	query := enrollmentSelect + ` WHERE e.class_id = $1 AND e.student_id = $2 ORDER BY e.created_at ASC, e.id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, classID, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// FindByID loads an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := enrollmentSelect + ` WHERE e.id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// MarkAttendance records attendance for one enrollment in a single statement.
// sql.ErrNoRows is returned when the enrollment no longer exists.
func (r *EnrollmentRepository) MarkAttendance(ctx context.Context, id string, attended bool) error {
	const query = `UPDATE enrollments SET did_attend = $1, is_attendance_marked = TRUE, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, attended, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark attendance rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
