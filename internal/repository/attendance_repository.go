package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/palava-labs/school-portal-api/internal/models"
)

// AttendanceRepository reads the per-year attendance counters. Writes go
// through GradeRepository.SaveSheet so they share the edit transaction.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Find returns the summary for a student and year.
func (r *AttendanceRepository) Find(ctx context.Context, studentID string, year int) (*models.AttendanceSummary, error) {
	const query = `SELECT id, student_id, academic_year, days_absent, days_late, created_at, updated_at FROM attendance_summaries WHERE student_id = $1 AND academic_year = $2 LIMIT 1`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance summary: %w", err)
	}
	return &summary, nil
}
