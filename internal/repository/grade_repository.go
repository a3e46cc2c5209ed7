package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/palava-labs/school-portal-api/internal/models"
)

// GradeRepository persists periodic grade records and the attendance summary
// that travels with them.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeColumns = `id, student_id, subject_id, academic_year, period_1, period_2, period_3, sem_1_exam, period_4, period_5, period_6, sem_2_exam, created_at, updated_at`

// FetchForStudent returns the student's records for a year keyed by subject.
// Subjects without a record are simply absent from the map; the assembler
// treats them as all-empty rows.
func (r *GradeRepository) FetchForStudent(ctx context.Context, studentID string, year int) (map[string]models.PeriodicGradeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM periodic_grades WHERE student_id = $1 AND academic_year = $2`, gradeColumns)
	rows, err := r.db.QueryxContext(ctx, query, studentID, year)
	if err != nil {
		return nil, fmt.Errorf("fetch grade records: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.PeriodicGradeRecord)
	for rows.Next() {
		var record models.PeriodicGradeRecord
		if err := rows.StructScan(&record); err != nil {
			return nil, fmt.Errorf("scan grade record: %w", err)
		}
		result[record.SubjectID] = record
	}
	return result, rows.Err()
}

const upsertGradeQuery = `INSERT INTO periodic_grades (id, student_id, subject_id, academic_year, period_1, period_2, period_3, sem_1_exam, period_4, period_5, period_6, sem_2_exam, created_at, updated_at)
        VALUES (:id, :student_id, :subject_id, :academic_year, :period_1, :period_2, :period_3, :sem_1_exam, :period_4, :period_5, :period_6, :sem_2_exam, :created_at, :updated_at)
        ON CONFLICT (student_id, subject_id, academic_year)
        DO UPDATE SET period_1 = EXCLUDED.period_1, period_2 = EXCLUDED.period_2, period_3 = EXCLUDED.period_3, sem_1_exam = EXCLUDED.sem_1_exam,
                      period_4 = EXCLUDED.period_4, period_5 = EXCLUDED.period_5, period_6 = EXCLUDED.period_6, sem_2_exam = EXCLUDED.sem_2_exam,
                      updated_at = EXCLUDED.updated_at`

const upsertAttendanceQuery = `INSERT INTO attendance_summaries (id, student_id, academic_year, days_absent, days_late, created_at, updated_at)
        VALUES (:id, :student_id, :academic_year, :days_absent, :days_late, :created_at, :updated_at)
        ON CONFLICT (student_id, academic_year)
        DO UPDATE SET days_absent = EXCLUDED.days_absent, days_late = EXCLUDED.days_late, updated_at = EXCLUDED.updated_at`

// SaveSheet upserts a batch of grade records plus the attendance summary in a
// single transaction. Any failure rolls back the whole batch so no partial
// grade state is ever committed.
func (r *GradeRepository) SaveSheet(ctx context.Context, records []models.PeriodicGradeRecord, attendance *models.AttendanceSummary) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grade batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, upsertGradeQuery, records[i]); err != nil {
			return fmt.Errorf("upsert grade record: %w", err)
		}
	}

	if attendance != nil {
		if attendance.ID == "" {
			attendance.ID = uuid.NewString()
			attendance.CreatedAt = now
		}
		attendance.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, upsertAttendanceQuery, attendance); err != nil {
			return fmt.Errorf("upsert attendance summary: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit grade batch: %w", err)
	}
	return nil
}
