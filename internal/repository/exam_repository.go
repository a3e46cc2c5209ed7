package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/palava-labs/school-portal-api/internal/models"
)

// ExamRepository persists ad hoc exams and their grade sets.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `e.id, e.name, e.exam_type, e.class_id, e.subject_id, e.exam_date, e.total_marks, e.passing_marks, e.created_by, e.created_at, e.updated_at,
       c.name AS class_name, s.name AS subject_name`

// FindByID returns an exam by identifier.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams e JOIN classes c ON c.id = e.class_id JOIN subjects s ON s.id = e.subject_id WHERE e.id = $1 LIMIT 1`, examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam by id: %w", err)
	}
	return &exam, nil
}

// List returns exams matching the filter with a total count.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	base := `FROM exams e JOIN classes c ON c.id = e.class_id JOIN subjects s ON s.id = e.subject_id WHERE 1=1`
	var args []interface{}
	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND e.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		base += fmt.Sprintf(" AND e.subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.Type != "" {
		base += fmt.Sprintf(" AND e.exam_type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY e.exam_date DESC LIMIT %d OFFSET %d", examColumns, base, pageSize, (page-1)*pageSize)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// Create inserts an exam record.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, name, exam_type, class_id, subject_id, exam_date, total_marks, passing_marks, created_by, created_at, updated_at)
        VALUES (:id, :name, :exam_type, :class_id, :subject_id, :exam_date, :total_marks, :passing_marks, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// ListGrades returns the stored grades for an exam joined with the roster.
func (r *ExamRepository) ListGrades(ctx context.Context, examID string) ([]models.ExamGrade, error) {
	const query = `
SELECT eg.id, eg.exam_id, eg.student_id, eg.marks_obtained, eg.remarks, eg.created_at,
       st.full_name AS student_name, st.roll_number
FROM exam_grades eg
JOIN students st ON st.id = eg.student_id
WHERE eg.exam_id = $1
ORDER BY st.roll_number ASC`
	var grades []models.ExamGrade
	if err := r.db.SelectContext(ctx, &grades, query, examID); err != nil {
		return nil, fmt.Errorf("list exam grades: %w", err)
	}
	return grades, nil
}

// ReplaceGrades swaps the full grade set for an exam in one transaction:
// delete every row, then insert only the submitted ones. Resubmission is
// idempotent set reconciliation, not an audited update.
func (r *ExamRepository) ReplaceGrades(ctx context.Context, examID string, grades []models.ExamGrade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace exam grades: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM exam_grades WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("clear exam grades: %w", err)
	}

	const insert = `INSERT INTO exam_grades (id, exam_id, student_id, marks_obtained, remarks, created_at)
        VALUES (:id, :exam_id, :student_id, :marks_obtained, :remarks, :created_at)`
	now := time.Now().UTC()
	for i := range grades {
		grades[i].ID = uuid.NewString()
		grades[i].ExamID = examID
		grades[i].CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, insert, grades[i]); err != nil {
			return fmt.Errorf("insert exam grade: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace exam grades: %w", err)
	}
	return nil
}

// Delete removes an exam and its grades in one transaction.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM exam_grades WHERE exam_id = $1`, id); err != nil {
		return fmt.Errorf("delete exam grades: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit exam delete: %w", err)
	}
	return nil
}
