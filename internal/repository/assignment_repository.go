package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/palava-labs/school-portal-api/internal/models"
)

// AssignmentRepository manages the class-subject-teacher curriculum rows.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListByClass returns subject assignments for a class.
func (r *AssignmentRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error) {
	const query = `
SELECT cs.id, cs.class_id, cs.subject_id, cs.teacher_id, cs.created_at,
       s.name AS subject_name, s.code AS subject_code,
       t.full_name AS teacher_name
FROM class_subjects cs
JOIN subjects s ON s.id = cs.subject_id
LEFT JOIN teachers t ON t.id = cs.teacher_id
WHERE cs.class_id = $1
ORDER BY s.name ASC`
	var assignments []models.ClassSubjectAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return assignments, nil
}

// ListByTeacherAndClass returns the subjects a teacher is assigned to teach
// in a class. This exact-triple match is what scopes subject visibility.
func (r *AssignmentRepository) ListByTeacherAndClass(ctx context.Context, teacherID, classID string) ([]models.ClassSubjectAssignment, error) {
	const query = `
SELECT cs.id, cs.class_id, cs.subject_id, cs.teacher_id, cs.created_at,
       s.name AS subject_name, s.code AS subject_code
FROM class_subjects cs
JOIN subjects s ON s.id = cs.subject_id
WHERE cs.teacher_id = $1 AND cs.class_id = $2
ORDER BY s.name ASC`
	var assignments []models.ClassSubjectAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID, classID); err != nil {
		return nil, fmt.Errorf("list teacher class subjects: %w", err)
	}
	return assignments, nil
}

// ClassIDsForTeacher lists distinct classes where the teacher holds at least
// one subject assignment.
func (r *AssignmentRepository) ClassIDsForTeacher(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT class_id FROM class_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}
	return ids, nil
}

// Replace swaps the full assignment set for a class inside one transaction:
// delete everything, then insert the surviving rows. Re-assignment replaces,
// never appends.
func (r *AssignmentRepository) Replace(ctx context.Context, classID string, assignments []models.ClassSubjectAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace class subjects: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class subjects: %w", err)
	}

	const insert = `INSERT INTO class_subjects (id, class_id, subject_id, teacher_id, created_at)
        VALUES (:id, :class_id, :subject_id, :teacher_id, :created_at)`
	now := time.Now().UTC()
	for i := range assignments {
		assignments[i].ID = uuid.NewString()
		assignments[i].ClassID = classID
		assignments[i].CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, insert, assignments[i]); err != nil {
			return fmt.Errorf("insert class subject: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace class subjects: %w", err)
	}
	return nil
}
