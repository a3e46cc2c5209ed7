package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type examRepo interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	Create(ctx context.Context, exam *models.Exam) error
	ListGrades(ctx context.Context, examID string) ([]models.ExamGrade, error)
	ReplaceGrades(ctx context.Context, examID string, grades []models.ExamGrade) error
	Delete(ctx context.Context, id string) error
}

type examVisibility interface {
	VisibleClassIDs(ctx context.Context, actor models.Actor) (map[string]struct{}, error)
	VisibleSubjects(ctx context.Context, actor models.Actor, classID string) ([]models.ClassSubjectAssignment, error)
}

// CreateExamRequest is the exam creation payload.
type CreateExamRequest struct {
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required,oneof=test final quiz assignment"`
	ClassID      string  `json:"class_id" validate:"required"`
	SubjectID    string  `json:"subject_id" validate:"required"`
	ExamDate     string  `json:"exam_date" validate:"required"`
	TotalMarks   float64 `json:"total_marks" validate:"required,gt=0"`
	PassingMarks float64 `json:"passing_marks" validate:"min=0"`
}

// ExamGradeItem is one student's mark in a mark-entry submission. A nil
// Marks value means the student was left unmarked and no row is stored.
type ExamGradeItem struct {
	StudentID string   `json:"student_id" validate:"required"`
	Marks     *float64 `json:"marks_obtained"`
	Remarks   string   `json:"remarks"`
}

// SubmitExamGradesRequest replaces the full grade set for an exam.
type SubmitExamGradesRequest struct {
	Grades []ExamGradeItem `json:"grades" validate:"dive"`
}

// ExamService handles ad hoc assessment workflows.
type ExamService struct {
	exams      examRepo
	visibility examVisibility
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExamService constructs the service.
func NewExamService(exams examRepo, visibility examVisibility, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, visibility: visibility, validator: validate, logger: logger}
}

// List returns exams the actor may see; teachers are narrowed to their
// visible classes by filtering.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter, actor models.Actor) ([]models.Exam, int, error) {
	if actor.Role == models.RoleTeacher {
		visible, err := s.visibility.VisibleClassIDs(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		if filter.ClassID == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
		}
		if _, ok := visible[filter.ClassID]; !ok {
			return []models.Exam{}, 0, nil
		}
	}
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, total, nil
}

// Create validates and persists an exam. passing_marks must not exceed
// total_marks; the check runs before anything is stored.
func (s *ExamService) Create(ctx context.Context, req CreateExamRequest, actor models.Actor) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if req.PassingMarks > req.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks cannot exceed total marks")
	}
	examDate, err := time.Parse("2006-01-02", req.ExamDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam_date must be YYYY-MM-DD")
	}
	if err := s.authorizeSubject(ctx, actor, req.ClassID, req.SubjectID); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Name:         req.Name,
		Type:         models.ExamType(strings.ToLower(req.Type)),
		ClassID:      req.ClassID,
		SubjectID:    req.SubjectID,
		ExamDate:     examDate,
		TotalMarks:   req.TotalMarks,
		PassingMarks: req.PassingMarks,
		CreatedBy:    actor.UserID,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Grades returns an exam together with its stored grade rows.
func (s *ExamService) Grades(ctx context.Context, examID string, actor models.Actor) (*models.Exam, []models.ExamGrade, error) {
	exam, err := s.findExam(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleTeacher {
		if err := s.authorizeSubject(ctx, actor, exam.ClassID, exam.SubjectID); err != nil {
			return nil, nil, err
		}
	}
	grades, err := s.exams.ListGrades(ctx, examID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam grades")
	}
	return exam, grades, nil
}

// SubmitGrades fully replaces the grade set for an exam. Rows without marks
// are dropped, every stored mark must fit 0..total_marks, and the replace is
// atomic.
func (s *ExamService) SubmitGrades(ctx context.Context, examID string, req SubmitExamGradesRequest, actor models.Actor) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	exam, err := s.findExam(ctx, examID)
	if err != nil {
		return err
	}
	if err := s.authorizeSubject(ctx, actor, exam.ClassID, exam.SubjectID); err != nil {
		return err
	}

	var grades []models.ExamGrade
	for _, item := range req.Grades {
		if item.Marks == nil {
			continue
		}
		if *item.Marks < 0 || *item.Marks > exam.TotalMarks {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("marks for student %s must be between 0 and %g", item.StudentID, exam.TotalMarks))
		}
		grade := models.ExamGrade{StudentID: item.StudentID, MarksObtained: *item.Marks}
		if remarks := strings.TrimSpace(item.Remarks); remarks != "" {
			grade.Remarks = &remarks
		}
		grades = append(grades, grade)
	}

	if err := s.exams.ReplaceGrades(ctx, examID, grades); err != nil {
		s.logger.Error("exam grade replace failed", zap.Error(err), zap.String("exam_id", examID))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save exam grades")
	}
	return nil
}

// Delete removes an exam and its grade rows.
func (s *ExamService) Delete(ctx context.Context, examID string) error {
	if _, err := s.findExam(ctx, examID); err != nil {
		return err
	}
	if err := s.exams.Delete(ctx, examID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

func (s *ExamService) findExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// authorizeSubject requires the actor to either be an admin or hold the
// exact (teacher, class, subject) assignment.
func (s *ExamService) authorizeSubject(ctx context.Context, actor models.Actor, classID, subjectID string) error {
	if actor.IsAdmin() {
		return nil
	}
	assignments, err := s.visibility.VisibleSubjects(ctx, actor, classID)
	if err != nil {
		return err
	}
	for _, assignment := range assignments {
		if assignment.SubjectID == subjectID {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
