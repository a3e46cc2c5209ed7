package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type classRepo interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByNameSection(ctx context.Context, name, section, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	CountStudents(ctx context.Context, classID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type classAssignmentRepo interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error)
	Replace(ctx context.Context, classID string, assignments []models.ClassSubjectAssignment) error
}

// ClassRequest is the create/update payload for a class.
type ClassRequest struct {
	Name           string  `json:"name" validate:"required"`
	Section        string  `json:"section" validate:"required"`
	ClassTeacherID *string `json:"class_teacher_id"`
}

// AssignmentItem selects one subject (optionally with teacher) for a class.
type AssignmentItem struct {
	SubjectID string  `json:"subject_id" validate:"required"`
	TeacherID *string `json:"teacher_id"`
}

// ReplaceAssignmentsRequest carries the full curriculum set for a class.
type ReplaceAssignmentsRequest struct {
	Assignments []AssignmentItem `json:"assignments" validate:"dive"`
}

// ClassService handles class management workflows.
type ClassService struct {
	classes     classRepo
	assignments classAssignmentRepo
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs the service.
func NewClassService(classes classRepo, assignments classAssignmentRepo, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, assignments: assignments, validator: validate, logger: logger}
}

// List returns all classes.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns one class with its subject assignments.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, []models.ClassSubjectAssignment, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	assignments, err := s.assignments.ListByClass(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}
	return class, assignments, nil
}

// Create adds a class after checking the (name, section) pair is unused.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	exists, err := s.classes.ExistsByNameSection(ctx, req.Name, req.Section, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name and section already exists")
	}
	class := &models.Class{Name: req.Name, Section: req.Section, ClassTeacherID: req.ClassTeacherID}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	exists, err := s.classes.ExistsByNameSection(ctx, req.Name, req.Section, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name and section already exists")
	}
	class.Name = req.Name
	class.Section = req.Section
	class.ClassTeacherID = req.ClassTeacherID
	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class unless students are still enrolled. The dependency
// pre-check runs before the delete statement and names what blocks it.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.classes.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	count, err := s.classes.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrDependencyExists, fmt.Sprintf("cannot delete class: %d student(s) still enrolled", count))
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// ReplaceAssignments swaps the curriculum set for a class. At most one row
// may target a subject, so duplicates in the submission are rejected before
// the transactional replace runs.
func (s *ClassService) ReplaceAssignments(ctx context.Context, classID string, req ReplaceAssignmentsRequest) ([]models.ClassSubjectAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignments payload")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	seen := make(map[string]struct{}, len(req.Assignments))
	assignments := make([]models.ClassSubjectAssignment, 0, len(req.Assignments))
	for _, item := range req.Assignments {
		if _, dup := seen[item.SubjectID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate subject in assignment set")
		}
		seen[item.SubjectID] = struct{}{}
		assignments = append(assignments, models.ClassSubjectAssignment{SubjectID: item.SubjectID, TeacherID: item.TeacherID})
	}

	if err := s.assignments.Replace(ctx, classID, assignments); err != nil {
		s.logger.Error("assignment replace failed", zap.Error(err), zap.String("class_id", classID))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class subjects")
	}
	return s.assignments.ListByClass(ctx, classID)
}
