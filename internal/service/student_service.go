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

type studentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	CountGradeRecords(ctx context.Context, studentID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type studentVisibility interface {
	VisibleClassIDs(ctx context.Context, actor models.Actor) (map[string]struct{}, error)
	AuthorizeStudentAccess(ctx context.Context, actor models.Actor, studentID string) (*models.Student, error)
}

// StudentRequest is the create/update payload for a student.
type StudentRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	RollNumber    string `json:"roll_number" validate:"required"`
	ClassID       string `json:"class_id" validate:"required"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
}

// StudentService handles enrollment workflows and scoped roster reads.
type StudentService struct {
	students   studentRepo
	visibility studentVisibility
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(students studentRepo, visibility studentVisibility, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, visibility: visibility, validator: validate, logger: logger}
}

// List returns students the actor may see. Teachers are narrowed to their
// visible classes by filtering, so an out-of-scope class id yields an empty
// page rather than an error.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter, actor models.Actor) ([]models.Student, int, error) {
	if actor.Role == models.RoleTeacher {
		visible, err := s.visibility.VisibleClassIDs(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		if filter.ClassID == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
		}
		if _, ok := visible[filter.ClassID]; !ok {
			return []models.Student{}, 0, nil
		}
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns one student after the entity-level ownership check.
func (s *StudentService) Get(ctx context.Context, id string, actor models.Actor) (*models.Student, error) {
	return s.visibility.AuthorizeStudentAccess(ctx, actor, id)
}

// Create enrolls a student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		FullName:      req.FullName,
		RollNumber:    req.RollNumber,
		ClassID:       req.ClassID,
		GuardianEmail: req.GuardianEmail,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return student, nil
}

// Update modifies the mutable fields of a student record.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student.FullName = req.FullName
	student.RollNumber = req.RollNumber
	student.ClassID = req.ClassID
	student.GuardianEmail = req.GuardianEmail
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student unless grade records depend on the row.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	count, err := s.students.CountGradeRecords(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade records")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrDependencyExists, fmt.Sprintf("cannot delete student: %d grade record(s) exist", count))
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
