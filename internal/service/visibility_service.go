package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type visibilityClassRepo interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ClassIDsOwnedByTeacher(ctx context.Context, teacherID string) ([]string, error)
}

type visibilityAssignmentRepo interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error)
	ListByTeacherAndClass(ctx context.Context, teacherID, classID string) ([]models.ClassSubjectAssignment, error)
	ClassIDsForTeacher(ctx context.Context, teacherID string) ([]string, error)
}

type visibilityStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// VisibilityService centralises every role-based visibility predicate so
// role-specific filter branches are not duplicated per handler. Scoping is
// enforced by filtering: an out-of-scope class or subject simply never
// appears, it does not error. The explicit ownership checks (parent and
// student access to a student record) are the exception and return a visible
// access-denied outcome.
type VisibilityService struct {
	classes     visibilityClassRepo
	assignments visibilityAssignmentRepo
	students    visibilityStudentRepo
	logger      *zap.Logger
}

// NewVisibilityService constructs the service.
func NewVisibilityService(classes visibilityClassRepo, assignments visibilityAssignmentRepo, students visibilityStudentRepo, logger *zap.Logger) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{classes: classes, assignments: assignments, students: students, logger: logger}
}

// VisibleClassIDs resolves the set of classes the actor may see. Teachers see
// classes they administer as class-teacher plus classes where they hold any
// subject assignment. A teacher account with no profile resolves the empty
// set: orphaned logins fail closed, never open.
func (s *VisibilityService) VisibleClassIDs(ctx context.Context, actor models.Actor) (map[string]struct{}, error) {
	visible := make(map[string]struct{})
	switch actor.Role {
	case models.RoleAdmin:
		classes, err := s.classes.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
		}
		for _, class := range classes {
			visible[class.ID] = struct{}{}
		}
	case models.RoleTeacher:
		if actor.TeacherID == "" {
			return visible, nil
		}
		owned, err := s.classes.ClassIDsOwnedByTeacher(ctx, actor.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve owned classes")
		}
		assigned, err := s.assignments.ClassIDsForTeacher(ctx, actor.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve assigned classes")
		}
		for _, id := range owned {
			visible[id] = struct{}{}
		}
		for _, id := range assigned {
			visible[id] = struct{}{}
		}
	case models.RoleStudent:
		if actor.StudentID == "" {
			return visible, nil
		}
		student, err := s.students.FindByID(ctx, actor.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return visible, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student class")
		}
		visible[student.ClassID] = struct{}{}
	}
	// Parents resolve visibility per student, not per class.
	return visible, nil
}

// VisibleSubjects resolves which subject assignments of a class the actor may
// see. Admins see the full curriculum; teachers only the subjects they are
// assigned to teach in that exact class; students and parents see the full
// curriculum of the class once entity-level access to the student is
// established.
func (s *VisibilityService) VisibleSubjects(ctx context.Context, actor models.Actor, classID string) ([]models.ClassSubjectAssignment, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleStudent, models.RoleParent:
		assignments, err := s.assignments.ListByClass(ctx, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class subjects")
		}
		return assignments, nil
	case models.RoleTeacher:
		if actor.TeacherID == "" {
			return nil, nil
		}
		assignments, err := s.assignments.ListByTeacherAndClass(ctx, actor.TeacherID, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher subjects")
		}
		return assignments, nil
	default:
		return nil, nil
	}
}

// AuthorizeStudentAccess performs the entity-level ownership check for a
// student record. Parents may only reach students whose stored guardian
// contact exactly matches their registered email; a mismatch is a visible
// denial regardless of whether the student id exists. Students may only reach
// their own record.
func (s *VisibilityService) AuthorizeStudentAccess(ctx context.Context, actor models.Actor, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Parents and students get the same denial whether or not
			// the id exists; only staff learn that an id is unknown.
			if actor.Role == models.RoleParent || actor.Role == models.RoleStudent {
				return nil, appErrors.ErrForbidden
			}
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	switch actor.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return student, nil
	case models.RoleParent:
		if student.GuardianEmail == "" || student.GuardianEmail != actor.Email {
			s.logger.Info("guardian mismatch denied",
				zap.String("student_id", studentID),
				zap.String("parent_user_id", actor.UserID))
			return nil, appErrors.ErrForbidden
		}
		return student, nil
	case models.RoleStudent:
		if actor.StudentID == "" || actor.StudentID != student.ID {
			return nil, appErrors.ErrForbidden
		}
		return student, nil
	default:
		return nil, appErrors.ErrForbidden
	}
}
