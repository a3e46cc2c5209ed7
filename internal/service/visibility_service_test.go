package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type mockVisibilityClassRepo struct {
	classes map[string]models.Class
	owned   map[string][]string
}

func (m *mockVisibilityClassRepo) List(ctx context.Context) ([]models.Class, error) {
	var result []models.Class
	for _, class := range m.classes {
		result = append(result, class)
	}
	return result, nil
}

func (m *mockVisibilityClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

func (m *mockVisibilityClassRepo) ClassIDsOwnedByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	return m.owned[teacherID], nil
}

type mockVisibilityAssignmentRepo struct {
	byClass map[string][]models.ClassSubjectAssignment
}

func (m *mockVisibilityAssignmentRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error) {
	return m.byClass[classID], nil
}

func (m *mockVisibilityAssignmentRepo) ListByTeacherAndClass(ctx context.Context, teacherID, classID string) ([]models.ClassSubjectAssignment, error) {
	var result []models.ClassSubjectAssignment
	for _, assignment := range m.byClass[classID] {
		if assignment.TeacherID != nil && *assignment.TeacherID == teacherID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (m *mockVisibilityAssignmentRepo) ClassIDsForTeacher(ctx context.Context, teacherID string) ([]string, error) {
	var result []string
	for classID, assignments := range m.byClass {
		for _, assignment := range assignments {
			if assignment.TeacherID != nil && *assignment.TeacherID == teacherID {
				result = append(result, classID)
				break
			}
		}
	}
	return result, nil
}

type mockVisibilityStudentRepo struct {
	students map[string]models.Student
}

func (m *mockVisibilityStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (m *mockVisibilityStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, student := range m.students {
		if student.UserID != nil && *student.UserID == userID {
			s := student
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func strptr(s string) *string { return &s }

func newVisibilityFixture() (*VisibilityService, *mockVisibilityClassRepo, *mockVisibilityAssignmentRepo, *mockVisibilityStudentRepo) {
	classes := &mockVisibilityClassRepo{
		classes: map[string]models.Class{
			"class-7": {ID: "class-7", Name: "Grade 7", Section: "A"},
			"class-8": {ID: "class-8", Name: "Grade 8", Section: "A"},
			"class-9": {ID: "class-9", Name: "Grade 9", Section: "B"},
		},
		owned: map[string][]string{"tch-1": {"class-7"}},
	}
	assignments := &mockVisibilityAssignmentRepo{
		byClass: map[string][]models.ClassSubjectAssignment{
			"class-8": {
				{ID: "asg-1", ClassID: "class-8", SubjectID: "sub-math", TeacherID: strptr("tch-1"), SubjectName: "Mathematics"},
				{ID: "asg-2", ClassID: "class-8", SubjectID: "sub-eng", TeacherID: strptr("tch-2"), SubjectName: "English"},
			},
			"class-9": {
				{ID: "asg-3", ClassID: "class-9", SubjectID: "sub-sci", TeacherID: strptr("tch-2"), SubjectName: "Science"},
			},
		},
	}
	students := &mockVisibilityStudentRepo{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", FullName: "Mercy Kollie", ClassID: "class-8", GuardianEmail: "guardian@example.com"},
			"stu-2": {ID: "stu-2", FullName: "James Doe", ClassID: "class-8"},
		},
	}
	return NewVisibilityService(classes, assignments, students, nil), classes, assignments, students
}

func TestVisibleClassIDsAdminSeesAll(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	visible, err := svc.VisibleClassIDs(context.Background(), models.Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, visible, 3)
}

func TestVisibleClassIDsTeacherUnionOfOwnedAndAssigned(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	visible, err := svc.VisibleClassIDs(context.Background(), models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	assert.Len(t, visible, 2)
	assert.Contains(t, visible, "class-7")
	assert.Contains(t, visible, "class-8")
	assert.NotContains(t, visible, "class-9")
}

func TestVisibleClassIDsOrphanedTeacherSeesNothing(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	visible, err := svc.VisibleClassIDs(context.Background(), models.Actor{Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestVisibleClassIDsStudentSeesOwnClass(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	visible, err := svc.VisibleClassIDs(context.Background(), models.Actor{Role: models.RoleStudent, StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	assert.Contains(t, visible, "class-8")
}

func TestVisibleSubjectsTeacherExactTripleOnly(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	subjects, err := svc.VisibleSubjects(context.Background(), models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"}, "class-8")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "sub-math", subjects[0].SubjectID)
}

func TestVisibleSubjectsOrphanedTeacherGetsEmptySet(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	subjects, err := svc.VisibleSubjects(context.Background(), models.Actor{Role: models.RoleTeacher}, "class-8")
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestVisibleSubjectsAdminSeesFullCurriculum(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	subjects, err := svc.VisibleSubjects(context.Background(), models.Actor{Role: models.RoleAdmin}, "class-8")
	require.NoError(t, err)
	assert.Len(t, subjects, 2)
}

func TestAuthorizeStudentAccessParentGuardianMatch(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	student, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleParent, Email: "guardian@example.com"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)
}

func TestAuthorizeStudentAccessParentMismatchDenied(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	_, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleParent, Email: "other@example.com"}, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden, err)
}

func TestAuthorizeStudentAccessParentDeniedWhenNoGuardianOnRecord(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	_, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleParent, Email: "guardian@example.com"}, "stu-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden, err)
}

func TestAuthorizeStudentAccessStudentSelfOnly(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	student, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleStudent, StudentID: "stu-1"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)

	_, err = svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleStudent, StudentID: "stu-1"}, "stu-2")
	assert.Equal(t, appErrors.ErrForbidden, err)
}

func TestAuthorizeStudentAccessUnknownStudent(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	_, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleAdmin}, "stu-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAuthorizeStudentAccessParentUnknownStudentDeniedNotNotFound(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	_, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleParent, Email: "guardian@example.com"}, "stu-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAuthorizeStudentAccessStudentUnknownIDDeniedNotNotFound(t *testing.T) {
	svc, _, _, _ := newVisibilityFixture()

	_, err := svc.AuthorizeStudentAccess(context.Background(), models.Actor{Role: models.RoleStudent, StudentID: "stu-1"}, "stu-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
