package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type mockClassRepo struct {
	classes      map[string]models.Class
	studentCount map[string]int
	deleted      []string
}

func (m *mockClassRepo) List(ctx context.Context) ([]models.Class, error) {
	var result []models.Class
	for _, class := range m.classes {
		result = append(result, class)
	}
	return result, nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

func (m *mockClassRepo) ExistsByNameSection(ctx context.Context, name, section, excludeID string) (bool, error) {
	for _, class := range m.classes {
		if class.ID == excludeID {
			continue
		}
		if class.Name == name && class.Section == section {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = make(map[string]models.Class)
	}
	class.ID = uuid.NewString()
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) CountStudents(ctx context.Context, classID string) (int, error) {
	return m.studentCount[classID], nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	delete(m.classes, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockClassAssignmentRepo struct {
	byClass  map[string][]models.ClassSubjectAssignment
	replaced []models.ClassSubjectAssignment
}

func (m *mockClassAssignmentRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error) {
	if m.replaced != nil {
		return m.replaced, nil
	}
	return m.byClass[classID], nil
}

func (m *mockClassAssignmentRepo) Replace(ctx context.Context, classID string, assignments []models.ClassSubjectAssignment) error {
	m.replaced = assignments
	return nil
}

func newClassFixture() (*ClassService, *mockClassRepo, *mockClassAssignmentRepo) {
	classes := &mockClassRepo{
		classes: map[string]models.Class{
			"class-8": {ID: "class-8", Name: "Grade 8", Section: "A"},
		},
		studentCount: map[string]int{"class-8": 12},
	}
	assignments := &mockClassAssignmentRepo{}
	return NewClassService(classes, assignments, nil, nil), classes, assignments
}

func TestClassCreateDuplicateNameSection(t *testing.T) {
	svc, _, _ := newClassFixture()

	_, err := svc.Create(context.Background(), ClassRequest{Name: "Grade 8", Section: "A"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestClassCreateSameNameDifferentSection(t *testing.T) {
	svc, classes, _ := newClassFixture()

	class, err := svc.Create(context.Background(), ClassRequest{Name: "Grade 8", Section: "B"})
	require.NoError(t, err)
	assert.Contains(t, classes.classes, class.ID)
}

func TestClassDeleteBlockedByEnrollment(t *testing.T) {
	svc, classes, _ := newClassFixture()

	err := svc.Delete(context.Background(), "class-8")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDependencyExists.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "12 student(s) still enrolled")
	assert.Empty(t, classes.deleted)
}

func TestClassDeleteEmptyClass(t *testing.T) {
	svc, classes, _ := newClassFixture()
	classes.studentCount["class-8"] = 0

	err := svc.Delete(context.Background(), "class-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"class-8"}, classes.deleted)
}

func TestReplaceAssignmentsRejectsDuplicateSubject(t *testing.T) {
	svc, _, assignments := newClassFixture()

	req := ReplaceAssignmentsRequest{Assignments: []AssignmentItem{
		{SubjectID: "sub-math"},
		{SubjectID: "sub-math"},
	}}
	_, err := svc.ReplaceAssignments(context.Background(), "class-8", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, assignments.replaced)
}

func TestReplaceAssignmentsSwapsFullSet(t *testing.T) {
	svc, _, assignments := newClassFixture()

	req := ReplaceAssignmentsRequest{Assignments: []AssignmentItem{
		{SubjectID: "sub-math", TeacherID: strptr("tch-1")},
		{SubjectID: "sub-eng"},
	}}
	result, err := svc.ReplaceAssignments(context.Background(), "class-8", req)
	require.NoError(t, err)
	require.Len(t, assignments.replaced, 2)
	assert.Len(t, result, 2)
}

func TestReplaceAssignmentsUnknownClass(t *testing.T) {
	svc, _, _ := newClassFixture()

	_, err := svc.ReplaceAssignments(context.Background(), "class-missing", ReplaceAssignmentsRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
