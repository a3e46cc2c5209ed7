package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type mockExamRepo struct {
	exams    map[string]models.Exam
	grades   map[string][]models.ExamGrade
	replaced []models.ExamGrade
}

func (m *mockExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, ok := m.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &exam, nil
}

func (m *mockExamRepo) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	var result []models.Exam
	for _, exam := range m.exams {
		if filter.ClassID != "" && filter.ClassID != exam.ClassID {
			continue
		}
		result = append(result, exam)
	}
	return result, len(result), nil
}

func (m *mockExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	if m.exams == nil {
		m.exams = make(map[string]models.Exam)
	}
	exam.ID = uuid.NewString()
	m.exams[exam.ID] = *exam
	return nil
}

func (m *mockExamRepo) ListGrades(ctx context.Context, examID string) ([]models.ExamGrade, error) {
	return m.grades[examID], nil
}

func (m *mockExamRepo) ReplaceGrades(ctx context.Context, examID string, grades []models.ExamGrade) error {
	m.replaced = grades
	return nil
}

func (m *mockExamRepo) Delete(ctx context.Context, id string) error {
	delete(m.exams, id)
	return nil
}

type mockExamVisibility struct {
	classIDs    map[string]struct{}
	assignments []models.ClassSubjectAssignment
}

func (m *mockExamVisibility) VisibleClassIDs(ctx context.Context, actor models.Actor) (map[string]struct{}, error) {
	return m.classIDs, nil
}

func (m *mockExamVisibility) VisibleSubjects(ctx context.Context, actor models.Actor, classID string) ([]models.ClassSubjectAssignment, error) {
	return m.assignments, nil
}

func newExamFixture() (*ExamService, *mockExamRepo, *mockExamVisibility) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{
			"exam-1": {ID: "exam-1", Name: "Midterm Test", Type: models.ExamTypeTest, ClassID: "class-8", SubjectID: "sub-math", TotalMarks: 50, ExamDate: time.Now()},
		},
	}
	visibility := &mockExamVisibility{
		classIDs: map[string]struct{}{"class-8": {}},
		assignments: []models.ClassSubjectAssignment{
			{ClassID: "class-8", SubjectID: "sub-math"},
		},
	}
	return NewExamService(repo, visibility, nil, nil), repo, visibility
}

func TestExamCreatePassingMarksBound(t *testing.T) {
	svc, _, _ := newExamFixture()

	req := CreateExamRequest{
		Name: "Final", Type: "final", ClassID: "class-8", SubjectID: "sub-math",
		ExamDate: "2026-11-20", TotalMarks: 50, PassingMarks: 60,
	}
	_, err := svc.Create(context.Background(), req, models.Actor{Role: models.RoleAdmin})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExamCreateTeacherNeedsExactAssignment(t *testing.T) {
	svc, _, visibility := newExamFixture()
	visibility.assignments = nil

	req := CreateExamRequest{
		Name: "Quiz 1", Type: "quiz", ClassID: "class-8", SubjectID: "sub-math",
		ExamDate: "2026-10-05", TotalMarks: 20,
	}
	_, err := svc.Create(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	assert.Equal(t, appErrors.ErrForbidden, err)
}

func TestExamCreateNormalisesType(t *testing.T) {
	svc, repo, _ := newExamFixture()

	req := CreateExamRequest{
		Name: "Weekly Quiz", Type: "quiz", ClassID: "class-8", SubjectID: "sub-math",
		ExamDate: "2026-10-05", TotalMarks: 20, PassingMarks: 10,
	}
	exam, err := svc.Create(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1", UserID: "usr-9"})
	require.NoError(t, err)
	assert.Equal(t, models.ExamTypeQuiz, exam.Type)
	assert.Equal(t, "usr-9", exam.CreatedBy)
	assert.Contains(t, repo.exams, exam.ID)
}

func TestExamListTeacherOutOfScopeClassIsEmpty(t *testing.T) {
	svc, _, _ := newExamFixture()

	exams, total, err := svc.List(context.Background(), models.ExamFilter{ClassID: "class-9"}, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	assert.Empty(t, exams)
	assert.Zero(t, total)
}

func TestExamListTeacherRequiresClassFilter(t *testing.T) {
	svc, _, _ := newExamFixture()

	_, _, err := svc.List(context.Background(), models.ExamFilter{}, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSubmitGradesDropsUnmarkedAndBoundsMarks(t *testing.T) {
	svc, repo, _ := newExamFixture()

	marks := 42.0
	req := SubmitExamGradesRequest{Grades: []ExamGradeItem{
		{StudentID: "stu-1", Marks: &marks},
		{StudentID: "stu-2"}, // unmarked, dropped
	}}
	err := svc.SubmitGrades(context.Background(), "exam-1", req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	require.Len(t, repo.replaced, 1)
	assert.Equal(t, "stu-1", repo.replaced[0].StudentID)
	assert.Equal(t, 42.0, repo.replaced[0].MarksObtained)
}

func TestSubmitGradesRejectsMarksAboveTotal(t *testing.T) {
	svc, repo, _ := newExamFixture()

	marks := 55.0
	req := SubmitExamGradesRequest{Grades: []ExamGradeItem{{StudentID: "stu-1", Marks: &marks}}}
	err := svc.SubmitGrades(context.Background(), "exam-1", req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.Error(t, err)
	assert.Nil(t, repo.replaced)
}

func TestExamDeleteUnknown(t *testing.T) {
	svc, _, _ := newExamFixture()

	err := svc.Delete(context.Background(), "exam-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
