package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type mockSheetGradeRepo struct {
	records     map[string]models.PeriodicGradeRecord
	saved       []models.PeriodicGradeRecord
	savedAttend *models.AttendanceSummary
	saveErr     error
	saveCalls   int
	fetchCalls  int
}

func (m *mockSheetGradeRepo) FetchForStudent(ctx context.Context, studentID string, year int) (map[string]models.PeriodicGradeRecord, error) {
	m.fetchCalls++
	result := make(map[string]models.PeriodicGradeRecord)
	for subjectID, record := range m.records {
		if record.StudentID == studentID && record.AcademicYear == year {
			result[subjectID] = record
		}
	}
	return result, nil
}

func (m *mockSheetGradeRepo) SaveSheet(ctx context.Context, records []models.PeriodicGradeRecord, attendance *models.AttendanceSummary) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = records
	m.savedAttend = attendance
	return nil
}

type mockAttendanceReader struct {
	summary *models.AttendanceSummary
}

func (m *mockAttendanceReader) Find(ctx context.Context, studentID string, year int) (*models.AttendanceSummary, error) {
	if m.summary == nil {
		return nil, sql.ErrNoRows
	}
	return m.summary, nil
}

type mockSheetVisibility struct {
	student     *models.Student
	studentErr  error
	assignments []models.ClassSubjectAssignment
}

func (m *mockSheetVisibility) VisibleSubjects(ctx context.Context, actor models.Actor, classID string) ([]models.ClassSubjectAssignment, error) {
	return m.assignments, nil
}

func (m *mockSheetVisibility) AuthorizeStudentAccess(ctx context.Context, actor models.Actor, studentID string) (*models.Student, error) {
	if m.studentErr != nil {
		return nil, m.studentErr
	}
	return m.student, nil
}

type mockSheetClassReader struct {
	class *models.Class
}

func (m *mockSheetClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if m.class == nil {
		return nil, sql.ErrNoRows
	}
	return m.class, nil
}

func scoreptr(v float64) *float64 { return &v }

func newSheetFixture() (*GradeSheetService, *mockSheetGradeRepo, *mockSheetVisibility) {
	grades := &mockSheetGradeRepo{
		records: map[string]models.PeriodicGradeRecord{
			"sub-math": {
				ID: "pg-1", StudentID: "stu-1", SubjectID: "sub-math", AcademicYear: 2026,
				Period1: scoreptr(80), Period3: scoreptr(90),
				Sem2Exam: scoreptr(75),
			},
		},
	}
	visibility := &mockSheetVisibility{
		student: &models.Student{ID: "stu-1", FullName: "Mercy Kollie", ClassID: "class-8"},
		assignments: []models.ClassSubjectAssignment{
			{ID: "asg-1", ClassID: "class-8", SubjectID: "sub-math", SubjectName: "Mathematics", SubjectCode: "MATH"},
		},
	}
	classes := &mockSheetClassReader{class: &models.Class{ID: "class-8", Name: "Grade 8", Section: "A"}}
	svc := NewGradeSheetService(grades, &mockAttendanceReader{}, visibility, classes, nil, nil, nil)
	return svc, grades, visibility
}

func TestAssembleComputesHierarchicalAverages(t *testing.T) {
	svc, _, _ := newSheetFixture()

	view, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, models.Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	row := view.Rows[0]

	// first block averages only the populated periods
	require.NotNil(t, row.FirstBlockAvg.Score)
	assert.Equal(t, 85.0, *row.FirstBlockAvg.Score)
	// no first semester exam, so the semester collapses to the block mean
	require.NotNil(t, row.FirstSemAvg.Score)
	assert.Equal(t, 85.0, *row.FirstSemAvg.Score)
	// second semester has only the exam
	require.NotNil(t, row.SecondSemAvg.Score)
	assert.Equal(t, 75.0, *row.SecondSemAvg.Score)
	require.NotNil(t, row.FinalAvg.Score)
	assert.Equal(t, 80.0, *row.FinalAvg.Score)
}

func TestAssembleEmptySubjectRowHasNilAverages(t *testing.T) {
	svc, grades, _ := newSheetFixture()
	grades.records = nil

	view, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, models.Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	row := view.Rows[0]

	assert.Nil(t, row.Period1.Score)
	assert.Nil(t, row.FinalAvg.Score)
	assert.Equal(t, "", string(row.FinalAvg.Remark))
	assert.False(t, row.Period1.Locked)
}

func TestAssembleLockFlags(t *testing.T) {
	svc, _, _ := newSheetFixture()

	view, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, models.Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	row := view.Rows[0]

	assert.True(t, row.Period1.Locked)
	assert.False(t, row.Period2.Locked, "empty slot stays editable")
	assert.True(t, row.Period3.Locked)
	// the second semester exam is re-editable even once populated
	require.NotNil(t, row.Sem2Exam.Score)
	assert.False(t, row.Sem2Exam.Locked)
}

func TestAssembleDeniedParentPropagates(t *testing.T) {
	svc, _, visibility := newSheetFixture()
	visibility.studentErr = appErrors.ErrForbidden

	_, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, models.Actor{Role: models.RoleParent})
	assert.Equal(t, appErrors.ErrForbidden, err)
}

func TestApplyEditsRejectsNonTeacher(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrForbidden, err)
	assert.Zero(t, grades.saveCalls)
}

func TestApplyEditsLockedSlotsPreserved(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects: []SubjectEdit{{
			SubjectID: "sub-math",
			Period1:   strptr("55"), // already populated, must not change
			Period2:   strptr("66"), // empty slot, accepted
		}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	require.Len(t, grades.saved, 1)

	saved := grades.saved[0]
	require.NotNil(t, saved.Period1)
	assert.Equal(t, 80.0, *saved.Period1)
	require.NotNil(t, saved.Period2)
	assert.Equal(t, 66.0, *saved.Period2)
}

func TestApplyEditsSecondSemExamAlwaysEditable(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects: []SubjectEdit{{
			SubjectID: "sub-math",
			Sem2Exam:  strptr("92"),
		}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	require.Len(t, grades.saved, 1)
	require.NotNil(t, grades.saved[0].Sem2Exam)
	assert.Equal(t, 92.0, *grades.saved[0].Sem2Exam)
}

func TestApplyEditsEmptyStringStoresNull(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects: []SubjectEdit{{
			SubjectID: "sub-math",
			Sem2Exam:  strptr("   "),
		}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	require.Len(t, grades.saved, 1)
	assert.Nil(t, grades.saved[0].Sem2Exam)
}

func TestApplyEditsZeroIsAScoreNotEmpty(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects: []SubjectEdit{{
			SubjectID: "sub-math",
			Period2:   strptr("0"),
		}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	require.Len(t, grades.saved, 1)
	require.NotNil(t, grades.saved[0].Period2)
	assert.Equal(t, 0.0, *grades.saved[0].Period2)
}

func TestApplyEditsUnauthorizedSubjectDropped(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects: []SubjectEdit{{
			SubjectID: "sub-eng", // not in the teacher's visible set
			Period1:   strptr("70"),
		}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	assert.Zero(t, grades.saveCalls, "nothing to persist once the edit is filtered out")
}

func TestApplyEditsInvalidScoreFailsValidation(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects: []SubjectEdit{{
			SubjectID: "sub-math",
			Period2:   strptr("142"),
		}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Zero(t, grades.saveCalls)
}

func TestApplyEditsClassMismatchRejected(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-9", AcademicYear: 2026,
		Subjects:  []SubjectEdit{{SubjectID: "sub-math", Period2: strptr("50")}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Zero(t, grades.saveCalls)
}

func TestApplyEditsBatchFailureIsGeneric(t *testing.T) {
	svc, grades, _ := newSheetFixture()
	grades.saveErr = errors.New("pq: deadlock detected")

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects:  []SubjectEdit{{SubjectID: "sub-math", Period2: strptr("50")}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGradeUpdateFailed.Code, appErr.Code)
	assert.Equal(t, "failed to update grades", appErr.Message)
}

func TestApplyEditsAttendanceMerged(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	absent := 4
	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Attendance: &AttendanceEdit{DaysAbsent: &absent},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	require.NotNil(t, grades.savedAttend)
	assert.Equal(t, 4, grades.savedAttend.DaysAbsent)
	assert.Equal(t, 0, grades.savedAttend.DaysLate)
}

func TestApplyEditsNoChangesSkipsPersistence(t *testing.T) {
	svc, grades, _ := newSheetFixture()

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects:  []SubjectEdit{{SubjectID: "sub-math", Period1: strptr("80")}},
	}
	err := svc.ApplyEdits(context.Background(), req, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)
	assert.Zero(t, grades.saveCalls)
}

func TestAssembleServesCachedSheetOnRepeat(t *testing.T) {
	svc, grades, _ := newSheetFixture()
	svc.cache = NewCacheService(newMemoryCacheStore(), nil, time.Minute, nil)

	actor := models.Actor{Role: models.RoleAdmin}
	first, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, actor)
	require.NoError(t, err)
	second, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, actor)
	require.NoError(t, err)

	assert.Equal(t, 1, grades.fetchCalls)
	assert.Equal(t, first.StudentID, second.StudentID)
	require.Len(t, second.Rows, 1)
	require.NotNil(t, second.Rows[0].FinalAvg.Score)
	assert.Equal(t, 80.0, *second.Rows[0].FinalAvg.Score)
}

func TestAssembleCacheIsScopedPerActor(t *testing.T) {
	svc, grades, _ := newSheetFixture()
	svc.cache = NewCacheService(newMemoryCacheStore(), nil, time.Minute, nil)

	_, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, models.Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.Assemble(context.Background(), "stu-1", "class-8", 2026, models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"})
	require.NoError(t, err)

	// the admin's cached sheet must not answer the teacher's request
	assert.Equal(t, 2, grades.fetchCalls)
}

func TestApplyEditsInvalidatesCachedSheet(t *testing.T) {
	svc, grades, _ := newSheetFixture()
	svc.cache = NewCacheService(newMemoryCacheStore(), nil, time.Minute, nil)

	actor := models.Actor{Role: models.RoleTeacher, TeacherID: "tch-1"}
	_, err := svc.Assemble(context.Background(), "stu-1", "class-8", 2026, actor)
	require.NoError(t, err)

	req := ApplyEditsRequest{
		StudentID: "stu-1", ClassID: "class-8", AcademicYear: 2026,
		Subjects:  []SubjectEdit{{SubjectID: "sub-math", Period2: strptr("66")}},
	}
	require.NoError(t, svc.ApplyEdits(context.Background(), req, actor))

	_, err = svc.Assemble(context.Background(), "stu-1", "class-8", 2026, actor)
	require.NoError(t, err)

	// assemble, the edit's own read, then a fresh assemble after invalidation
	assert.Equal(t, 3, grades.fetchCalls)
}
