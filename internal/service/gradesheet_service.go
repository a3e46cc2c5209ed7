package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/palava-labs/school-portal-api/internal/grading"
	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type gradeSheetRepo interface {
	FetchForStudent(ctx context.Context, studentID string, year int) (map[string]models.PeriodicGradeRecord, error)
	SaveSheet(ctx context.Context, records []models.PeriodicGradeRecord, attendance *models.AttendanceSummary) error
}

type attendanceReader interface {
	Find(ctx context.Context, studentID string, year int) (*models.AttendanceSummary, error)
}

type sheetVisibility interface {
	VisibleSubjects(ctx context.Context, actor models.Actor, classID string) ([]models.ClassSubjectAssignment, error)
	AuthorizeStudentAccess(ctx context.Context, actor models.Actor, studentID string) (*models.Student, error)
}

type sheetClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// SubjectEdit is the per-subject slice of a grade-sheet submission. String
// pointers distinguish "field absent" (nil, leave the slot alone) from an
// explicit empty value ("" stores NULL, never zero).
type SubjectEdit struct {
	SubjectID string  `json:"subject_id" validate:"required"`
	Period1   *string `json:"first_period"`
	Period2   *string `json:"second_period"`
	Period3   *string `json:"third_period"`
	Sem1Exam  *string `json:"first_sem_exam"`
	Period4   *string `json:"fourth_period"`
	Period5   *string `json:"fifth_period"`
	Period6   *string `json:"sixth_period"`
	Sem2Exam  *string `json:"second_sem_exam"`
}

// AttendanceEdit carries the two counters submitted with a sheet.
type AttendanceEdit struct {
	DaysAbsent *int `json:"days_absent" validate:"omitempty,min=0"`
	DaysLate   *int `json:"days_late" validate:"omitempty,min=0"`
}

// ApplyEditsRequest is the full grade-sheet submission payload.
type ApplyEditsRequest struct {
	StudentID    string         `json:"student_id" validate:"required"`
	ClassID      string         `json:"class_id" validate:"required"`
	AcademicYear int            `json:"academic_year" validate:"required"`
	Subjects     []SubjectEdit  `json:"subjects" validate:"dive"`
	Attendance   *AttendanceEdit `json:"attendance"`
}

// GradeSheetService assembles per-student report sheets and applies teacher
// edits to them. Assembled sheets are cached per actor scope; every edit
// batch invalidates the affected sheet.
type GradeSheetService struct {
	grades     gradeSheetRepo
	attendance attendanceReader
	visibility sheetVisibility
	classes    sheetClassReader
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeSheetService constructs the service. A nil cache disables sheet
// caching.
func NewGradeSheetService(grades gradeSheetRepo, attendance attendanceReader, visibility sheetVisibility, classes sheetClassReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeSheetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeSheetService{grades: grades, attendance: attendance, visibility: visibility, classes: classes, cache: cache, validator: validate, logger: logger}
}

// Assemble builds the full report for one student, class and year. Subjects
// are filtered through the visibility resolver first, so a teacher outside
// the class simply gets an empty sheet rather than an authorization error;
// parents and students pass the entity-level ownership check or are denied
// outright.
func (s *GradeSheetService) Assemble(ctx context.Context, studentID, classID string, year int, actor models.Actor) (*models.SheetView, error) {
	student, err := s.visibility.AuthorizeStudentAccess(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}

	// Cached sheets are keyed per actor scope because visibility already
	// filtered the rows. The lookup sits behind the ownership check so a
	// cached sheet is never served to an actor that would be denied now.
	key := sheetCacheKey(studentID, classID, year, actor)
	var cached models.SheetView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	assignments, err := s.visibility.VisibleSubjects(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	records, err := s.grades.FetchForStudent(ctx, studentID, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade records")
	}

	view := &models.SheetView{
		StudentID:    student.ID,
		StudentName:  student.FullName,
		ClassID:      class.ID,
		ClassName:    strings.TrimSpace(class.Name + " " + class.Section),
		AcademicYear: year,
		Rows:         make([]models.SheetRow, 0, len(assignments)),
	}

	for _, assignment := range assignments {
		record := records[assignment.SubjectID] // zero value means all slots empty
		view.Rows = append(view.Rows, buildRow(assignment, record))
	}

	summary, err := s.attendance.Find(ctx, studentID, year)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
		// no summary yet: counters default to zero
	} else {
		view.DaysAbsent = summary.DaysAbsent
		view.DaysLate = summary.DaysLate
	}

	s.cache.Set(ctx, key, view)
	return view, nil
}

// sheetCacheKey scopes cached sheets by role and profile so a teacher's
// filtered view is never handed to another actor.
func sheetCacheKey(studentID, classID string, year int, actor models.Actor) string {
	scope := string(actor.Role)
	switch actor.Role {
	case models.RoleTeacher:
		scope += ":" + actor.TeacherID
	case models.RoleStudent:
		scope += ":" + actor.StudentID
	case models.RoleParent:
		scope += ":" + actor.UserID
	}
	return fmt.Sprintf("grade-sheet:%s:%s:%d:%s", studentID, classID, year, scope)
}

func buildRow(assignment models.ClassSubjectAssignment, record models.PeriodicGradeRecord) models.SheetRow {
	avgs := grading.Compute(record.Slots())
	return models.SheetRow{
		SubjectID:   assignment.SubjectID,
		SubjectName: assignment.SubjectName,
		SubjectCode: assignment.SubjectCode,

		Period1:  rawCell(record.Period1, true),
		Period2:  rawCell(record.Period2, true),
		Period3:  rawCell(record.Period3, true),
		Sem1Exam: rawCell(record.Sem1Exam, true),
		Period4:  rawCell(record.Period4, true),
		Period5:  rawCell(record.Period5, true),
		Period6:  rawCell(record.Period6, true),
		// second-semester exam stays editable after entry
		Sem2Exam: rawCell(record.Sem2Exam, false),

		FirstBlockAvg:  derivedCell(avgs.FirstBlock),
		FirstSemAvg:    derivedCell(avgs.FirstSem),
		SecondBlockAvg: derivedCell(avgs.SecondBlock),
		SecondSemAvg:   derivedCell(avgs.SecondSem),
		FinalAvg:       derivedCell(avgs.Final),
	}
}

func rawCell(score *float64, lockable bool) models.SheetCell {
	return models.SheetCell{
		Score:  score,
		Remark: grading.Classify(score),
		Hint:   grading.ClassifyHint(score),
		Locked: lockable && score != nil,
	}
}

func derivedCell(score *float64) models.SheetCell {
	return models.SheetCell{Score: score, Remark: grading.Classify(score), Hint: grading.ClassifyHint(score)}
}

// ApplyEdits validates and persists a grade-sheet submission. Only teachers
// may submit; admins are read-only on this form as a product rule. Edits for
// subjects outside the teacher's visibility are dropped, slot locks are
// enforced server-side, and the whole batch (every subject upsert plus the
// attendance upsert) commits atomically or not at all. The caller only ever
// sees the generic grade-update failure, not the database detail.
func (s *GradeSheetService) ApplyEdits(ctx context.Context, req ApplyEditsRequest, actor models.Actor) error {
	if !actor.IsTeacher() {
		return appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade sheet payload")
	}

	student, err := s.visibility.AuthorizeStudentAccess(ctx, actor, req.StudentID)
	if err != nil {
		return err
	}
	if student.ClassID != req.ClassID {
		return appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in this class")
	}

	assignments, err := s.visibility.VisibleSubjects(ctx, actor, req.ClassID)
	if err != nil {
		return err
	}
	editable := make(map[string]struct{}, len(assignments))
	for _, assignment := range assignments {
		editable[assignment.SubjectID] = struct{}{}
	}

	existing, err := s.grades.FetchForStudent(ctx, req.StudentID, req.AcademicYear)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade records")
	}

	var records []models.PeriodicGradeRecord
	var fieldErrs []string
	for _, edit := range req.Subjects {
		if _, ok := editable[edit.SubjectID]; !ok {
			// unauthorized subject: dropped, not errored
			continue
		}
		record, hadRecord := existing[edit.SubjectID]
		if !hadRecord {
			record = models.PeriodicGradeRecord{StudentID: req.StudentID, SubjectID: edit.SubjectID, AcademicYear: req.AcademicYear}
		}
		changed, errs := mergeEdit(&record, edit)
		fieldErrs = append(fieldErrs, errs...)
		if changed {
			records = append(records, record)
		}
	}
	if len(fieldErrs) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, strings.Join(fieldErrs, "; "))
	}

	attendance, err := s.mergeAttendance(ctx, req, student.ID)
	if err != nil {
		return err
	}

	if len(records) == 0 && attendance == nil {
		return nil
	}

	if err := s.grades.SaveSheet(ctx, records, attendance); err != nil {
		s.logger.Error("grade batch failed", zap.Error(err), zap.String("student_id", req.StudentID))
		return appErrors.Wrap(err, appErrors.ErrGradeUpdateFailed.Code, appErrors.ErrGradeUpdateFailed.Status, appErrors.ErrGradeUpdateFailed.Message)
	}

	// every actor-scoped copy of this sheet is now stale
	s.cache.Invalidate(ctx, fmt.Sprintf("grade-sheet:%s:%s:%d:*", req.StudentID, req.ClassID, req.AcademicYear))
	return nil
}

func (s *GradeSheetService) mergeAttendance(ctx context.Context, req ApplyEditsRequest, studentID string) (*models.AttendanceSummary, error) {
	if req.Attendance == nil || (req.Attendance.DaysAbsent == nil && req.Attendance.DaysLate == nil) {
		return nil, nil
	}
	summary, err := s.attendance.Find(ctx, studentID, req.AcademicYear)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
		summary = &models.AttendanceSummary{StudentID: studentID, AcademicYear: req.AcademicYear}
	}
	if req.Attendance.DaysAbsent != nil {
		summary.DaysAbsent = *req.Attendance.DaysAbsent
	}
	if req.Attendance.DaysLate != nil {
		summary.DaysLate = *req.Attendance.DaysLate
	}
	return summary, nil
}

// mergeEdit applies one subject's submitted fields onto the stored record.
// A nil field was not submitted and leaves the slot untouched. A populated
// slot is locked against overwrites, with the second-semester exam as the
// one slot that stays writable after entry.
func mergeEdit(record *models.PeriodicGradeRecord, edit SubjectEdit) (changed bool, errs []string) {
	slots := []struct {
		name   string
		input  *string
		target **float64
		locked bool
	}{
		{"first_period", edit.Period1, &record.Period1, record.Period1 != nil},
		{"second_period", edit.Period2, &record.Period2, record.Period2 != nil},
		{"third_period", edit.Period3, &record.Period3, record.Period3 != nil},
		{"first_sem_exam", edit.Sem1Exam, &record.Sem1Exam, record.Sem1Exam != nil},
		{"fourth_period", edit.Period4, &record.Period4, record.Period4 != nil},
		{"fifth_period", edit.Period5, &record.Period5, record.Period5 != nil},
		{"sixth_period", edit.Period6, &record.Period6, record.Period6 != nil},
		{"second_sem_exam", edit.Sem2Exam, &record.Sem2Exam, false},
	}
	for _, slot := range slots {
		if slot.input == nil || slot.locked {
			continue
		}
		value, err := parseScore(*slot.input)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", slot.name, err))
			continue
		}
		if !scoresEqual(*slot.target, value) {
			*slot.target = value
			changed = true
		}
	}
	return changed, errs
}

// parseScore converts a submitted form value. Whitespace-only input counts
// as empty and maps to NULL.
func parseScore(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number")
	}
	if value < 0 || value > 100 {
		return nil, fmt.Errorf("must be between 0 and 100")
	}
	return &value, nil
}

func scoresEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
