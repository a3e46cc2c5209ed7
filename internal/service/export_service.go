package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/palava-labs/school-portal-api/internal/models"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
	"github.com/palava-labs/school-portal-api/pkg/export"
)

type sheetAssembler interface {
	Assemble(ctx context.Context, studentID, classID string, year int, actor models.Actor) (*models.SheetView, error)
}

// ExportService renders assembled grade sheets as downloadable report cards.
type ExportService struct {
	sheets     sheetAssembler
	schoolName string
	logger     *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(sheets sheetAssembler, schoolName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sheets: sheets, schoolName: schoolName, logger: logger}
}

var reportCardHeaders = []string{
	"Subject", "P1", "P2", "P3", "Sem1 Exam", "Sem1 Avg",
	"P4", "P5", "P6", "Sem2 Exam", "Sem2 Avg", "Final", "Remark",
}

// ReportCardPDF renders the student's report card as a PDF document. The
// same visibility rules as the JSON sheet apply since it reuses Assemble.
func (s *ExportService) ReportCardPDF(ctx context.Context, studentID, classID string, year int, actor models.Actor) ([]byte, string, error) {
	view, err := s.sheets.Assemble(ctx, studentID, classID, year, actor)
	if err != nil {
		return nil, "", err
	}
	subtitle := fmt.Sprintf("%s | Class %s | Academic Year %d | Absent: %d, Late: %d",
		view.StudentName, view.ClassName, view.AcademicYear, view.DaysAbsent, view.DaysLate)
	data, err := export.PDF(s.dataset(view), subtitle)
	if err != nil {
		s.logger.Error("report card pdf failed", zap.Error(err), zap.String("student_id", studentID))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return data, fmt.Sprintf("report-card-%s-%d.pdf", view.StudentID, year), nil
}

// ReportCardCSV renders the student's report card as CSV.
func (s *ExportService) ReportCardCSV(ctx context.Context, studentID, classID string, year int, actor models.Actor) ([]byte, string, error) {
	view, err := s.sheets.Assemble(ctx, studentID, classID, year, actor)
	if err != nil {
		return nil, "", err
	}
	data, err := export.CSV(s.dataset(view))
	if err != nil {
		s.logger.Error("report card csv failed", zap.Error(err), zap.String("student_id", studentID))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return data, fmt.Sprintf("report-card-%s-%d.csv", view.StudentID, year), nil
}

func (s *ExportService) dataset(view *models.SheetView) export.Dataset {
	title := s.schoolName
	if title == "" {
		title = "Report Card"
	}
	rows := make([]map[string]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		rows = append(rows, map[string]string{
			"Subject":   row.SubjectName,
			"P1":        formatScore(row.Period1.Score),
			"P2":        formatScore(row.Period2.Score),
			"P3":        formatScore(row.Period3.Score),
			"Sem1 Exam": formatScore(row.Sem1Exam.Score),
			"Sem1 Avg":  formatScore(row.FirstSemAvg.Score),
			"P4":        formatScore(row.Period4.Score),
			"P5":        formatScore(row.Period5.Score),
			"P6":        formatScore(row.Period6.Score),
			"Sem2 Exam": formatScore(row.Sem2Exam.Score),
			"Sem2 Avg":  formatScore(row.SecondSemAvg.Score),
			"Final":     formatScore(row.FinalAvg.Score),
			"Remark":    string(row.FinalAvg.Remark),
		})
	}
	return export.Dataset{Title: title, Headers: reportCardHeaders, Rows: rows}
}

func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}
