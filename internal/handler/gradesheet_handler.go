package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palava-labs/school-portal-api/internal/service"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
	"github.com/palava-labs/school-portal-api/pkg/response"
)

// GradeSheetHandler exposes the periodic grade sheet and its exports.
type GradeSheetHandler struct {
	sheets  *service.GradeSheetService
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewGradeSheetHandler constructs the handler.
func NewGradeSheetHandler(sheets *service.GradeSheetService, exports *service.ExportService, metrics *service.MetricsService) *GradeSheetHandler {
	return &GradeSheetHandler{sheets: sheets, exports: exports, metrics: metrics}
}

type sheetQuery struct {
	StudentID    string
	ClassID      string
	AcademicYear int
}

func parseSheetQuery(c *gin.Context) (sheetQuery, error) {
	q := sheetQuery{StudentID: c.Query("student_id"), ClassID: c.Query("class_id")}
	if q.StudentID == "" || q.ClassID == "" {
		return q, appErrors.Clone(appErrors.ErrValidation, "student_id and class_id are required")
	}
	if raw := c.Query("academic_year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return q, appErrors.Clone(appErrors.ErrValidation, "academic_year must be a number")
		}
		q.AcademicYear = year
	} else {
		q.AcademicYear = time.Now().Year()
	}
	return q, nil
}

// View godoc
// @Summary View a student's grade sheet
// @Description One row per visible subject with computed semester and final averages
// @Tags GradeSheets
// @Produce json
// @Param student_id query string true "Student id"
// @Param class_id query string true "Class id"
// @Param academic_year query int false "Academic year, defaults to the current year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grade-sheets [get]
func (h *GradeSheetHandler) View(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	q, err := parseSheetQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.sheets.Assemble(c.Request.Context(), q.StudentID, q.ClassID, q.AcademicYear, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountSheetAssembly()
	response.JSON(c, http.StatusOK, view, nil)
}

// Save godoc
// @Summary Save grade sheet edits
// @Description Applies the submitted slots and attendance counters in one transaction
// @Tags GradeSheets
// @Accept json
// @Produce json
// @Param payload body service.ApplyEditsRequest true "Grade sheet payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grade-sheets [put]
func (h *GradeSheetHandler) Save(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ApplyEditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade sheet payload"))
		return
	}

	if err := h.sheets.ApplyEdits(c.Request.Context(), req, actor); err != nil {
		h.metrics.CountGradeBatch("failure")
		response.Error(c, err)
		return
	}
	h.metrics.CountGradeBatch("success")
	response.NoContent(c)
}

// ReportCardPDF godoc
// @Summary Download a report card as PDF
// @Tags GradeSheets
// @Produce application/pdf
// @Param student_id query string true "Student id"
// @Param class_id query string true "Class id"
// @Param academic_year query int false "Academic year, defaults to the current year"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /grade-sheets/report-card.pdf [get]
func (h *GradeSheetHandler) ReportCardPDF(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	q, err := parseSheetQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, filename, err := h.exports.ReportCardPDF(c.Request.Context(), q.StudentID, q.ClassID, q.AcademicYear, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ReportCardCSV godoc
// @Summary Download a report card as CSV
// @Tags GradeSheets
// @Produce text/csv
// @Param student_id query string true "Student id"
// @Param class_id query string true "Class id"
// @Param academic_year query int false "Academic year, defaults to the current year"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /grade-sheets/report-card.csv [get]
func (h *GradeSheetHandler) ReportCardCSV(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	q, err := parseSheetQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, filename, err := h.exports.ReportCardCSV(c.Request.Context(), q.StudentID, q.ClassID, q.AcademicYear, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
