package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palava-labs/school-portal-api/internal/models"
	"github.com/palava-labs/school-portal-api/internal/service"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
	"github.com/palava-labs/school-portal-api/pkg/response"
)

// ExamHandler exposes ad hoc assessment endpoints.
type ExamHandler struct {
	exams *service.ExamService
}

// NewExamHandler constructs the handler.
func NewExamHandler(exams *service.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// List godoc
// @Summary List exams
// @Description Teachers see only exams for their subject assignments
// @Tags Exams
// @Produce json
// @Param class_id query string false "Filter by class"
// @Param subject_id query string false "Filter by subject"
// @Param type query string false "Filter by exam type"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ExamFilter{
		ClassID:   c.Query("class_id"),
		SubjectID: c.Query("subject_id"),
		Type:      c.Query("type"),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "page_size", 20),
	}

	exams, total, err := h.exams.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// Create godoc
// @Summary Schedule an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	exam, err := h.exams.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Grades godoc
// @Summary List marks for an exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams/{id}/grades [get]
func (h *ExamHandler) Grades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exam, grades, err := h.exams.Grades(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"exam": exam, "grades": grades}, nil)
}

// SubmitGrades godoc
// @Summary Submit marks for an exam
// @Description Replaces the full mark set in one transaction
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam id"
// @Param payload body service.SubmitExamGradesRequest true "Marks payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams/{id}/grades [put]
func (h *ExamHandler) SubmitGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitExamGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid marks payload"))
		return
	}
	if err := h.exams.SubmitGrades(c.Request.Context(), c.Param("id"), req, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete an exam and its marks
// @Tags Exams
// @Produce json
// @Param id path string true "Exam id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id} [delete]
func (h *ExamHandler) Delete(c *gin.Context) {
	if err := h.exams.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
