package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/palava-labs/school-portal-api/internal/middleware"
	"github.com/palava-labs/school-portal-api/internal/models"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	GradeSheets   *GradeSheetHandler
	Classes       *ClassHandler
	Subjects      *SubjectHandler
	Students      *StudentHandler
	Exams         *ExamHandler
	Announcements *AnnouncementHandler
}

// RegisterRoutes mounts the API surface under the given prefix. The session
// middleware guards everything except login; role gates reject roles with no
// business on a route, while per-row scoping stays inside the services.
func RegisterRoutes(r *gin.Engine, prefix string, authn gin.HandlerFunc, h Handlers) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(authn)

	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/me", h.Auth.Me)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	protected.GET("/grade-sheets", h.GradeSheets.View)
	protected.PUT("/grade-sheets", staff, h.GradeSheets.Save)
	protected.GET("/grade-sheets/report-card.pdf", h.GradeSheets.ReportCardPDF)
	protected.GET("/grade-sheets/report-card.csv", h.GradeSheets.ReportCardCSV)

	protected.GET("/classes", staff, h.Classes.List)
	protected.GET("/classes/:id", staff, h.Classes.Get)
	protected.POST("/classes", adminOnly, h.Classes.Create)
	protected.PUT("/classes/:id", adminOnly, h.Classes.Update)
	protected.DELETE("/classes/:id", adminOnly, h.Classes.Delete)
	protected.PUT("/classes/:id/subjects", adminOnly, h.Classes.ReplaceSubjects)

	protected.GET("/subjects", staff, h.Subjects.List)
	protected.POST("/subjects", adminOnly, h.Subjects.Create)
	protected.PUT("/subjects/:id", adminOnly, h.Subjects.Update)
	protected.DELETE("/subjects/:id", adminOnly, h.Subjects.Delete)

	protected.GET("/students", staff, h.Students.List)
	protected.GET("/students/:id", h.Students.Get)
	protected.POST("/students", adminOnly, h.Students.Create)
	protected.PUT("/students/:id", adminOnly, h.Students.Update)
	protected.DELETE("/students/:id", adminOnly, h.Students.Delete)

	protected.GET("/exams", staff, h.Exams.List)
	protected.POST("/exams", staff, h.Exams.Create)
	protected.GET("/exams/:id/grades", staff, h.Exams.Grades)
	protected.PUT("/exams/:id/grades", staff, h.Exams.SubmitGrades)
	protected.DELETE("/exams/:id", adminOnly, h.Exams.Delete)

	protected.GET("/announcements", h.Announcements.List)
	protected.POST("/announcements", adminOnly, h.Announcements.Create)
	protected.PUT("/announcements/:id", adminOnly, h.Announcements.Update)
	protected.DELETE("/announcements/:id", adminOnly, h.Announcements.Delete)
}
