package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/palava-labs/school-portal-api/api/swagger"
	"github.com/palava-labs/school-portal-api/internal/handler"
	"github.com/palava-labs/school-portal-api/internal/middleware"
	"github.com/palava-labs/school-portal-api/internal/repository"
	"github.com/palava-labs/school-portal-api/internal/service"
	"github.com/palava-labs/school-portal-api/internal/session"
	"github.com/palava-labs/school-portal-api/pkg/cache"
	"github.com/palava-labs/school-portal-api/pkg/config"
	"github.com/palava-labs/school-portal-api/pkg/database"
	"github.com/palava-labs/school-portal-api/pkg/logger"
	corsmiddleware "github.com/palava-labs/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/palava-labs/school-portal-api/pkg/middleware/requestid"
)

// @title School Portal API
// @version 1.0.0
// @description Grade aggregation and role-scoped visibility for a school administration portal
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	examRepo := repository.NewExamRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	sessions := session.NewStore(redisClient, cfg.Session.IdleTimeout, cfg.Session.RotationInterval)
	tokens := session.NewTokenCodec(cfg.Session.Secret, cfg.Session.IdleTimeout+cfg.Session.RotationInterval)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.SheetTTL, logr)
	visibilitySvc := service.NewVisibilityService(classRepo, assignmentRepo, studentRepo, logr)
	gradeSheetSvc := service.NewGradeSheetService(gradeRepo, attendanceRepo, visibilitySvc, classRepo, cacheSvc, nil, logr)
	authSvc := service.NewAuthService(userRepo, sessions, tokens, nil, logr)
	classSvc := service.NewClassService(classRepo, assignmentRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, visibilitySvc, nil, logr)
	examSvc := service.NewExamService(examRepo, visibilitySvc, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, nil, logr)
	exportSvc := service.NewExportService(gradeSheetSvc, cfg.School.Name, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := middleware.Session(tokens, sessions, teacherRepo, studentRepo, logr)
	handler.RegisterRoutes(r, cfg.APIPrefix, authn, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		GradeSheets:   handler.NewGradeSheetHandler(gradeSheetSvc, exportSvc, metricsSvc),
		Classes:       handler.NewClassHandler(classSvc),
		Subjects:      handler.NewSubjectHandler(subjectSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Exams:         handler.NewExamHandler(examSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
