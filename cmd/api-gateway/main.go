package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-results-api/api/swagger"
	"github.com/noah-isme/school-results-api/internal/handler"
	"github.com/noah-isme/school-results-api/internal/middleware"
	"github.com/noah-isme/school-results-api/internal/models"
	"github.com/noah-isme/school-results-api/internal/repository"
	"github.com/noah-isme/school-results-api/internal/service"
	"github.com/noah-isme/school-results-api/pkg/cache"
	"github.com/noah-isme/school-results-api/pkg/config"
	"github.com/noah-isme/school-results-api/pkg/database"
	"github.com/noah-isme/school-results-api/pkg/jobs"
	"github.com/noah-isme/school-results-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-results-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-results-api/pkg/storage"
)

// @title School Results API
// @version 1.0.0
// @description Multi-tenant school administration backend: results, grading, ranking and session rollover
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, report caching disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && cacheRepo != nil)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classLevelRepo := repository.NewClassLevelRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradingBandRepo := repository.NewGradingBandRepository(db)
	resultRepo := repository.NewResultRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	// Services.
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	schoolService := service.NewSchoolService(schoolRepo, userRepo, subscriptionRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	classLevelService := service.NewClassLevelService(classLevelRepo, validate, logr)
	sessionService := service.NewSessionService(sessionRepo, classLevelRepo, enrollmentRepo, userRepo, cacheService, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, studentRepo, classLevelRepo, validate, logr)
	gradingService := service.NewGradingService(gradingBandRepo, cacheService, validate, logr)
	resultService := service.NewResultService(resultRepo, gradingService, sessionService, userRepo, cacheService, metricsService, validate, logr)
	rankingService := service.NewRankingService(enrollmentRepo, resultRepo, logr)
	reportService := service.NewReportService(schoolRepo, studentRepo, sessionRepo, classLevelRepo, enrollmentRepo, resultService, rankingService, userRepo, cacheService, logr)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, cfg.Subscriptions.Enforce, validate, logr)
	userService := service.NewUserService(userRepo, studentRepo, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportService *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewExportStore(cfg.Exports.StorageDir)
		if err != nil {
			sugar.Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService = service.NewExportService(exportJobRepo, nil, resultRepo, studentRepo, subjectRepo, enrollmentRepo, rankingService, fileStore, signer, service.ExportConfig{
			APIPrefix:  cfg.APIPrefix,
			ResultTTL:  cfg.Exports.SignedURLTTL,
			MaxRetries: cfg.Exports.WorkerRetries,
		}, validate, logr)

		worker := service.NewExportWorker(exportJobRepo, exportService, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportService.AttachQueue(exportQueue)
		exportQueue.Start(ctx)
		exportService.RecoverPendingJobs(ctx)
		exportService.StartCleanup(ctx, time.Hour)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	schoolHandler := handler.NewSchoolHandler(schoolService)
	studentHandler := handler.NewStudentHandler(studentService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	classLevelHandler := handler.NewClassLevelHandler(classLevelService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	gradingHandler := handler.NewGradingHandler(gradingService)
	resultHandler := handler.NewResultHandler(resultService)
	reportHandler := handler.NewReportHandler(reportService, rankingService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public routes.
	api.POST("/schools/register", schoolHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	if exportService != nil {
		exportHandler := handler.NewExportHandler(exportService)
		api.GET("/exports/download/:token", exportHandler.Download)

		staffExports := api.Group("/exports")
		staffExports.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), middleware.Subscription(subscriptionService))
		staffExports.POST("", exportHandler.Create)
		staffExports.GET("/jobs/:id", exportHandler.Status)
		staffExports.GET("/score-sheet", exportHandler.ScoreSheet)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)
		authed.GET("/schools/me", schoolHandler.Profile)
		authed.GET("/subscriptions/me", subscriptionHandler.Status)
		authed.GET("/metrics/system", metricsHandler.Snapshot)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), middleware.Subscription(subscriptionService))
	{
		admin.PUT("/schools/me", schoolHandler.Update)
		admin.POST("/subscriptions/activate", subscriptionHandler.Activate)
		admin.POST("/users", userHandler.Create)
		admin.POST("/users/link-parent", userHandler.LinkParent)
		admin.POST("/class-levels", classLevelHandler.Create)
		admin.DELETE("/class-levels/:id", classLevelHandler.Delete)
		admin.POST("/sessions", sessionHandler.Create)
		admin.POST("/sessions/:id/current", sessionHandler.SetCurrent)
		admin.POST("/sessions/:id/show-results", sessionHandler.SetShowResults)
		admin.POST("/sessions/:id/terms", sessionHandler.CreateTerm)
		admin.POST("/sessions/:id/terms/:termId/current", sessionHandler.SetCurrentTerm)
		admin.PUT("/grading/scale", gradingHandler.Replace)
		admin.DELETE("/grading/bands/:id", gradingHandler.DeleteBand)
	}

	staff := api.Group("")
	staff.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), middleware.Subscription(subscriptionService))
	{
		staff.GET("/class-levels", classLevelHandler.List)
		staff.GET("/sessions", sessionHandler.List)
		staff.GET("/current-period", sessionHandler.CurrentPeriod)
		staff.GET("/sessions/:id", sessionHandler.Get)
		staff.GET("/sessions/:id/terms", sessionHandler.ListTerms)
		staff.GET("/grading/scale", gradingHandler.Scale)

		staff.POST("/students", studentHandler.Create)
		staff.GET("/students", studentHandler.List)
		staff.GET("/students/:id", studentHandler.Get)
		staff.PUT("/students/:id", studentHandler.Update)
		staff.DELETE("/students/:id", studentHandler.Delete)

		staff.POST("/subjects", subjectHandler.Create)
		staff.GET("/subjects", subjectHandler.List)
		staff.DELETE("/subjects/:id", subjectHandler.Delete)

		staff.POST("/enrollments", middleware.Audit(userRepo, "ENROLL", "enrollment"), enrollmentHandler.Enroll)
		staff.GET("/enrollments", enrollmentHandler.List)

		staff.POST("/results", resultHandler.Upsert)
		staff.GET("/results/:studentId", resultHandler.List)
		staff.GET("/results/:studentId/total", resultHandler.TermTotal)
		staff.DELETE("/results/:studentId", resultHandler.Reset)
		staff.PUT("/results/comments", resultHandler.UpdateComments)

		staff.GET("/reports/students/:studentId", reportHandler.Report)
		staff.GET("/reports/ranking/:classLevelId", reportHandler.ClassStanding)
	}

	parent := api.Group("")
	parent.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleParent))
	{
		parent.GET("/reports/parent/:studentId", reportHandler.ParentReport)
		parent.GET("/users/me/students", userHandler.LinkedStudents)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
