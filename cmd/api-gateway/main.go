package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-fees-api/api/swagger"
	"github.com/noah-isme/school-fees-api/internal/handler"
	"github.com/noah-isme/school-fees-api/internal/middleware"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	"github.com/noah-isme/school-fees-api/internal/service"
	"github.com/noah-isme/school-fees-api/pkg/cache"
	"github.com/noah-isme/school-fees-api/pkg/config"
	"github.com/noah-isme/school-fees-api/pkg/database"
	"github.com/noah-isme/school-fees-api/pkg/export"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
	"github.com/noah-isme/school-fees-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-fees-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-fees-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

// @title School Fees API
// @version 1.0.0
// @description Multi-tenant school fee administration platform
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	feeRateRepo := repository.NewFeeRateRepository(db)
	feeStructureRepo := repository.NewFeeStructureRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	receiptTemplateRepo := repository.NewReceiptTemplateRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Core services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-fees-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	feeRateSvc := service.NewFeeRateService(feeRateRepo, schoolRepo, userRepo, cacheSvc, validate, logr, cfg.FeeRates)
	feeStructureSvc := service.NewFeeStructureService(feeStructureRepo, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, schoolRepo, feeRateSvc, userRepo, validate, logr)
	receiptSvc := service.NewReceiptService(receiptTemplateRepo, paymentSvc, studentRepo, schoolRepo, export.NewReceiptRenderer(), validate, logr, cfg.Receipts)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		FeeRates: feeRateSvc,
		Payments: paymentRepo,
		Schools:  schoolRepo,
		Students: studentRepo,
		Cache:    cacheSvc,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	// Export pipeline.
	var exportJobSvc *service.ExportJobService
	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(paymentRepo, studentRepo, localStorage, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewXLSXExporter(), export.NewPDFExporter())

		worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		exportJobSvc = service.NewExportJobService(exportJobRepo, queue, exportSvc, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	feeRateHandler := handler.NewFeeRateHandler(feeRateSvc)
	feeStructureHandler := handler.NewFeeStructureHandler(feeStructureSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, receiptSvc)
	receiptTemplateHandler := handler.NewReceiptTemplateHandler(receiptSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "cache unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", middleware.Audit(userRepo, models.AuditActionLogin, "auth"), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	users := protected.Group("/users", middleware.RequireRoles(models.RolePlatformAdmin))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	schools := protected.Group("/schools")
	{
		schools.GET("", middleware.RequireRoles(models.RolePlatformAdmin), schoolHandler.List)
		schools.GET("/:id", schoolHandler.Get)
		schools.POST("", middleware.RequireRoles(models.RolePlatformAdmin), schoolHandler.Create)
		schools.PUT("/:id", middleware.RequireRoles(models.RolePlatformAdmin), schoolHandler.Update)
		schools.DELETE("/:id", middleware.RequireRoles(models.RolePlatformAdmin), schoolHandler.Deactivate)
	}

	students := protected.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", studentHandler.Create)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", studentHandler.Deactivate)
	}

	feeRates := protected.Group("/fee-rates")
	{
		feeRates.POST("", feeRateHandler.Propose)
		feeRates.GET("", feeRateHandler.List)
		feeRates.GET("/stats", middleware.RequireRoles(models.RolePlatformAdmin), feeRateHandler.Stats)
		feeRates.GET("/:id", feeRateHandler.Get)
		feeRates.POST("/:id/approve", feeRateHandler.Approve)
		feeRates.POST("/:id/reject", feeRateHandler.Reject)
	}

	feeStructures := protected.Group("/fee-structures")
	{
		feeStructures.POST("", feeStructureHandler.Create)
		feeStructures.GET("", feeStructureHandler.List)
		feeStructures.GET("/:id", feeStructureHandler.Get)
		feeStructures.PUT("/:id", feeStructureHandler.Update)
		feeStructures.POST("/:id/publish", feeStructureHandler.Publish)
	}

	payments := protected.Group("/payments")
	{
		payments.POST("", paymentHandler.Record)
		payments.GET("", paymentHandler.List)
		payments.GET("/summary", paymentHandler.Summary)
		payments.GET("/:id", paymentHandler.Get)
		payments.POST("/:id/void", paymentHandler.Void)
		payments.GET("/:id/receipt", paymentHandler.Receipt)
	}

	receiptTemplates := protected.Group("/receipt-templates")
	{
		receiptTemplates.GET("", receiptTemplateHandler.List)
		receiptTemplates.POST("", receiptTemplateHandler.Create)
		receiptTemplates.PUT("/:id", receiptTemplateHandler.Update)
		receiptTemplates.POST("/:id/default", receiptTemplateHandler.SetDefault)
		receiptTemplates.DELETE("/:id", receiptTemplateHandler.Delete)
	}

	if cfg.Dashboard.Enabled {
		dashboard := protected.Group("/dashboard", middleware.WithResponseMeta())
		dashboard.GET("/admin", middleware.RequireRoles(models.RolePlatformAdmin), dashboardHandler.Admin)
		dashboard.GET("/school", dashboardHandler.School)
	}

	if cfg.Exports.Enabled {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		exports := protected.Group("/exports")
		exports.POST("", exportHandler.Create)
		exports.GET("/:id", exportHandler.Status)
		// Download links are signed; auth is carried by the token itself.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server exited", "error", err)
	}
}
