package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mensah-dev/school-results-api/api/swagger"
	"github.com/mensah-dev/school-results-api/internal/handler"
	"github.com/mensah-dev/school-results-api/internal/middleware"
	"github.com/mensah-dev/school-results-api/internal/repository"
	"github.com/mensah-dev/school-results-api/internal/service"
	"github.com/mensah-dev/school-results-api/pkg/cache"
	"github.com/mensah-dev/school-results-api/pkg/config"
	"github.com/mensah-dev/school-results-api/pkg/database"
	"github.com/mensah-dev/school-results-api/pkg/jobs"
	"github.com/mensah-dev/school-results-api/pkg/logger"
	corsmiddleware "github.com/mensah-dev/school-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mensah-dev/school-results-api/pkg/middleware/requestid"
	"github.com/mensah-dev/school-results-api/pkg/storage"
)

// @title School Results API
// @version 0.1.0
// @description Academic assessment and results publication engine
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recordRepo := repository.NewGradeRecordRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	resultsCache := repository.NewResultsCache(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	resultsSvc := service.NewResultsService(recordRepo, resultsCache, metricsSvc, validate, logr, service.ResultsServiceConfig{
		CacheEnabled:    cfg.Results.CacheEnabled,
		StudentCacheTTL: cfg.Results.StudentCacheTTL,
	})
	reportSvc := service.NewReportService(recordRepo, catalogRepo, resultsCache, logr, service.ReportServiceConfig{
		CacheEnabled:   cfg.Results.CacheEnabled,
		ReportCacheTTL: cfg.Results.ReportCacheTTL,
	})
	rankingSvc := service.NewRankingService(recordRepo, catalogRepo, resultsCache, logr, service.RankingServiceConfig{
		CacheEnabled:    cfg.Results.CacheEnabled,
		RankingCacheTTL: cfg.Results.RankingCacheTTL,
	})

	var exportJobSvc *service.ExportJobService
	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exporter := service.NewExportService(recordRepo, catalogRepo, localStorage, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.ResultTTL,
		}, logr, nil)
		worker := service.NewExportWorker(exportJobRepo, exporter, cfg.Exports.WorkerRetries, logr)
		queue := jobs.NewQueue("results-export", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		exportJobSvc = service.NewExportJobService(exportJobRepo, queue, exporter, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.ResultTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	resultsHandler := handler.NewResultsHandler(resultsSvc)
	reportHandler := handler.NewReportHandler(reportSvc, rankingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	if exportJobSvc != nil {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		// token download carries its own signature, no actor headers needed
		api.GET("/results/export/:token", exportHandler.Download)

		exports := api.Group("/results/exports")
		exports.Use(middleware.Actor())
		exports.POST("", exportHandler.Create)
		exports.GET("/:id/status", exportHandler.Status)
	}

	results := api.Group("/results")
	results.Use(middleware.Actor())
	results.GET("", resultsHandler.List)
	results.POST("", resultsHandler.Submit)
	results.POST("/publish", resultsHandler.Publish)
	results.GET("/student/:studentId", resultsHandler.MyResults)
	results.GET("/:id", resultsHandler.Get)
	results.DELETE("/:id", resultsHandler.Delete)
	results.POST("/:id/review", resultsHandler.MarkReview)
	results.POST("/:id/approve", resultsHandler.Approve)
	results.POST("/:id/decline", resultsHandler.Decline)

	reports := api.Group("/reports")
	reports.Use(middleware.Actor())
	reports.GET("/class/:classId", reportHandler.ClassReport)
	reports.GET("/class/:classId/ranking", reportHandler.Ranking)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
