package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/horario-api/api/swagger"
	"github.com/noah-isme/horario-api/internal/handler"
	internalmiddleware "github.com/noah-isme/horario-api/internal/middleware"
	"github.com/noah-isme/horario-api/internal/models"
	"github.com/noah-isme/horario-api/internal/repository"
	"github.com/noah-isme/horario-api/internal/service"
	"github.com/noah-isme/horario-api/pkg/cache"
	"github.com/noah-isme/horario-api/pkg/config"
	"github.com/noah-isme/horario-api/pkg/database"
	"github.com/noah-isme/horario-api/pkg/export"
	"github.com/noah-isme/horario-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/horario-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/horario-api/pkg/middleware/requestid"
)

// @title Horario API
// @version 1.0.0
// @description Course timetable planner: slots, group selection and conflict detection.
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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	careerRepo := repository.NewCareerRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	defaults := models.TimeConfig{
		FirstStart:  cfg.Timetable.FirstStart,
		DurationMin: cfg.Timetable.DurationMin,
		BreakMin:    cfg.Timetable.BreakMin,
	}
	if err := service.ValidateTimeConfig(defaults); err != nil {
		logr.Fatal("invalid default time configuration", zap.Error(err))
	}

	engineSvc := service.NewEngineService(validate, metricsSvc, logr)
	subjectSvc := service.NewSubjectService(service.SubjectServiceParams{
		Repo:      subjectRepo,
		Careers:   careerRepo,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		Defaults:  defaults,
	})
	timetableSvc := service.NewTimetableService(service.TimetableServiceParams{
		Timetables: timetableRepo,
		Careers:    careerRepo,
		Subjects:   subjectRepo,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		CSV:        export.NewCSVExporter(),
		PDF:        export.NewPDFExporter(),
		Validator:  validate,
		Logger:     logr,
		Config: service.TimetableServiceConfig{
			Defaults:        defaults,
			DefaultCareerID: cfg.Timetable.DefaultCareerID,
			MaxSubjects:     cfg.Timetable.MaxSubjects,
			CacheTTL:        cfg.Cache.TTL,
		},
	})

	engineHandler := handler.NewEngineHandler(engineSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return db.PingContext(ctx) }),
		"cache":    cacheRepo,
	}, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	engine := api.Group("/engine")
	engine.POST("/slots", engineHandler.Slots)
	engine.POST("/evaluate", engineHandler.Evaluate)
	engine.POST("/proposal", engineHandler.Proposal)
	engine.POST("/would-conflict", engineHandler.WouldConflict)

	careers := api.Group("/careers/:careerId")
	careers.GET("/subjects", subjectHandler.List)
	careers.POST("/subjects", subjectHandler.Create)
	careers.POST("/subjects/preview", subjectHandler.Preview)

	subjects := api.Group("/subjects")
	subjects.GET("/:id", subjectHandler.Get)
	subjects.PUT("/:id", subjectHandler.Update)
	subjects.DELETE("/:id", subjectHandler.Delete)

	students := api.Group("/students/:studentId")
	students.PUT("/career", timetableHandler.SetCareer)
	students.GET("/timetable", timetableHandler.View)
	students.GET("/timetable/config", timetableHandler.Config)
	students.PUT("/timetable/config", timetableHandler.UpdateConfig)
	students.DELETE("/timetable/config", timetableHandler.ResetConfig)
	students.PUT("/timetable/subjects", timetableHandler.SelectSubjects)
	students.PUT("/timetable/groups", timetableHandler.SelectGroup)
	students.GET("/timetable/options", timetableHandler.Options)
	students.GET("/timetable/export", timetableHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
