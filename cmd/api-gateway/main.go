package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gd-diary-api/api/swagger"
	"github.com/noah-isme/gd-diary-api/internal/handler"
	"github.com/noah-isme/gd-diary-api/internal/middleware"
	"github.com/noah-isme/gd-diary-api/internal/models"
	"github.com/noah-isme/gd-diary-api/internal/repository"
	"github.com/noah-isme/gd-diary-api/internal/service"
	"github.com/noah-isme/gd-diary-api/pkg/cache"
	"github.com/noah-isme/gd-diary-api/pkg/config"
	"github.com/noah-isme/gd-diary-api/pkg/database"
	"github.com/noah-isme/gd-diary-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gd-diary-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gd-diary-api/pkg/middleware/requestid"
)

// @title GD Diary API
// @version 1.0.0
// @description Police station General Diary records with a bounded correction workflow.
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

	if cfg.Database.RunMigrations {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Info("redis disabled; diary cache and shared rate limits are off")
	case err != nil:
		logr.Warn("redis unavailable; continuing without it", zap.Error(err))
		redisClient = nil
	default:
		defer redisClient.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	metrics := service.NewMetricsService()
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"redis":    cacheRepo.Ping,
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if err := setupAPIRoutes(r, cfg, db, redisClient, cacheRepo, metrics, logr); err != nil {
		logr.Fatal("failed to set up routes", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func setupAPIRoutes(r *gin.Engine, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, cacheRepo *repository.CacheRepository, metrics *service.MetricsService, logr *zap.Logger) error {
	validate := validator.New()
	loc := cfg.Diary.Location

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Diary.CacheTTL, logr, cfg.Diary.CacheEnabled && redisClient != nil)

	diaryRepo := repository.NewDiaryRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	uow := repository.NewUnitOfWork(db, cfg.Corrections.TxTimeout)

	diarySvc := service.NewDiaryService(diaryRepo, validate, logr, loc, service.WithDiaryCache(cacheSvc))
	correctionSvc := service.NewCorrectionService(uow, correctionRepo, validate, logr,
		service.CorrectionConfig{Window: cfg.Corrections.Window, MinReasonLength: cfg.Corrections.MinReasonLength},
		service.WithCorrectionMetrics(metrics),
		service.WithCorrectionCache(cacheSvc),
	)
	serialSvc := service.NewSerialService(diaryRepo, validate, logr, loc,
		service.WithSerialMetrics(metrics),
		service.WithSerialCache(cacheSvc),
	)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	correctionLimiter, err := middleware.NewLimiter(cfg.Corrections.RateLimit, redisClient)
	if err != nil {
		return fmt.Errorf("correction rate limiter: %w", err)
	}
	throttle := middleware.RateLimit(correctionLimiter, logr)

	diaryHandler := handler.NewDiaryHandler(diarySvc)
	correctionHandler := handler.NewCorrectionHandler(correctionSvc)
	serialHandler := handler.NewSerialHandler(serialSvc)

	anyRole := middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin, models.RoleSuperAdmin)
	adminOnly := middleware.RequireAdmin()

	api := r.Group(cfg.APIPrefix, middleware.JWT(tokens), anyRole)

	diaries := api.Group("/diaries")
	diaries.POST("", diaryHandler.Create)
	diaries.GET("", diaryHandler.Find)
	diaries.GET("/:id", diaryHandler.Get)
	diaries.POST("/:id/entries", diaryHandler.AddEntry)
	diaries.GET("/:id/corrections", correctionHandler.GetDiaryLedger)

	corrections := api.Group("/corrections")
	corrections.GET("", correctionHandler.List)
	corrections.GET("/ledgers/:id", correctionHandler.GetLedger)
	corrections.POST("/requests", throttle, correctionHandler.RequestAmendment)
	corrections.POST("/direct", adminOnly, throttle, correctionHandler.DirectEdit)
	corrections.POST("/resolve", adminOnly, throttle, correctionHandler.Resolve)

	api.POST("/serials/lock", serialHandler.Lock)
	return nil
}
