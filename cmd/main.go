package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"resume-graph-service/internal/bootstrap"
	"resume-graph-service/internal/config"
	"resume-graph-service/internal/logger"
	"resume-graph-service/internal/queue"
	"resume-graph-service/internal/scheduler"
	"resume-graph-service/internal/telemetry"
	"resume-graph-service/middleware"
	"resume-graph-service/routes"
	"resume-graph-service/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	appLogger := logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint, appLogger)
	if err != nil {
		appLogger.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	metrics, err := telemetry.InitMetrics(cfg.ServiceName)
	if err != nil {
		appLogger.Warn("metrics disabled", "error", err)
		metrics = nil
	}

	comps, err := bootstrap.Build(context.Background(), cfg, appLogger, metrics)
	if err != nil {
		log.Fatal("Failed to initialize backends:", err)
	}

	// Retention sweep
	sched := scheduler.NewScheduler(appLogger)
	if cfg.SessionTTL > 0 {
		scheduled, err := services.ScheduleSessionSweep(sched, comps.Registry, cfg.SessionSweepInterval, appLogger)
		if err != nil {
			log.Fatal("Failed to schedule session sweep:", err)
		}
		if scheduled {
			appLogger.Info("session retention enabled", "ttl", cfg.SessionTTL, "sweep_every", cfg.SessionSweepInterval)
		}
	}
	sched.Start()

	var extractionQueue *queue.Client
	if cfg.AsyncExtraction {
		redisOpt, err := config.AsynqRedisOpt(cfg)
		if err != nil {
			log.Fatal("Failed to configure task queue:", err)
		}
		extractionQueue = queue.NewClient(redisOpt)
		appLogger.Info("async extraction enabled", "redis", redisOpt.Addr)
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.GinMode == "debug" {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.AuditMiddleware(appLogger))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	// Multipart framing needs a little room on top of the file itself.
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize + 1<<20))
	// Rate limiting shares the session registry's Redis; without it requests are not limited.
	if comps.Redis != nil && cfg.RateLimitReqs > 0 {
		router.Use(middleware.RateLimitMiddleware(comps.Redis, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second, appLogger))
	}

	// Setup routes
	routes.SetupSystemRoutes(router, cfg.ServiceName, comps.Pipeline.Ready)
	resumeOpts := routes.ResumeRoutesOptions{
		MaxFileSize: cfg.MaxFileSize,
		Logger:      appLogger,
	}
	if extractionQueue != nil {
		resumeOpts.Queue = extractionQueue
	}
	routes.SetupResumeRoutes(router, comps.Pipeline, resumeOpts)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("server starting", "port", cfg.Port, "entity_store", cfg.EntityStore, "session_store", cfg.SessionStore, "recognizer", comps.Recognizer.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}

	sched.Stop()
	if extractionQueue != nil {
		if err := extractionQueue.Close(); err != nil {
			appLogger.Warn("failed to close task queue client", "error", err)
		}
	}
	if err := comps.Close(ctx); err != nil {
		appLogger.Warn("failed to close backends", "error", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		appLogger.Warn("failed to flush traces", "error", err)
	}

	appLogger.Info("server exited")
}
