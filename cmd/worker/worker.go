package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"resume-graph-service/internal/bootstrap"
	"resume-graph-service/internal/config"
	"resume-graph-service/internal/logger"
	"resume-graph-service/internal/queue"
	"resume-graph-service/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.SessionStore != config.SessionsRedis {
		log.Fatal("The extraction worker needs SESSION_STORE=redis to read sessions created by the API")
	}

	appLogger := logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName+"-worker", cfg.OTLPEndpoint, appLogger)
	if err != nil {
		appLogger.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}
	defer shutdownTracer(context.Background())

	metrics, err := telemetry.InitMetrics(cfg.ServiceName + "-worker")
	if err != nil {
		appLogger.Warn("metrics disabled", "error", err)
		metrics = nil
	}

	comps, err := bootstrap.Build(context.Background(), cfg, appLogger, metrics)
	if err != nil {
		log.Fatal("Failed to initialize backends:", err)
	}
	defer comps.Close(context.Background())

	// Redis options for Asynq
	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	// Extraction replaces the whole graph, so tasks are run one at a time.
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				queue.QueueDefault: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				appLogger.Error("task failed", "type", task.Type(), "retried", retried, "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(comps.Pipeline, appLogger)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	processor.Register(mux)

	appLogger.Info("starting extraction worker",
		"redis", redisOpt.Addr,
		"entity_store", cfg.EntityStore,
		"recognizer", comps.Recognizer.Name(),
	)

	// Run blocks until SIGTERM/SIGINT
	if err := server.Run(mux); err != nil {
		appLogger.Error("worker stopped", "error", err)
	}
}
