// Package bootstrap assembles the pipeline's backends from configuration. The API
// server and the extraction worker share it so both see the same stores.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"resume-graph-service/internal/ai"
	"resume-graph-service/internal/config"
	"resume-graph-service/internal/telemetry"
	"resume-graph-service/internal/workers"
	"resume-graph-service/services"
)

// Components owns every backend it opened; Close releases them in reverse order.
type Components struct {
	Store      services.EntityStore
	Registry   services.SessionRegistry
	Recognizer services.EntityRecognizer
	Redis      *redis.Client
	Pipeline   *services.Pipeline

	closers []func(context.Context) error
}

func (c *Components) onClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

// Close releases all backends and reports every failure.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Build connects the configured entity store, session registry and recognizer and
// wires them into a pipeline. On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*Components, error) {
	comps := &Components{}
	fail := func(err error) (*Components, error) {
		if cerr := comps.Close(context.Background()); cerr != nil {
			logger.Warn("cleanup after failed startup", "error", cerr)
		}
		return nil, err
	}

	var err error
	if comps.Store, err = openEntityStore(ctx, cfg, logger, comps); err != nil {
		return fail(err)
	}

	if comps.Registry, err = openSessionRegistry(cfg, comps); err != nil {
		return fail(err)
	}

	if comps.Recognizer, err = openRecognizer(ctx, cfg, logger, metrics, comps); err != nil {
		return fail(err)
	}

	comps.Pipeline = services.NewPipeline(services.PipelineOptions{
		Extractor:        services.NewPDFTextExtractor(logger),
		Recognizer:       comps.Recognizer,
		Store:            comps.Store,
		Registry:         comps.Registry,
		Pool:             workers.NewPool(cfg.WorkerPoolSize),
		Metrics:          metrics,
		Logger:           logger,
		OperationTimeout: cfg.OperationTimeout,
	})
	return comps, nil
}

func openEntityStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, comps *Components) (services.EntityStore, error) {
	switch cfg.EntityStore {
	case config.StoreNeo4j:
		driver, err := config.ConnectNeo4j(cfg)
		if err != nil {
			return nil, err
		}
		store, err := services.NewNeo4jEntityStore(ctx, driver, cfg.Neo4jDatabase, logger)
		if err != nil {
			driver.Close(ctx)
			return nil, fmt.Errorf("failed to prepare Neo4j schema: %w", err)
		}
		comps.onClose(store.Close)
		logger.Info("entity store ready", "backend", "neo4j", "uri", cfg.Neo4jURI)
		return store, nil

	case config.StoreMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		store := services.NewMongoEntityStore(client, cfg.DBName, logger)
		comps.onClose(store.Close)
		logger.Info("entity store ready", "backend", "mongo", "database", cfg.DBName)
		return store, nil

	default:
		logger.Warn("using in-memory entity store; entities are lost on restart")
		return services.NewMemoryEntityStore(), nil
	}
}

func openSessionRegistry(cfg *config.Config, comps *Components) (services.SessionRegistry, error) {
	retention := services.RetentionOptions{MaxCount: cfg.SessionMaxCount, TTL: cfg.SessionTTL}

	if cfg.SessionStore != config.SessionsRedis {
		return services.NewMemorySessionRegistry(retention), nil
	}

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	comps.Redis = rdb
	registry := services.NewRedisSessionRegistry(rdb, retention)
	comps.onClose(func(context.Context) error { return registry.Close() })
	return registry, nil
}

func openRecognizer(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics, comps *Components) (services.EntityRecognizer, error) {
	if cfg.Recognizer != config.RecognizerGemini {
		return services.NewProseRecognizer(logger)
	}

	client, err := ai.NewGeminiClient(ctx, ai.GeminiOptions{
		APIKey:        cfg.GeminiAPIKey,
		Model:         cfg.GeminiModel,
		Tier:          cfg.GeminiTier,
		Logger:        logger,
		OnStateChange: metrics.RecordCircuitBreakerState,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	comps.onClose(func(context.Context) error { return client.Close() })
	logger.Info("using Gemini recognizer", "model", client.Model(), "tier", cfg.GeminiTier)
	return services.NewGeminiRecognizer(client, logger), nil
}
