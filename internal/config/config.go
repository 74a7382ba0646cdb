package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
)

// Entity store backends.
const (
	StoreNeo4j  = "neo4j"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Session registry backends.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// Recognizer backends.
const (
	RecognizerProse  = "prose"
	RecognizerGemini = "gemini"
)

type Config struct {
	Port        string
	GinMode     string
	ServiceName string
	CORSOrigins []string
	MaxFileSize int64

	// Entity store
	EntityStore   string
	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string
	MongoURI      string
	DBName        string

	// Session registry
	SessionStore         string
	SessionMaxCount      int
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Entity recognizer
	Recognizer   string
	GeminiAPIKey string
	GeminiModel  string
	GeminiTier   string

	// Work scheduling
	WorkerPoolSize   int
	OperationTimeout time.Duration
	AsyncExtraction  bool

	RateLimitReqs   int
	RateLimitWindow int

	// OTLP collector endpoint; tracing is disabled when empty.
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		ServiceName: getEnv("SERVICE_NAME", "resume-graph-service"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:8000,*")),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 10485760), // 10MB

		EntityStore:   getEnv("ENTITY_STORE", StoreNeo4j),
		Neo4jURI:      getEnv("NEO4J_URI", "bolt://127.0.0.1:7687"),
		Neo4jUsername: getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/resume_graph"),
		DBName:        getEnv("DB_NAME", "resume_graph"),

		SessionStore:         getEnv("SESSION_STORE", SessionsMemory),
		SessionMaxCount:      getEnvInt("SESSION_MAX_COUNT", 0),
		SessionTTL:           getEnvDuration("SESSION_TTL", 0),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		Recognizer:   getEnv("RECOGNIZER", RecognizerProse),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),

		WorkerPoolSize:   getEnvInt("WORKER_POOL_SIZE", runtime.NumCPU()),
		OperationTimeout: getEnvDuration("OPERATION_TIMEOUT", 2*time.Minute),
		AsyncExtraction:  getEnvBool("ASYNC_EXTRACTION", false),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.EntityStore {
	case StoreNeo4j, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("ENTITY_STORE must be one of neo4j, mongo, memory (got %q)", c.EntityStore)
	}

	switch c.SessionStore {
	case SessionsMemory, SessionsRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be memory or redis (got %q)", c.SessionStore)
	}

	switch c.Recognizer {
	case RecognizerProse:
	case RecognizerGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when RECOGNIZER=gemini - set it in .env file")
		}
	default:
		return fmt.Errorf("RECOGNIZER must be prose or gemini (got %q)", c.Recognizer)
	}

	if c.AsyncExtraction && c.SessionStore != SessionsRedis {
		return fmt.Errorf("ASYNC_EXTRACTION requires SESSION_STORE=redis so the worker can read sessions")
	}

	if c.AsyncExtraction && c.EntityStore == StoreMemory {
		return fmt.Errorf("ASYNC_EXTRACTION requires a shared ENTITY_STORE (neo4j or mongo); the worker's in-memory graph is invisible to the API")
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 1
	}
	if c.SessionMaxCount < 0 {
		return fmt.Errorf("SESSION_MAX_COUNT must not be negative")
	}

	return nil
}
