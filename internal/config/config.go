package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all server configuration values.
type Config struct {
	// HTTP
	Addr string

	// Report store backend: "memory" or "surreal".
	Store              string
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Optional read-through snapshot cache. Empty disables it.
	RedisAddr     string
	RedisPassword string

	// Artifact backend: "memory" or "minio".
	Artifacts      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Generation service. Empty GeneratorURL selects the static stub.
	GeneratorURL string

	// Render service for docx/pdf exports. Empty means those formats are
	// refused as unsupported.
	RendererURL string

	MaxConcurrentGenerations int

	// Report plan template. Empty means the compiled-in default plan.
	PlanFile string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		Addr: getEnv("REPORTLOOM_ADDR", ":8090"),

		Store:              getEnv("REPORTLOOM_STORE", "memory"),
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "reportloom"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "reports"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		Artifacts:      getEnv("REPORTLOOM_ARTIFACTS", "memory"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "reportloom"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		GeneratorURL: getEnv("GENERATOR_URL", ""),
		RendererURL:  getEnv("RENDERER_URL", ""),

		MaxConcurrentGenerations: getEnvInt("REPORTLOOM_MAX_GENERATIONS", 0),

		PlanFile: getEnv("REPORTLOOM_PLAN", ""),

		LogFile:  getEnv("REPORTLOOM_LOG_FILE", "/tmp/reportloom.log"),
		LogLevel: parseLogLevel(getEnv("REPORTLOOM_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
