// Package config loads service configuration from the environment.
// Tunables that carry invariants (score weights, chunk bounds) are
// validated here so a misconfigured service fails at startup, never
// at request time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	DB        DBConfig
	Embedder  EmbedderConfig
	Reranker  RerankerConfig
	Search    SearchConfig
	Scoring   ScoringConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Chunker   ChunkerConfig
	Telemetry TelemetryConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

// DSN renders the pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type EmbedderConfig struct {
	BaseURL    string
	Model      string
	Dimension  int
	MaxInput   int
	BatchSize  int
	BatchDelay time.Duration
	Timeout    time.Duration
}

type RerankerConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	Timeout time.Duration
}

type SearchConfig struct {
	VectorWeight        float64
	SimilarityThreshold float64
	PoolSize            int
	DefaultLimit        int
	RerankPoolSize      int
}

type ScoringConfig struct {
	AliasWeight       float64
	FTSWeight         float64
	VectorWeight      float64
	PerTermBoost      float64
	MaxTotalBoost     float64
	MinAmbiguityScore float64
	AmbiguityDelta    float64
}

type BreakerConfig struct {
	FailureThreshold int
	MinSamples       int
	Cooldown         time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type ChunkerConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
	MaxChunkSize int
}

type TelemetryConfig struct {
	QueueSize int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "resolver-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "resolver_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "resolver_password"),
			Name:     getEnv("DB_NAME", "resolver_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		Embedder: EmbedderConfig{
			BaseURL:    getEnv("EMBEDDER_URL", "http://embedder:11434"),
			Model:      getEnv("EMBEDDING_MODEL", "mxbai-embed-large"),
			Dimension:  getEnvInt("EMBEDDING_DIMENSION", 1024),
			MaxInput:   getEnvInt("EMBEDDING_MAX_INPUT", 8000),
			BatchSize:  getEnvInt("EMBEDDING_BATCH_SIZE", 16),
			BatchDelay: time.Duration(getEnvInt("EMBEDDING_BATCH_DELAY_MS", 50)) * time.Millisecond,
			Timeout:    time.Duration(getEnvInt("EMBEDDER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Reranker: RerankerConfig{
			Enabled: getEnv("RERANKER_ENABLED", "false") == "true",
			BaseURL: getEnv("RERANKER_URL", "http://reranker:8001"),
			Model:   getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
			Timeout: time.Duration(getEnvInt("RERANKER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Search: SearchConfig{
			VectorWeight:        getEnvFloat("SEARCH_VECTOR_WEIGHT", 0.7),
			SimilarityThreshold: getEnvFloat("SEARCH_SIMILARITY_THRESHOLD", 0.35),
			PoolSize:            getEnvInt("SEARCH_POOL_SIZE", 30),
			DefaultLimit:        getEnvInt("SEARCH_DEFAULT_LIMIT", 10),
			RerankPoolSize:      getEnvInt("SEARCH_RERANK_POOL_SIZE", 15),
		},
		Scoring: ScoringConfig{
			AliasWeight:       getEnvFloat("SCORING_ALIAS_WEIGHT", 0.4),
			FTSWeight:         getEnvFloat("SCORING_FTS_WEIGHT", 0.3),
			VectorWeight:      getEnvFloat("SCORING_VECTOR_WEIGHT", 0.3),
			PerTermBoost:      getEnvFloat("SCORING_PER_TERM_BOOST", 0.05),
			MaxTotalBoost:     getEnvFloat("SCORING_MAX_TOTAL_BOOST", 0.25),
			MinAmbiguityScore: getEnvFloat("SCORING_MIN_AMBIGUITY_SCORE", 0.4),
			AmbiguityDelta:    getEnvFloat("SCORING_AMBIGUITY_DELTA", 0.15),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			MinSamples:       getEnvInt("BREAKER_MIN_SAMPLES", 10),
			Cooldown:         time.Duration(getEnvInt("BREAKER_COOLDOWN_SECONDS", 30)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Chunker: ChunkerConfig{
			ChunkSize:    getEnvInt("CHUNK_SIZE", 400),
			ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),
			MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 40),
			MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 600),
		},
		Telemetry: TelemetryConfig{
			QueueSize: getEnvInt("TELEMETRY_QUEUE_SIZE", 256),
		},
	}
}

// IsDevelopment reports whether the service runs with development
// logging behavior.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
