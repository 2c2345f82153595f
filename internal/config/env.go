package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// placeholderKey is the value shipped in the sample .env; it never counts as a credential.
const placeholderKey = "api-key-here"

type Config struct {
	Port          string
	ServiceSecret string
	CorsOrigins   []string

	StoreBackend string
	DatabaseURL  string
	SslCertPath  string
	BadgerPath   string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	EmbedProvider    string
	EmbedAPIKey      string
	EmbedBaseURL     string
	EmbedModel       string
	EmbedDim         int
	EmbedTimeout     time.Duration
	EmbedMaxRetries  int
	EmbedConcurrency int
	EmbedCacheSize   int

	GenAPIKey string
	GenModel  string

	ChunkSize     int
	ChunkOverlap  int
	RetrievalTopK int
	IngestWorkers int
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("EMBED_PROVIDER", "openai"))

	cfg := &Config{
		Port:          getEnv("PORT", "8000"),
		ServiceSecret: getEnv("SERVICE_SECRET", ""),
		CorsOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		BadgerPath:   getEnv("BADGER_PATH", "./data/badger"),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "knowledge-assistant-docs"),

		EmbedProvider:    provider,
		EmbedAPIKey:      getEnv("EMBED_API_KEY", defaultEmbedKey(provider)),
		EmbedBaseURL:     getEnv("EMBED_BASE_URL", ""),
		EmbedModel:       getEnv("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:         getEnvInt("EMBED_DIM", 1536),
		EmbedTimeout:     getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		EmbedMaxRetries:  getEnvInt("EMBED_MAX_RETRIES", 0),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
		EmbedCacheSize:   getEnvInt("EMBED_CACHE_ENTRIES", 10000),

		GenAPIKey: getEnv("GEN_API_KEY", os.Getenv("GEMINI_API_KEY")),
		GenModel:  getEnv("GEN_MODEL", "gemini-1.5-flash"),

		ChunkSize:     getEnvInt("CHUNK_SIZE", 400),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 50),
		RetrievalTopK: getEnvInt("RETRIEVAL_TOP_K", 5),
		IngestWorkers: getEnvInt("INGEST_WORKERS", 4),
	}

	return cfg
}

// Validate rejects settings that would corrupt chunk boundaries or leave the
// service without a usable store. Every failure wraps core.ErrConfiguration.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive, got %d", core.ErrConfiguration, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with CHUNK_SIZE %d",
			core.ErrConfiguration, c.ChunkOverlap, c.ChunkSize)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: EMBED_DIM must be positive, got %d", core.ErrConfiguration, c.EmbedDim)
	}
	if c.EmbedTimeout <= 0 {
		return fmt.Errorf("%w: EMBED_TIMEOUT must be positive", core.ErrConfiguration)
	}
	switch c.EmbedProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("%w: unknown EMBED_PROVIDER %q", core.ErrConfiguration, c.EmbedProvider)
	}
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL not set", core.ErrConfiguration)
		}
	case "badger":
		if c.BadgerPath == "" {
			return fmt.Errorf("%w: BADGER_PATH not set", core.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q", core.ErrConfiguration, c.StoreBackend)
	}
	return nil
}

// EmbeddingConfigured reports whether a real embedding credential is present.
func (c *Config) EmbeddingConfigured() bool {
	return HasCredential(c.EmbedAPIKey)
}

// GenerationConfigured reports whether a real generation credential is present.
func (c *Config) GenerationConfigured() bool {
	return HasCredential(c.GenAPIKey)
}

// ObjectStorageConfigured reports whether S3 credentials are present.
func (c *Config) ObjectStorageConfigured() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != ""
}

// HasCredential treats empty and placeholder keys as missing.
func HasCredential(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderKey
}

func defaultEmbedKey(provider string) string {
	if provider == "gemini" {
		return os.Getenv("GEMINI_API_KEY")
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
