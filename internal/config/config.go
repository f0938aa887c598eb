package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort        string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
	RedisHost      string
	RedisPort      string
	JWTSecret      string

	// Collaborator endpoints
	OCREndpoint      string
	LLMEndpoint      string
	LLMModel         string
	GeocoderEndpoint string

	// Pipeline settings
	Pipeline PipelineConfig
}

// PipelineConfig carries the resolution and itinerary thresholds.
type PipelineConfig struct {
	ProximityMeters     float64       // Corroboration distance between evidence records (default: 5000)
	ConflictMeters      float64       // Distance beyond which evidence conflicts (default: 50000)
	RouteMergeMeters    float64       // Consecutive waypoints closer than this collapse (default: 200)
	ExifAccuracyMeters  float64       // EXIF accuracy gate before OCR/LLM are consulted (default: 100)
	CategorySupport     float64       // Minimum fraction of resolved photos per category (default: 0.10)
	CategoryHighConf    float64       // Single-evidence confidence that bypasses support (default: 0.9)
	ProviderTimeout     time.Duration // Per external call (default: 5s)
	WorkerPoolSize      int           // Concurrent photos per post (default: NumCPU)
	GeocodeCacheTTL     time.Duration // Rounded-coordinate cache lifetime (default: 1h)
	GeocodeRetryBackoff time.Duration // Single bounded retry delay (default: 500ms)
	GeocodePrecision    int           // Decimal places for cache keys (default: 3, ~110 m)
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	minioSSL := false
	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}

	cfg := &Config{
		AppPort:        os.Getenv("APP_PORT"),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         os.Getenv("DB_PORT"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioSSL:       minioSSL,
		RedisHost:      os.Getenv("REDIS_HOST"),
		RedisPort:      os.Getenv("REDIS_PORT"),
		JWTSecret:      os.Getenv("JWT_SECRET"),

		OCREndpoint:      os.Getenv("OCR_ENDPOINT"),
		LLMEndpoint:      os.Getenv("LLM_ENDPOINT"),
		LLMModel:         envOrDefault("LLM_MODEL", "gpt-4o-mini"),
		GeocoderEndpoint: envOrDefault("GEOCODER_ENDPOINT", "https://nominatim.openstreetmap.org/reverse"),

		Pipeline: LoadPipelineConfig(),
	}

	// Basic validation for required fields
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("database configuration is incomplete")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
		return nil, fmt.Errorf("minio configuration is incomplete")
	}
	return cfg, nil
}

// LoadPipelineConfig reads pipeline thresholds from environment, falling back
// to the documented defaults when unset or unparsable.
func LoadPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ProximityMeters:     envFloat("PIPELINE_PROXIMITY_METERS", 5000),
		ConflictMeters:      envFloat("PIPELINE_CONFLICT_METERS", 50000),
		RouteMergeMeters:    envFloat("PIPELINE_ROUTE_MERGE_METERS", 200),
		ExifAccuracyMeters:  envFloat("PIPELINE_EXIF_ACCURACY_METERS", 100),
		CategorySupport:     envFloat("PIPELINE_CATEGORY_SUPPORT", 0.10),
		CategoryHighConf:    envFloat("PIPELINE_CATEGORY_HIGH_CONF", 0.9),
		ProviderTimeout:     envDuration("PIPELINE_PROVIDER_TIMEOUT", 5*time.Second),
		WorkerPoolSize:      envInt("PIPELINE_WORKERS", runtime.NumCPU()),
		GeocodeCacheTTL:     envDuration("PIPELINE_GEOCODE_CACHE_TTL", time.Hour),
		GeocodeRetryBackoff: envDuration("PIPELINE_GEOCODE_RETRY_BACKOFF", 500*time.Millisecond),
		GeocodePrecision:    envInt("PIPELINE_GEOCODE_PRECISION", 3),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// ConnectDatabase initializes a GORM database connection to PostgreSQL.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
