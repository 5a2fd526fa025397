package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StorageDriverMinIO = "minio"
	StorageDriverS3    = "s3"
)

// DefaultReplicateModel is the sdxl-emoji fine-tune pinned to a known version.
const DefaultReplicateModel = "fofr/sdxl-emoji:dee76b5afde21b0f01ed7925f0665b7e879c50ee718c5f78a9d38e04d523cc5e"

type Config struct {
	Environment string
	Server      struct {
		Port              string
		AllowedOrigins    []string
		RateLimitRPS      int
		GenerateRateLimit int
	}
	Database struct {
		URL string
	}
	Redis struct {
		URL string
	}
	Storage struct {
		Driver    string
		Endpoint  string
		Region    string
		AccessKey string
		SecretKey string
		UseSSL    bool
		Bucket    string
		PublicURL string
	}
	JWT struct {
		Secret string
	}
	Generation struct {
		APIToken       string
		Model          string
		Timeout        time.Duration
		Mock           bool
		MaxDimension   int
		DefaultCredits int
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}

	cfg.Environment = getEnv("APP_ENV", "development")

	// Server
	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.AllowedOrigins = getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"})
	cfg.Server.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", 20)
	cfg.Server.GenerateRateLimit = getEnvInt("GENERATE_RATE_LIMIT", 10)

	// Database
	postgresUser := getEnv("POSTGRES_USER", "emojigen")
	postgresPass := getEnv("POSTGRES_PASSWORD", "emojigen")
	postgresHost := getEnv("POSTGRES_HOST", "localhost")
	postgresPort := getEnv("POSTGRES_PORT", "5432")
	postgresDB := getEnv("POSTGRES_DB", "emojigen")
	postgresSSL := getEnv("POSTGRES_SSLMODE", "disable")
	cfg.Database.URL = getEnv("DATABASE_URL", "postgres://"+postgresUser+":"+postgresPass+"@"+postgresHost+":"+postgresPort+"/"+postgresDB+"?sslmode="+postgresSSL)

	// Redis
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")
	cfg.Redis.URL = getEnv("REDIS_URL", "redis://"+redisHost+":"+redisPort)

	// Storage
	cfg.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverMinIO))
	cfg.Storage.Endpoint = getEnv("STORAGE_ENDPOINT", "localhost:9000")
	cfg.Storage.Region = getEnv("STORAGE_REGION", "us-east-1")
	cfg.Storage.AccessKey = getEnv("STORAGE_ACCESS_KEY", "emojigen_minio")
	cfg.Storage.SecretKey = getEnv("STORAGE_SECRET_KEY", "emojigen_minio_secret")
	cfg.Storage.UseSSL = getEnvBool("STORAGE_USE_SSL", false)
	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", "emojis")
	cfg.Storage.PublicURL = getEnv("STORAGE_PUBLIC_URL", "http://localhost:9000")

	// JWT
	cfg.JWT.Secret = getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production")

	// Generation. The token has no default: an empty value is reported per request.
	cfg.Generation.APIToken = os.Getenv("REPLICATE_API_TOKEN")
	cfg.Generation.Model = getEnv("REPLICATE_MODEL", DefaultReplicateModel)
	cfg.Generation.Timeout = getEnvDuration("GENERATION_TIMEOUT", 45*time.Second)
	cfg.Generation.Mock = getEnvBool("GENERATION_MOCK", false)
	cfg.Generation.MaxDimension = getEnvInt("EMOJI_MAX_DIMENSION", 0)
	cfg.Generation.DefaultCredits = getEnvInt("DEFAULT_CREDITS", 10)

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
