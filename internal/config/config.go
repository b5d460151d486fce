package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port    string
	Env     string
	Debug   bool
	SiteURL string

	JWT        JWTConfig
	DB         DatabaseConfig
	Redis      RedisConfig
	OTP        OTPConfig
	Catalog    CatalogConfig
	S3         S3Config
	Elastic    ElasticConfig
	SMTP       SMTPConfig
	Newsletter NewsletterConfig
	Admin      AdminConfig
	Worker     WorkerConfig
	CORS       CORSConfig
}

// JWTConfig contains token signing parameters.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	AdminTTL   time.Duration
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OTPConfig controls one-time password lifetime and limits.
type OTPConfig struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

// CatalogConfig contains storefront tuning values.
type CatalogConfig struct {
	CategoryCacheTTL time.Duration
}

// S3Config contains object storage configuration for uploaded images.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// ElasticConfig contains the product search cluster settings. Empty URL disables search indexing.
type ElasticConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

// SMTPConfig contains outgoing mail settings. Empty Host disables mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewsletterConfig contains the secret used to sign unsubscribe links.
type NewsletterConfig struct {
	Secret string
}

// AdminConfig describes the bootstrap back-office account.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// CORSConfig lists the hosts whose browser origins may call the API.
type CORSConfig struct {
	AllowedHosts []string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	OTPCleanupInterval   time.Duration
	CategoryWarmInterval time.Duration
	SearchSyncInterval   time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.Debug = getEnvBool("DEBUG", cfg.Env != "production")
	cfg.SiteURL = getEnv("SITE_URL", "https://drop.az")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// S3 (product and category images)
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "eu-central-1"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		PublicURL:       getEnv("S3_PUBLIC_URL", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		ForcePathStyle:  getEnvBool("S3_FORCE_PATH_STYLE", false),
	}

	cfg.Elastic = ElasticConfig{
		URL:      getEnv("ELASTIC_URL", ""),
		Username: getEnv("ELASTIC_USERNAME", ""),
		Password: getEnv("ELASTIC_PASSWORD", ""),
		Index:    getEnv("ELASTIC_INDEX", "products"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "noreply@drop.az"),
	}

	cfg.Admin = AdminConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Name:     getEnv("ADMIN_NAME", "Administrator"),
	}

	cfg.CORS.AllowedHosts = getEnvList("CORS_ALLOWED_HOSTS",
		"localhost:3000,127.0.0.1:3000,localhost:8000,drop.az,www.drop.az,admin.drop.az,static.drop.az")

	cfg.OTP.MaxAttempts = getEnvInt("OTP_MAX_ATTEMPTS", 3)

	// Durations
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"JWT_ACCESS_TTL", "5m", &cfg.JWT.AccessTTL},
		{"JWT_REFRESH_TTL", "24h", &cfg.JWT.RefreshTTL},
		{"ADMIN_TOKEN_TTL", "12h", &cfg.JWT.AdminTTL},
		{"OTP_TTL", "5m", &cfg.OTP.TTL},
		{"OTP_RESEND_COOLDOWN", "60s", &cfg.OTP.ResendCooldown},
		{"CATEGORY_CACHE_TTL", "300s", &cfg.Catalog.CategoryCacheTTL},
		{"OTP_CLEANUP_INTERVAL", "10m", &cfg.Worker.OTPCleanupInterval},
		{"CATEGORY_CACHE_WARM_INTERVAL", "4m", &cfg.Worker.CategoryWarmInterval},
		{"SEARCH_SYNC_INTERVAL", "15m", &cfg.Worker.SearchSyncInterval},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	// Basic validation for DB parameters
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	cfg.JWT.Secret = getEnv("JWT_SECRET", "")
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}
	cfg.Newsletter.Secret = getEnv("NEWSLETTER_SECRET", cfg.JWT.Secret)

	if cfg.OTP.MaxAttempts <= 0 {
		return nil, errors.New("OTP_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvList splits a comma separated environment variable, dropping blank entries.
func getEnvList(key, def string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
