package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=ppe port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	CORSOrigins       string
	SessionCookieName string
	SessionTTL        time.Duration

	LogLevel  string
	LogFormat string

	// Stock below this quantity after an attribution raises a critical stock notice.
	CriticalStockThreshold int

	SheetStoragePath string
	Minio            MinioConfig
	Redis            RedisConfig

	MetricsEnabled bool
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether sheets go to object storage instead of the local directory.
func (m MinioConfig) Enabled() bool { return m.Endpoint != "" }

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")
	ErrShortJWTSecret   = errors.New("JWT_SECRET must be at least 32 characters")
)

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)
	v.SetDefault("SESSION_COOKIE_NAME", "ppe_session")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CRITICAL_STOCK_THRESHOLD", 5)
	v.SetDefault("SHEET_STORAGE_PATH", "./sheets")
	v.SetDefault("MINIO_BUCKET", "attribution-sheets")
	v.SetDefault("REDIS_CHANNEL", "ppe:notifications")
	v.SetDefault("METRICS_ENABLED", true)

	cfg := &Config{
		HTTPPort:               v.GetString("HTTP_PORT"),
		DatabaseDSN:            v.GetString("DATABASE_DSN"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		CORSOrigins:            v.GetString("CORS_ALLOWED_ORIGINS"),
		SessionCookieName:      v.GetString("SESSION_COOKIE_NAME"),
		SessionTTL:             v.GetDuration("SESSION_TTL"),
		LogLevel:               strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:              strings.ToLower(v.GetString("LOG_FORMAT")),
		CriticalStockThreshold: v.GetInt("CRITICAL_STOCK_THRESHOLD"),
		SheetStoragePath:       v.GetString("SHEET_STORAGE_PATH"),
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, ErrShortJWTSecret
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.CriticalStockThreshold <= 0 {
		cfg.CriticalStockThreshold = 5
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN uses the default value, set your own Postgres DSN in production.")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS uses the default value, set your own domain in production.")
	}

	return cfg, nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
