package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devJWTSecret = "sponsordocs-dev-secret-change-me"

type Config struct {
	Env           string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"file:sponsordocs.db"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"sponsordocs-dev-secret-change-me"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AdminEmail string        `env:"ADMIN_EMAIL" envDefault:"admin@sponsordocs.local"`
	AdminPass  string        `env:"ADMIN_PASSWORD" envDefault:"admin123"`

	Blob BlobConfig

	DownloadURLTTL  time.Duration `env:"DOWNLOAD_URL_TTL" envDefault:"15m"`
	ExportTTL       time.Duration `env:"EXPORT_TTL" envDefault:"1h"`
	ExportSweepSpec string        `env:"EXPORT_SWEEP_SPEC" envDefault:"@every 10m"`

	Notify NotifyConfig

	PublicRateLimit int      `env:"PUBLIC_RATE_LIMIT" envDefault:"60"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	GelfAddr  string `env:"GELF_ADDR"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

type BlobConfig struct {
	Backend string        `env:"BLOB_BACKEND" envDefault:"memory"`
	Timeout time.Duration `env:"BLOB_TIMEOUT" envDefault:"30s"`

	S3Bucket    string `env:"S3_BUCKET"`
	AWSRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpoint string `env:"AWS_ENDPOINT_URL"`

	OxiDBHost     string `env:"OXIDB_HOST" envDefault:"127.0.0.1"`
	OxiDBPort     int    `env:"OXIDB_PORT" envDefault:"4444"`
	OxiDBPoolSize int    `env:"OXIDB_POOL_SIZE" envDefault:"3"`
	OxiDBBucket   string `env:"OXIDB_BUCKET" envDefault:"sponsor_documents"`
}

type NotifyConfig struct {
	To      []string      `env:"NOTIFY_TO" envSeparator:","`
	From    string        `env:"NOTIFY_FROM" envDefault:"no-reply@sponsordocs.local"`
	Timeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

func (c *Config) check() error {
	if !c.IsDevelopment() && c.JWTSecret == devJWTSecret {
		return errors.New("config: JWT_SECRET must be set outside development")
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.Blob.Backend {
	case "memory", "oxidb":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return errors.New("config: S3_BUCKET is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("config: unsupported BLOB_BACKEND %q", c.Blob.Backend)
	}
	return nil
}
