// Package config loads runtime settings from BLOCKMARK_* environment
// variables.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/robfig/cron/v3"
)

type Config struct {
	DataDir string `env:"BLOCKMARK_DATA_DIR"`

	// sqlite | postgres | mysql | mongodb
	DBDriver      string `env:"BLOCKMARK_DB_DRIVER"`
	DatabaseURL   string `env:"BLOCKMARK_DATABASE_URL"`
	DBHost        string `env:"BLOCKMARK_DB_HOST"`
	DBPort        int    `env:"BLOCKMARK_DB_PORT"`
	DBUser        string `env:"BLOCKMARK_DB_USER"`
	DBPassword    string `env:"BLOCKMARK_DB_PASSWORD"`
	DBName        string `env:"BLOCKMARK_DB_NAME"`
	DBSSLMode     string `env:"BLOCKMARK_DB_SSLMODE"`
	MongoDatabase string `env:"BLOCKMARK_MONGO_DATABASE"`

	UploadDir     string `env:"BLOCKMARK_UPLOAD_DIR"`
	UploadBaseURL string `env:"BLOCKMARK_UPLOAD_BASE_URL"`

	MinioEndpoint  string `env:"BLOCKMARK_MINIO_ENDPOINT"`
	MinioAccessKey string `env:"BLOCKMARK_MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"BLOCKMARK_MINIO_SECRET_KEY"`
	MinioBucket    string `env:"BLOCKMARK_MINIO_BUCKET"`
	MinioUseSSL    bool   `env:"BLOCKMARK_MINIO_USE_SSL"`
	MinioPublicURL string `env:"BLOCKMARK_MINIO_PUBLIC_URL"`

	RedisURL     string `env:"BLOCKMARK_REDIS_URL"`
	RedisChannel string `env:"BLOCKMARK_REDIS_CHANNEL"`

	Autosave  string `env:"BLOCKMARK_AUTOSAVE"`
	ImportDir string `env:"BLOCKMARK_IMPORT_DIR"`

	// Default required-content policy of new documents
	Required    bool `env:"BLOCKMARK_REQUIRED"`
	AutoApprove bool `env:"BLOCKMARK_MCP_AUTO_APPROVE"`
}

// Load reads the environment and fills in defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	envConfig("env", cfg)

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".local", "share", "blockmark")
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.DataDir, "uploads")
	}
	if cfg.RedisChannel == "" {
		cfg.RedisChannel = "blockmark:events"
	}
	if cfg.Autosave == "" {
		cfg.Autosave = "@every 30s"
	}
	if cfg.MinioEndpoint != "" && cfg.MinioBucket == "" {
		cfg.MinioBucket = "blockmark"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("BLOCKMARK_DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.DBDriver == "mongodb" && c.DatabaseURL == "" {
		return fmt.Errorf("BLOCKMARK_DATABASE_URL is required for mongodb")
	}
	if (c.DBDriver == "postgres" || c.DBDriver == "mysql") && c.DatabaseURL == "" && c.DBHost == "" {
		return fmt.Errorf("BLOCKMARK_DATABASE_URL or BLOCKMARK_DB_HOST is required for %s", c.DBDriver)
	}
	if _, err := cron.ParseStandard(c.Autosave); err != nil {
		return fmt.Errorf("BLOCKMARK_AUTOSAVE: %w", err)
	}
	if c.UploadBaseURL != "" {
		if _, err := url.Parse(c.UploadBaseURL); err != nil {
			return fmt.Errorf("BLOCKMARK_UPLOAD_BASE_URL: %w", err)
		}
	}
	return nil
}

// DBPath is the SQLite file used when DBDriver is sqlite and no URL is set.
func (c *Config) DBPath() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return filepath.Join(c.DataDir, "blockmark.db")
}

// envConfig sets every tagged field whose variable is present and non-empty.
func envConfig(key string, s any) {
	v := reflect.ValueOf(s).Elem()
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := typ.Field(i)
		envKey := field.Tag.Get(key)
		if envKey == "" || !Exist(envKey) {
			continue
		}
		raw := GetEnv(envKey)
		if raw == "" {
			continue
		}

		log.Printf("[CONFIG] %s.%s = %s", typ.Name(), field.Name, maskValue(field.Name, raw))

		switch v.Field(i).Kind() {
		case reflect.String:
			v.Field(i).SetString(raw)
		case reflect.Int:
			v.Field(i).SetInt(int64(GetIntEnv(envKey)))
		case reflect.Bool:
			v.Field(i).SetBool(GetBoolEnv(envKey))
		}
	}
}

// maskValue hides secrets in logs: passwords and keys keep only their first
// and last characters, URLs lose their password.
func maskValue(name, value string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "pass"), strings.Contains(lower, "secret"),
		strings.Contains(lower, "token"), strings.HasSuffix(lower, "key"):
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	case strings.HasSuffix(lower, "url"):
		if u, err := url.Parse(value); err == nil && u.User != nil {
			return u.Redacted()
		}
	}
	return value
}
