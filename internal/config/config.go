package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultMaxUploadBytes = 50 << 20
	defaultTokenTTL       = 24 * time.Hour
)

var defaultAllowedExtensions = []string{"pdf", "doc", "docx", "md", "markdown", "txt", "html", "htm"}

// Duration parses YAML strings like "24h" or "90s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full server configuration, loaded from YAML with
// environment overrides.
type Config struct {
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`

	UploadDir         string   `yaml:"upload_dir"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`

	PromptDir string `yaml:"prompt_dir"`

	JWTSecret string   `yaml:"jwt_secret"`
	TokenTTL  Duration `yaml:"token_ttl"`

	Redis RedisConfig `yaml:"redis"`
	AMQP  AMQPConfig  `yaml:"amqp"`
	Minio MinioConfig `yaml:"minio"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RedisConfig configures the optional Redis-backed rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AMQPConfig configures the optional lifecycle event publisher.
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// MinioConfig configures the optional document archive store.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RateLimitConfig bounds guide generation requests per user.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
}

// Load reads the YAML config at path, applies environment overrides
// and validates the result. A missing file is not an error: env vars
// alone can configure the server.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:           defaultPort,
		LogLevel:       "info",
		UploadDir:      "uploads",
		PromptDir:      "prompts",
		MaxUploadBytes: defaultMaxUploadBytes,
		TokenTTL:       Duration(defaultTokenTTL),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env overrides
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LITASSIST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("LITASSIST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LITASSIST_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LITASSIST_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("LITASSIST_PROMPT_DIR"); v != "" {
		cfg.PromptDir = v
	}
	if v := os.Getenv("LITASSIST_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("LITASSIST_TOKEN_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.TokenTTL = Duration(ttl)
		}
	}
	if v := os.Getenv("LITASSIST_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("LITASSIST_ALLOWED_EXTENSIONS"); v != "" {
		parts := strings.Split(v, ",")
		exts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				exts = append(exts, p)
			}
		}
		cfg.AllowedExtensions = exts
	}
	if v := os.Getenv("LITASSIST_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LITASSIST_AMQP_URL"); v != "" {
		cfg.AMQP.URL = v
	}
	if v := os.Getenv("LITASSIST_MINIO_ENDPOINT"); v != "" {
		cfg.Minio.Endpoint = v
	}
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if cfg.UploadDir == "" {
		return fmt.Errorf("upload_dir is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if cfg.RateLimit.PerMinute < 0 {
		return fmt.Errorf("rate_limit.per_minute must not be negative")
	}
	return nil
}
