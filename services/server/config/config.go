package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration of the server process.
type Config struct {
	Port    int
	DistDir string

	NYTBaseURL       string
	NYTSection       string
	NYTAPIKey        string
	FetchTimeout     time.Duration
	NYTRatePerSecond float64

	// RateLimitRPS of zero disables the per-client limiter.
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy keys the limiter by X-Forwarded-For instead of the peer address.
	TrustProxy bool

	KafkaBrokers []string
	KafkaTopic   string

	ShutdownTimeout time.Duration
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Server struct {
		Port                   int    `yaml:"port"`
		DistDir                string `yaml:"dist_dir"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
		RateLimit              struct {
			RPS        float64 `yaml:"rps"`
			Burst      int     `yaml:"burst"`
			TrustProxy bool    `yaml:"trust_proxy"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	NYT struct {
		BaseURL             string  `yaml:"base_url"`
		Section             string  `yaml:"section"`
		APIKey              string  `yaml:"api_key"`
		FetchTimeoutSeconds int     `yaml:"fetch_timeout_seconds"`
		RatePerSecond       float64 `yaml:"rate_per_second"`
	} `yaml:"nyt"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

var ErrMissingAPIKey = errors.New("missing NYT_API_KEY")

// Load resolves configuration in order: defaults, then the YAML file at
// path (skipped when absent), then environment variables.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:            8080,
		DistDir:         "frontend/dist",
		NYTBaseURL:      "https://api.nytimes.com/svc",
		NYTSection:      "arts",
		FetchTimeout:    10 * time.Second,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		KafkaTopic:      "top-stories",
		ShutdownTimeout: 5 * time.Second,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.Port = envInt("PORT", cfg.Port)
	cfg.DistDir = envOrDefault("DIST_DIR", cfg.DistDir)
	cfg.NYTBaseURL = envOrDefault("NYT_BASE_URL", cfg.NYTBaseURL)
	cfg.NYTSection = envOrDefault("NYT_SECTION", cfg.NYTSection)
	cfg.NYTAPIKey = envOrDefault("NYT_API_KEY", cfg.NYTAPIKey)
	cfg.FetchTimeout = time.Duration(envInt("FETCH_TIMEOUT_SECONDS", int(cfg.FetchTimeout.Seconds()))) * time.Second
	cfg.NYTRatePerSecond = envFloat("NYT_RATE_PER_SECOND", cfg.NYTRatePerSecond)
	cfg.RateLimitRPS = envFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.TrustProxy = envBool("TRUST_PROXY", cfg.TrustProxy)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.ShutdownTimeout = time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", int(cfg.ShutdownTimeout.Seconds()))) * time.Second

	if strings.TrimSpace(cfg.NYTAPIKey) == "" {
		return Config{}, ErrMissingAPIKey
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects values that would silently break the server: negative
// durations fail every request, and a zero burst denies every client.
func validate(cfg Config) error {
	switch {
	case cfg.FetchTimeout < 0:
		return fmt.Errorf("invalid fetch timeout %s", cfg.FetchTimeout)
	case cfg.ShutdownTimeout <= 0:
		return fmt.Errorf("invalid shutdown timeout %s", cfg.ShutdownTimeout)
	case cfg.NYTRatePerSecond < 0:
		return fmt.Errorf("invalid nyt rate per second %g", cfg.NYTRatePerSecond)
	case cfg.RateLimitRPS < 0:
		return fmt.Errorf("invalid rate limit rps %g", cfg.RateLimitRPS)
	case cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1:
		return fmt.Errorf("invalid rate limit burst %d", cfg.RateLimitBurst)
	}
	return nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Server.Port > 0 {
		cfg.Port = f.Server.Port
	}
	if f.Server.DistDir != "" {
		cfg.DistDir = f.Server.DistDir
	}
	if f.Server.ShutdownTimeoutSeconds > 0 {
		cfg.ShutdownTimeout = time.Duration(f.Server.ShutdownTimeoutSeconds) * time.Second
	}
	if f.Server.RateLimit.RPS > 0 {
		cfg.RateLimitRPS = f.Server.RateLimit.RPS
	}
	if f.Server.RateLimit.Burst > 0 {
		cfg.RateLimitBurst = f.Server.RateLimit.Burst
	}
	if f.Server.RateLimit.TrustProxy {
		cfg.TrustProxy = true
	}
	if f.NYT.BaseURL != "" {
		cfg.NYTBaseURL = f.NYT.BaseURL
	}
	if f.NYT.Section != "" {
		cfg.NYTSection = f.NYT.Section
	}
	if f.NYT.APIKey != "" {
		cfg.NYTAPIKey = f.NYT.APIKey
	}
	if f.NYT.FetchTimeoutSeconds > 0 {
		cfg.FetchTimeout = time.Duration(f.NYT.FetchTimeoutSeconds) * time.Second
	}
	if f.NYT.RatePerSecond > 0 {
		cfg.NYTRatePerSecond = f.NYT.RatePerSecond
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	if f.Kafka.Topic != "" {
		cfg.KafkaTopic = f.Kafka.Topic
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envBool falls back on empty or unparsable values.
func envBool(name string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return v
}

// envCSV splits a comma-separated list and drops empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
