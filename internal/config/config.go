package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Archetype/internal/calibration"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Hermes      HermesConfig      `yaml:"hermes"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Matching    MatchingConfig    `yaml:"matching"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	// RateLimit is requests per minute per client on the public API. 0 disables it.
	RateLimit int `yaml:"rate_limit"`
}

// DatabaseConfig selects Postgres. An empty URL keeps the catalog in memory.
type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig enables the catalog read cache when URL is set.
type RedisConfig struct {
	URL        string `yaml:"url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type CalibrationConfig struct {
	SampleCount          int     `yaml:"sample_count"`
	Iterations           int     `yaml:"iterations"`
	LearningRate         float64 `yaml:"learning_rate"`
	RegularizationWeight float64 `yaml:"regularization_weight"`
	Workers              int     `yaml:"workers"`
	OnSave               bool    `yaml:"on_save"`
	Seed                 uint64  `yaml:"seed"`
	// IntervalSeconds recalibrates the stored catalog periodically. 0 disables it.
	IntervalSeconds int `yaml:"interval_seconds"`
}

type MatchingConfig struct {
	Policy string `yaml:"policy"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *CalibrationConfig) Tunables() calibration.Tunables {
	return calibration.Tunables{
		SampleCount:          c.SampleCount,
		Iterations:           c.Iterations,
		LearningRate:         c.LearningRate,
		RegularizationWeight: c.RegularizationWeight,
		Workers:              c.Workers,
	}
}

func (c *CalibrationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c *MatchingConfig) MatchPolicy() (scoring.Policy, error) {
	return scoring.ParsePolicy(c.Policy)
}

// SlogLevel maps the configured level name onto slog, defaulting to info.
func (c *LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger from the logging section.
func (c *LoggingConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func Load(path string) (*Config, error) {
	defaults := calibration.DefaultTunables()
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   120,
		},
		Database: DatabaseConfig{
			Migrate: true,
		},
		Redis: RedisConfig{
			TTLSeconds: 300,
		},
		Calibration: CalibrationConfig{
			SampleCount:          defaults.SampleCount,
			Iterations:           defaults.Iterations,
			LearningRate:         defaults.LearningRate,
			RegularizationWeight: defaults.RegularizationWeight,
			Workers:              defaults.Workers,
			OnSave:               true,
		},
		Matching: MatchingConfig{
			Policy: string(scoring.PolicyEuclidean),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if _, err := cfg.Matching.MatchPolicy(); err != nil {
		return nil, err
	}
	if err := cfg.Calibration.Tunables().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ARCHETYPE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ARCHETYPE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ARCHETYPE_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ARCHETYPE_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("ARCHETYPE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ARCHETYPE_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("ARCHETYPE_REDIS_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.TTLSeconds = n
		}
	}
	if v := os.Getenv("ARCHETYPE_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("ARCHETYPE_CALIBRATION_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Calibration.SampleCount = n
		}
	}
	if v := os.Getenv("ARCHETYPE_CALIBRATION_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Calibration.Iterations = n
		}
	}
	if v := os.Getenv("ARCHETYPE_CALIBRATION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Calibration.Workers = n
		}
	}
	if v := os.Getenv("ARCHETYPE_CALIBRATION_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Calibration.IntervalSeconds = n
		}
	}
	if v := os.Getenv("ARCHETYPE_CALIBRATE_ON_SAVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Calibration.OnSave = b
		}
	}
	if v := os.Getenv("ARCHETYPE_MATCHING_POLICY"); v != "" {
		cfg.Matching.Policy = v
	}
	if v := os.Getenv("ARCHETYPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ARCHETYPE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
