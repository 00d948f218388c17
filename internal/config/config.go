package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UOV_BULK_MAX_CONCURRENT_REQUESTS.
const EnvPrefix = "UOV"

// Config is the process configuration shared by the CLI, server and
// scheduler.
type Config struct {
	RulesPath    string         `mapstructure:"rules_path"`
	DatabasePath string         `mapstructure:"database_path"`
	LogLevel     string         `mapstructure:"log_level"`
	Bulk         BulkConfig     `mapstructure:"bulk"`
	Server       ServerConfig   `mapstructure:"server"`
	Schedule     ScheduleConfig `mapstructure:"schedule"`
}

// BulkConfig controls batch validation.
type BulkConfig struct {
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests"`
	OutputFormat          string `mapstructure:"output_format"` // json, csv or text
}

// ServerConfig controls the HTTP entry point.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScheduleConfig controls the periodic batch.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

var outputFormats = []string{"json", "csv", "text"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rules_path", "")
	v.SetDefault("database_path", "uov.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("bulk.max_concurrent_requests", 5)
	v.SetDefault("bulk.output_format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("schedule.cron", "0 2 * * *")
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not load: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty), applies
// UOV_* environment overrides and returns the validated result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Bulk.MaxConcurrentRequests <= 0 {
		errs = append(errs, fmt.Errorf("bulk.max_concurrent_requests must be positive, got %d", c.Bulk.MaxConcurrentRequests))
	}
	if !slices.Contains(outputFormats, c.Bulk.OutputFormat) {
		errs = append(errs, fmt.Errorf("bulk.output_format must be one of %s, got %q",
			strings.Join(outputFormats, ", "), c.Bulk.OutputFormat))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout must be positive, got %s", c.Server.RequestTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
}
