// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "tb8.yaml"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host" validate:"required"`
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request deadline, 0 disables
}

// UpstreamConfig configures the TfL API client.
type UpstreamConfig struct {
	URL             string        `yaml:"url" validate:"required,url"`
	AppID           string        `yaml:"app_id" validate:"required"`
	AppKey          string        `yaml:"app_key" validate:"required"`
	Timeout         time.Duration `yaml:"timeout"` // 0 leaves the transport default
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path" validate:"startswith=/"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	TFL_API_PRIMARY_ACCESS_KEY - TfL application key (required)
//	TFL_API_KEY_ID             - TfL application id (default: tb8-rs)
//	TFL_API_BASE_URL           - TfL API base URL (default: https://api.tfl.gov.uk)
//	TFL_API_TIMEOUT            - Upstream request timeout, e.g. 10s (default: none)
//	PORT                       - Server port (default: 4000)
//	TB8_SERVER_HOST            - Server host (default: 0.0.0.0)
//	TB8_LOG_LEVEL              - Log level: debug, info, warn, error (default: info)
//	TB8_LOG_FORMAT             - Log format: json or console (default: json)
//	TB8_METRICS_ENABLED        - Enable /metrics endpoint (default: false)
//	TB8_METRICS_PATH           - Metrics path (default: /metrics)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set TFL_API_PRIMARY_ACCESS_KEY")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("TFL_API_PRIMARY_ACCESS_KEY") != ""
}

// LoadDotEnv loads variables from .env-style files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("TB8_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Upstream configuration
	if v := os.Getenv("TFL_API_BASE_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("TFL_API_KEY_ID"); v != "" {
		cfg.Upstream.AppID = v
	}
	if v := os.Getenv("TFL_API_PRIMARY_ACCESS_KEY"); v != "" {
		cfg.Upstream.AppKey = v
	}
	if v := os.Getenv("TFL_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = d
		}
	}

	// Logging configuration
	if v := os.Getenv("TB8_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TB8_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("TB8_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("TB8_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Upstream.URL == "" {
		cfg.Upstream.URL = "https://api.tfl.gov.uk"
	}
	if cfg.Upstream.AppID == "" {
		cfg.Upstream.AppID = "tb8-rs"
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = 100
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = 90 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// envHints names the variable that sets a field, for error messages.
var envHints = map[string]string{
	"upstream.app_key": "TFL_API_PRIMARY_ACCESS_KEY",
	"upstream.app_id":  "TFL_API_KEY_ID",
	"upstream.url":     "TFL_API_BASE_URL",
	"server.port":      "PORT",
}

var validate = newValidator()

func newValidator() func(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return func(cfg *Config) error {
		err := v.Struct(cfg)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}

func fieldMessage(fe validator.FieldError) string {
	// Namespace is "Config.upstream.app_key"; drop the root type.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s, got %q", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "url":
		msg = fmt.Sprintf("%s must be an absolute URL, got %q", field, fe.Value())
	case "min", "max":
		msg = fmt.Sprintf("%s is out of range (%s=%s), got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "startswith":
		msg = fmt.Sprintf("%s must start with %q", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
	if env, ok := envHints[field]; ok {
		msg += " (set " + env + ")"
	}
	return msg
}
