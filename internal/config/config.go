/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config covers process level configuration. Values come from CANVAS_* env
// keys, optionally layered over a YAML file (CANVAS_CONFIG_FILE). The
// struct is built once at startup and passed to constructors; nothing reads
// the environment at call time.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	// ServerURL is the public base URL the frame pulls images from
	// (e.g., http://192.168.1.20:8080).
	ServerURL string

	// CanvasURL is the default device address used when a playlist start
	// request does not name one.
	CanvasURL string

	// DefaultCronHours is the rotation interval applied when a start
	// request omits cronIntervalInHours.
	DefaultCronHours int

	DataDir         string
	MaxUploadSizeMB int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// fileConfig mirrors Config for the optional YAML file. Env keys win over
// file values.
type fileConfig struct {
	Environment       string  `yaml:"environment"`
	HTTPBind          string  `yaml:"http_bind"`
	HTTPPort          int     `yaml:"http_port"`
	ServerURL         string  `yaml:"server_url"`
	CanvasURL         string  `yaml:"canvas_url"`
	DefaultCronHours  int     `yaml:"default_cron_hours"`
	DataDir           string  `yaml:"data_dir"`
	MaxUploadSizeMB   int     `yaml:"max_upload_size_mb"`
	TracingEnabled    bool    `yaml:"tracing_enabled"`
	OTLPEndpoint      string  `yaml:"otlp_endpoint"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`
}

// Load reads configuration, applies defaults, and validates the result.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("CANVAS_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:      getEnv("CANVAS_ENV", pick(file.Environment, "development")),
		HTTPBind:         getEnv("CANVAS_HTTP_BIND", pick(file.HTTPBind, "0.0.0.0")),
		HTTPPort:         getEnvInt("CANVAS_HTTP_PORT", pickInt(file.HTTPPort, 8080)),
		ServerURL:        getEnv("CANVAS_SERVER_URL", file.ServerURL),
		CanvasURL:        getEnv("CANVAS_DEVICE_URL", file.CanvasURL),
		DefaultCronHours: getEnvInt("CANVAS_CRON_INTERVAL_HOURS", pickInt(file.DefaultCronHours, 2)),
		DataDir:          getEnv("CANVAS_DATA_DIR", pick(file.DataDir, "data")),
		MaxUploadSizeMB:  getEnvInt("CANVAS_MAX_UPLOAD_SIZE_MB", pickInt(file.MaxUploadSizeMB, 32)),

		TracingEnabled:    getEnvBool("CANVAS_TRACING_ENABLED", file.TracingEnabled),
		OTLPEndpoint:      getEnv("CANVAS_OTLP_ENDPOINT", pick(file.OTLPEndpoint, "localhost:4317")),
		TracingSampleRate: getEnvFloat("CANVAS_TRACING_SAMPLE_RATE", pickFloat(file.TracingSampleRate, 1.0)),
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("CANVAS_SERVER_URL must be provided (public URL the frame pulls from)")
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return nil, fmt.Errorf("CANVAS_SERVER_URL must be an http(s) URL, got %q", cfg.ServerURL)
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.CanvasURL != "" {
		cfg.CanvasURL = strings.TrimRight(cfg.CanvasURL, "/")
	}
	if cfg.DefaultCronHours < 1 {
		return nil, fmt.Errorf("CANVAS_CRON_INTERVAL_HOURS must be >= 1, got %d", cfg.DefaultCronHours)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	var file fileConfig
	if path == "" {
		return file, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return file, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"DATA_DIR":   "use CANVAS_DATA_DIR",
		"SERVER_URL": "use CANVAS_SERVER_URL",
		"CANVAS_URL": "use CANVAS_DEVICE_URL",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// MaxUploadSizeBytes returns the configured upload limit in bytes.
func (c *Config) MaxUploadSizeBytes() int64 {
	if c == nil || c.MaxUploadSizeMB <= 0 {
		return 32 * 1024 * 1024
	}
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

func pick(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func pickInt(val, def int) int {
	if val != 0 {
		return val
	}
	return def
}

func pickFloat(val, def float64) float64 {
	if val != 0 {
		return val
	}
	return def
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
