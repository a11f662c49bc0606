// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from an optional config.yaml and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultWrikeBaseURL is the Wrike REST API v4 root.
	DefaultWrikeBaseURL = "https://www.wrike.com/api/v4"

	// DefaultRequestTimeout bounds every outbound HTTP call.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultStateRetention is how long untouched extraction state is kept.
	DefaultStateRetention = 30 * 24 * time.Hour
)

// Config holds all configuration for the snap-in.
type Config struct {
	// Server
	Port int `validate:"min=1,max=65535"`

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	// Wrike
	WrikeBaseURL   string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`

	// Extraction
	ExtractionTimeout time.Duration `validate:"gt=0"`
	StaticDir         string

	// StateRetention prunes Postgres state older than this at startup.
	// Zero keeps everything.
	StateRetention time.Duration `validate:"gte=0"`

	// Redis (record sink + dedup). Empty disables the Redis sink.
	RedisURL    string
	QueuePrefix string `validate:"required"`

	// Postgres (extraction state). Empty falls back to in-memory state.
	DatabaseURL string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Wrike struct {
		BaseURL        string `yaml:"base_url"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"wrike"`
	Extraction struct {
		Timeout        string `yaml:"timeout"`
		StaticDir      string `yaml:"static_dir"`
		StateRetention string `yaml:"state_retention"`
	} `yaml:"extraction"`
	Redis struct {
		URL         string `yaml:"url"`
		QueuePrefix string `yaml:"queue_prefix"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads configuration from CONFIG_PATH (with env var expansion) when
// the file exists, then fills the remaining settings from the environment.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only deployment (e.g. Lambda)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	requestTimeout, err := parseDuration(raw.Wrike.RequestTimeout, envOrDefaultDuration("REQUEST_TIMEOUT", DefaultRequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("wrike.request_timeout: %w", err)
	}
	extractionTimeout, err := parseDuration(raw.Extraction.Timeout, envOrDefaultDuration("EXTRACTION_TIMEOUT", 10*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("extraction.timeout: %w", err)
	}
	stateRetention, err := parseDuration(raw.Extraction.StateRetention, envOrDefaultDuration("STATE_RETENTION", DefaultStateRetention))
	if err != nil {
		return nil, fmt.Errorf("extraction.state_retention: %w", err)
	}

	cfg := &Config{
		Port:              firstNonZero(raw.Server.Port, envOrDefaultInt("PORT", 8080)),
		LogLevel:          strings.ToLower(firstNonEmpty(raw.Logging.Level, envOrDefault("LOG_LEVEL", "info"))),
		LogFormat:         strings.ToLower(firstNonEmpty(raw.Logging.Format, envOrDefault("LOG_FORMAT", "json"))),
		WrikeBaseURL:      strings.TrimRight(firstNonEmpty(raw.Wrike.BaseURL, envOrDefault("WRIKE_BASE_URL", DefaultWrikeBaseURL)), "/"),
		RequestTimeout:    requestTimeout,
		ExtractionTimeout: extractionTimeout,
		StaticDir:         firstNonEmpty(raw.Extraction.StaticDir, os.Getenv("STATIC_DIR")),
		StateRetention:    stateRetention,
		RedisURL:          firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		QueuePrefix:       firstNonEmpty(raw.Redis.QueuePrefix, envOrDefault("QUEUE_PREFIX", "airdrop")),
		DatabaseURL:       firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
