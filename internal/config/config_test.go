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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoad_Defaults verifies an environment-only load with no config file.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WrikeBaseURL != DefaultWrikeBaseURL {
		t.Errorf("WrikeBaseURL = %q", cfg.WrikeBaseURL)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.QueuePrefix != "airdrop" {
		t.Errorf("QueuePrefix = %q", cfg.QueuePrefix)
	}
	if cfg.StateRetention != DefaultStateRetention {
		t.Errorf("StateRetention = %v, want %v", cfg.StateRetention, DefaultStateRetention)
	}
}

// TestLoad_StateRetention verifies the YAML value wins over the
// environment and that zero is accepted.
func TestLoad_StateRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("extraction:\n  state_retention: 0s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("STATE_RETENTION", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StateRetention != 0 {
		t.Errorf("StateRetention = %v, want 0", cfg.StateRetention)
	}

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StateRetention != 48*time.Hour {
		t.Errorf("StateRetention = %v, want 48h", cfg.StateRetention)
	}
}

// TestLoad_YAMLWithEnvExpansion verifies ${VAR} expansion and YAML precedence.
func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
logging:
  level: DEBUG
wrike:
  base_url: ${TEST_WRIKE_URL}/
  request_timeout: 5s
extraction:
  timeout: 2m
  static_dir: /opt/static
redis:
  url: redis://localhost:6379/1
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("TEST_WRIKE_URL", "http://wrike.local/api/v4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.WrikeBaseURL != "http://wrike.local/api/v4" {
		t.Errorf("WrikeBaseURL = %q", cfg.WrikeBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.ExtractionTimeout != 2*time.Minute {
		t.Errorf("timeouts = %v / %v", cfg.RequestTimeout, cfg.ExtractionTimeout)
	}
	if cfg.StaticDir != "/opt/static" || cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("StaticDir/RedisURL = %q / %q", cfg.StaticDir, cfg.RedisURL)
	}
}

// TestLoad_InvalidYAML verifies parse errors surface.
func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

// TestValidate verifies struct-tag validation.
func TestValidate(t *testing.T) {
	cfg := &Config{
		Port:              8080,
		LogLevel:          "verbose",
		LogFormat:         "json",
		WrikeBaseURL:      "not a url",
		RequestTimeout:    time.Second,
		ExtractionTimeout: time.Second,
		QueuePrefix:       "airdrop",
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "LogLevel") || !strings.Contains(err.Error(), "WrikeBaseURL") {
		t.Errorf("error should name the bad fields: %v", err)
	}
}
