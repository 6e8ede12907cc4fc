package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("Expected 15m cache TTL, got %s", cfg.Cache.TTL)
	}
	if cfg.Cache.StaleCeiling != 24*time.Hour {
		t.Errorf("Expected 24h stale ceiling, got %s", cfg.Cache.StaleCeiling)
	}
	if cfg.Cache.SnapshotPrefix != "cloudquote/" {
		t.Errorf("Expected cloudquote/ snapshot prefix, got %q", cfg.Cache.SnapshotPrefix)
	}
	if cfg.Fetch.Timeout != 4*time.Second {
		t.Errorf("Expected 4s fetch timeout, got %s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.AWSRegion != "us-east-1" || cfg.Fetch.AzureRegion != "uksouth" || cfg.Fetch.GCPRegion != "us-central1" {
		t.Errorf("Unexpected default regions: %s / %s / %s",
			cfg.Fetch.AWSRegion, cfg.Fetch.AzureRegion, cfg.Fetch.GCPRegion)
	}
	if cfg.Compare.Timeout != 10*time.Second {
		t.Errorf("Expected 10s compare timeout, got %s", cfg.Compare.Timeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 1<<20 {
		t.Errorf("Expected 1MiB body cap, got %d", cfg.Server.MaxBodyBytes)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("Expected wildcard CORS default, got %v", cfg.Server.CORSOrigins)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.Cache.TTL = 0 },
			wantErr: "cache.ttl",
		},
		{
			name:    "ceiling below ttl",
			mutate:  func(c *Config) { c.Cache.StaleCeiling = time.Minute },
			wantErr: "stale_ceiling",
		},
		{
			name: "two snapshot stores",
			mutate: func(c *Config) {
				c.Cache.SnapshotDir = "/tmp/snap"
				c.Cache.SnapshotBucket = "quotes"
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(c *Config) { c.Fetch.Timeout = 0 },
			wantErr: "fetch.timeout",
		},
		{
			name:    "negative compare timeout",
			mutate:  func(c *Config) { c.Compare.Timeout = -time.Second },
			wantErr: "compare.timeout",
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "out of range",
		},
		{
			name:    "zero body cap",
			mutate:  func(c *Config) { c.Server.MaxBodyBytes = 0 },
			wantErr: "max_body_bytes",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected a validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadExplicitFile(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	path := filepath.Join(t.TempDir(), "cloudquote.yaml")
	content := `
cache:
  ttl: 30m
  snapshot_dir: /var/lib/cloudquote
server:
  port: 9090
fetch:
  gcp_api_key: test-key
verbose: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 1. File values override defaults.
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Expected 30m TTL from file, got %s", cfg.Cache.TTL)
	}
	if cfg.Cache.SnapshotDir != "/var/lib/cloudquote" {
		t.Errorf("Expected snapshot dir from file, got %q", cfg.Cache.SnapshotDir)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Fetch.GCPAPIKey != "test-key" {
		t.Errorf("Expected api key from file, got %q", cfg.Fetch.GCPAPIKey)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose from file")
	}

	// 2. Untouched keys keep their defaults.
	if cfg.Cache.StaleCeiling != 24*time.Hour {
		t.Errorf("Expected default stale ceiling, got %s", cfg.Cache.StaleCeiling)
	}
	if cfg.Fetch.AWSRegion != "us-east-1" {
		t.Errorf("Expected default aws region, got %q", cfg.Fetch.AWSRegion)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected an error for a missing explicit config file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  ttl: -5m\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected a validation error")
	}
	if !strings.Contains(err.Error(), "cache.ttl") {
		t.Errorf("Expected cache.ttl in error, got %v", err)
	}
}
