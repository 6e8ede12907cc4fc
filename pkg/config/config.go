// Package config defines runtime configuration and its defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration. Flags, environment
// variables (CLOUDQUOTE_*) and ~/.cloudquote.yaml all land here.
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Fetch     FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
	Compare   CompareConfig   `mapstructure:"compare" yaml:"compare"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Verbose   bool            `mapstructure:"verbose" yaml:"verbose"`
}

// CacheConfig tunes price caching and snapshot persistence.
type CacheConfig struct {
	// TTL is how long a live quote is served before a refresh.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// StaleCeiling is how long an expired quote may be served when the
	// provider is unreachable.
	StaleCeiling time.Duration `mapstructure:"stale_ceiling" yaml:"stale_ceiling"`
	// SnapshotDir enables snapshot persistence on the local filesystem.
	SnapshotDir string `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`
	// SnapshotBucket enables snapshot persistence in S3 instead.
	SnapshotBucket string `mapstructure:"snapshot_bucket" yaml:"snapshot_bucket"`
	// SnapshotPrefix namespaces keys inside the bucket.
	SnapshotPrefix string `mapstructure:"snapshot_prefix" yaml:"snapshot_prefix"`
}

// FetchConfig tunes the provider adapters.
type FetchConfig struct {
	// Timeout bounds a single upstream price lookup.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	AWSRegion  string `mapstructure:"aws_region" yaml:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile"`
	// AWSEndpoint overrides the Price List endpoint, mainly for tests.
	AWSEndpoint string `mapstructure:"aws_endpoint" yaml:"aws_endpoint"`

	AzureRegion  string `mapstructure:"azure_region" yaml:"azure_region"`
	AzureBaseURL string `mapstructure:"azure_base_url" yaml:"azure_base_url"`

	GCPRegion  string `mapstructure:"gcp_region" yaml:"gcp_region"`
	GCPBaseURL string `mapstructure:"gcp_base_url" yaml:"gcp_base_url"`
	// GCPAPIKey authenticates against the Cloud Billing Catalog. Live
	// GCP pricing is skipped when empty.
	GCPAPIKey string `mapstructure:"gcp_api_key" yaml:"gcp_api_key"`
}

// CompareConfig tunes cross-provider comparison.
type CompareConfig struct {
	// Timeout bounds the whole comparison. Past it, estimates are
	// recomputed from cached and static data only.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig tunes the HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies. Estimate payloads are tiny.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	// CORSOrigins lists allowed origins. "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// TelemetryConfig tunes tracing export.
type TelemetryConfig struct {
	// Endpoint is an OTLP/HTTP collector address. Tracing is discarded
	// when empty.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Cache: CacheConfig{
			TTL:            15 * time.Minute,
			StaleCeiling:   24 * time.Hour,
			SnapshotPrefix: "cloudquote/",
		},
		Fetch: FetchConfig{
			Timeout:     4 * time.Second,
			AWSRegion:   "us-east-1",
			AzureRegion: "uksouth",
			GCPRegion:   "us-central1",
		},
		Compare: CompareConfig{
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
		},
	}
}

// Load resolves configuration from file and environment on top of the
// defaults. The file is optional.
func Load(cfgFile string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.stale_ceiling", cfg.Cache.StaleCeiling)
	v.SetDefault("cache.snapshot_prefix", cfg.Cache.SnapshotPrefix)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.aws_region", cfg.Fetch.AWSRegion)
	v.SetDefault("fetch.azure_region", cfg.Fetch.AzureRegion)
	v.SetDefault("fetch.gcp_region", cfg.Fetch.GCPRegion)
	v.SetDefault("compare.timeout", cfg.Compare.Timeout)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", cfg.Server.MaxBodyBytes)
	v.SetDefault("server.cors_origins", cfg.Server.CORSOrigins)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".cloudquote")
	}

	v.SetEnvPrefix("CLOUDQUOTE")
	v.AutomaticEnv()

	// GCP keys usually already live in this variable.
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		v.Set("fetch.gcp_api_key", key)
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.StaleCeiling < c.Cache.TTL {
		return fmt.Errorf("cache.stale_ceiling %s must not be below cache.ttl %s", c.Cache.StaleCeiling, c.Cache.TTL)
	}
	if c.Cache.SnapshotDir != "" && c.Cache.SnapshotBucket != "" {
		return fmt.Errorf("cache.snapshot_dir and cache.snapshot_bucket are mutually exclusive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Compare.Timeout <= 0 {
		return fmt.Errorf("compare.timeout must be positive, got %s", c.Compare.Timeout)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}
