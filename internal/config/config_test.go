package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Database.Port != "5432" {
		t.Errorf("Database.Port = %q, want 5432", cfg.Database.Port)
	}
	if len(cfg.Elasticsearch.Addresses) != 1 || cfg.Elasticsearch.Addresses[0] != "http://localhost:9200" {
		t.Errorf("Elasticsearch.Addresses = %v, want [http://localhost:9200]", cfg.Elasticsearch.Addresses)
	}
	if cfg.Collector.BaseURL != "http://localhost:8888" {
		t.Errorf("Collector.BaseURL = %q, want http://localhost:8888", cfg.Collector.BaseURL)
	}
	if cfg.Sync.MaxRepeatFailures != 5 {
		t.Errorf("Sync.MaxRepeatFailures = %d, want 5", cfg.Sync.MaxRepeatFailures)
	}
	if cfg.Sync.RunInterval != 5*time.Minute {
		t.Errorf("Sync.RunInterval = %v, want 5m", cfg.Sync.RunInterval)
	}
	if cfg.Sync.CleanupSchedule != "0 2 * * *" {
		t.Errorf("Sync.CleanupSchedule = %q, want '0 2 * * *'", cfg.Sync.CleanupSchedule)
	}
	if cfg.Elasticsearch.ChunkSize != 1000 || cfg.Elasticsearch.ChunkOverlap != 20 {
		t.Errorf("chunking = %d/%d, want 1000/20", cfg.Elasticsearch.ChunkSize, cfg.Elasticsearch.ChunkOverlap)
	}
	if cfg.Storage.DocumentsDir != "storage/documents" {
		t.Errorf("Storage.DocumentsDir = %q, want storage/documents", cfg.Storage.DocumentsDir)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("database.host", "db.internal")
	v.Set("database.password", "secret")
	v.Set("collector.timeout", "90s")
	v.Set("sync.max_repeat_failures", 3)
	v.Set("redis.enabled", true)
	v.Set("redis.addr", "cache.internal:6379")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Database.Password != "secret" {
		t.Errorf("Database.Password = %q, want secret", cfg.Database.Password)
	}
	if cfg.Collector.Timeout != 90*time.Second {
		t.Errorf("Collector.Timeout = %v, want 90s", cfg.Collector.Timeout)
	}
	if cfg.Sync.MaxRepeatFailures != 3 {
		t.Errorf("Sync.MaxRepeatFailures = %d, want 3", cfg.Sync.MaxRepeatFailures)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache.internal:6379" {
		t.Errorf("Redis = %v/%q, want enabled at cache.internal:6379", cfg.Redis.Enabled, cfg.Redis.Addr)
	}

	// Untouched sections still get defaults.
	if cfg.Embedder.Model != "nomic-embed-text" {
		t.Errorf("Embedder.Model = %q, want nomic-embed-text", cfg.Embedder.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing embedder model",
			mutate:  func(c *Config) { c.Embedder.Model = "" },
			wantErr: "embedder.model",
		},
		{
			name:    "negative dimensions",
			mutate:  func(c *Config) { c.Embedder.Dimensions = -1 },
			wantErr: "embedder.dimensions",
		},
		{
			name: "redis enabled without addr",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{
			name: "overlap larger than chunk",
			mutate: func(c *Config) {
				c.Elasticsearch.ChunkSize = 100
				c.Elasticsearch.ChunkOverlap = 200
			},
			wantErr: "elasticsearch.chunk_overlap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			setDefaults(&cfg)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error type = %T, want *ValidationError", err)
			}
			if vErr.Field != tt.wantErr {
				t.Errorf("ValidationError.Field = %q, want %q", vErr.Field, tt.wantErr)
			}
		})
	}
}
