// Package config provides configuration management for the docwatch service.
// Values come from a YAML config file with environment variable overrides,
// loaded through Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultDBHost  = "localhost"
	defaultDBPort  = "5432"
	defaultDBUser  = "postgres"
	defaultDBName  = "docwatch"
	defaultSSLMode = "disable"

	defaultESAddress    = "http://localhost:9200"
	defaultIndexPrefix  = "docwatch"
	defaultVectorChunk  = 1000
	defaultChunkOverlap = 20

	defaultCollectorBaseURL = "http://localhost:8888"
	defaultCollectorTimeout = 60 * time.Second

	defaultEmbedderBaseURL    = "http://localhost:11434/v1"
	defaultEmbedderModel      = "nomic-embed-text"
	defaultEmbedderDimensions = 768
	defaultEmbedderTimeout    = 30 * time.Second

	defaultRedisAddr = "localhost:6379"
	defaultCacheTTL  = 24 * time.Hour

	defaultDocumentsDir = "storage/documents"

	defaultMaxRepeatFailures = 5
	defaultRunInterval       = 5 * time.Minute
	defaultCleanupSchedule   = "0 2 * * *"

	defaultServerAddress = ":8090"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 15 * time.Second
	defaultIdleTimeout   = 60 * time.Second

	defaultLogLevel  = "info"
	defaultLogFormat = "json"
)

// Config represents the application configuration.
type Config struct {
	Logging       LoggingConfig       `mapstructure:"logging"       yaml:"logging"`
	Database      DatabaseConfig      `mapstructure:"database"      yaml:"database"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch" yaml:"elasticsearch"`
	Collector     CollectorConfig     `mapstructure:"collector"     yaml:"collector"`
	Embedder      EmbedderConfig      `mapstructure:"embedder"      yaml:"embedder"`
	Redis         RedisConfig         `mapstructure:"redis"         yaml:"redis"`
	Storage       StorageConfig       `mapstructure:"storage"       yaml:"storage"`
	Sync          SyncConfig          `mapstructure:"sync"          yaml:"sync"`
	Server        ServerConfig        `mapstructure:"server"        yaml:"server"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DatabaseConfig holds PostgreSQL configuration for the document store.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     string `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname"   yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode"  yaml:"sslmode"`
}

// ElasticsearchConfig holds vector index configuration.
type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"     yaml:"addresses"`
	Username     string   `mapstructure:"username"      yaml:"username"`
	Password     string   `mapstructure:"password"      yaml:"password"`
	APIKey       string   `mapstructure:"api_key"       yaml:"api_key"`
	IndexPrefix  string   `mapstructure:"index_prefix"  yaml:"index_prefix"`
	ChunkSize    int      `mapstructure:"chunk_size"    yaml:"chunk_size"`
	ChunkOverlap int      `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
}

// CollectorConfig holds configuration for the content collector API.
type CollectorConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key"  yaml:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// EmbedderConfig holds configuration for the embedding API.
type EmbedderConfig struct {
	BaseURL    string        `mapstructure:"base_url"   yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key"    yaml:"api_key"`
	Model      string        `mapstructure:"model"      yaml:"model"`
	Dimensions int           `mapstructure:"dimensions" yaml:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// RedisConfig holds configuration for the embedding cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Addr     string        `mapstructure:"addr"     yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db"       yaml:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// StorageConfig holds configuration for the on-disk document cache.
type StorageConfig struct {
	DocumentsDir string `mapstructure:"documents_dir" yaml:"documents_dir"`
}

// SyncConfig holds configuration for sync run behavior.
type SyncConfig struct {
	MaxRepeatFailures int           `mapstructure:"max_repeat_failures" yaml:"max_repeat_failures"`
	MaxDocuments      int           `mapstructure:"max_documents"       yaml:"max_documents"`
	RunInterval       time.Duration `mapstructure:"run_interval"        yaml:"run_interval"`
	CleanupSchedule   string        `mapstructure:"cleanup_schedule"    yaml:"cleanup_schedule"`
}

// ServerConfig holds HTTP server configuration for the serve daemon.
type ServerConfig struct {
	Address      string        `mapstructure:"address"       yaml:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"  yaml:"idle_timeout"`
}

// Load unmarshals the configuration from Viper, applies defaults, and
// validates the result. Viper must already be initialized with config file
// and environment bindings.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies default values to unset fields.
func setDefaults(cfg *Config) {
	setLoggingDefaults(&cfg.Logging)
	setDatabaseDefaults(&cfg.Database)
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setCollectorDefaults(&cfg.Collector)
	setEmbedderDefaults(&cfg.Embedder)
	setRedisDefaults(&cfg.Redis)
	setStorageDefaults(&cfg.Storage)
	setSyncDefaults(&cfg.Sync)
	setServerDefaults(&cfg.Server)
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == "" {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.DBName == "" {
		d.DBName = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultSSLMode
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	if len(e.Addresses) == 0 {
		e.Addresses = []string{defaultESAddress}
	}
	if e.IndexPrefix == "" {
		e.IndexPrefix = defaultIndexPrefix
	}
	if e.ChunkSize == 0 {
		e.ChunkSize = defaultVectorChunk
	}
	if e.ChunkOverlap == 0 {
		e.ChunkOverlap = defaultChunkOverlap
	}
}

func setCollectorDefaults(c *CollectorConfig) {
	if c.BaseURL == "" {
		c.BaseURL = defaultCollectorBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultCollectorTimeout
	}
}

func setEmbedderDefaults(e *EmbedderConfig) {
	if e.BaseURL == "" {
		e.BaseURL = defaultEmbedderBaseURL
	}
	if e.Model == "" {
		e.Model = defaultEmbedderModel
	}
	if e.Dimensions == 0 {
		e.Dimensions = defaultEmbedderDimensions
	}
	if e.Timeout == 0 {
		e.Timeout = defaultEmbedderTimeout
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Addr == "" {
		r.Addr = defaultRedisAddr
	}
	if r.CacheTTL == 0 {
		r.CacheTTL = defaultCacheTTL
	}
}

func setStorageDefaults(s *StorageConfig) {
	if s.DocumentsDir == "" {
		s.DocumentsDir = defaultDocumentsDir
	}
}

func setSyncDefaults(s *SyncConfig) {
	if s.MaxRepeatFailures == 0 {
		s.MaxRepeatFailures = defaultMaxRepeatFailures
	}
	if s.RunInterval == 0 {
		s.RunInterval = defaultRunInterval
	}
	if s.CleanupSchedule == "" {
		s.CleanupSchedule = defaultCleanupSchedule
	}
}

func setServerDefaults(s *ServerConfig) {
	if s.Address == "" {
		s.Address = defaultServerAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = defaultIdleTimeout
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return &ValidationError{Field: "elasticsearch.addresses", Message: "is required"}
	}
	if c.Collector.BaseURL == "" {
		return &ValidationError{Field: "collector.base_url", Message: "is required"}
	}
	if c.Embedder.Model == "" {
		return &ValidationError{Field: "embedder.model", Message: "is required"}
	}
	if c.Embedder.Dimensions <= 0 {
		return &ValidationError{Field: "embedder.dimensions", Message: "must be positive"}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return &ValidationError{Field: "redis.addr", Message: "is required when redis.enabled is true"}
	}
	if c.Storage.DocumentsDir == "" {
		return &ValidationError{Field: "storage.documents_dir", Message: "is required"}
	}
	if c.Sync.MaxRepeatFailures <= 0 {
		return &ValidationError{Field: "sync.max_repeat_failures", Message: "must be positive"}
	}
	if c.Elasticsearch.ChunkOverlap >= c.Elasticsearch.ChunkSize {
		return &ValidationError{Field: "elasticsearch.chunk_overlap", Message: "must be smaller than chunk_size"}
	}
	return nil
}
