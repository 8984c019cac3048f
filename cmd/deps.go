package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/jonesrussell/docwatch/internal/collector"
	"github.com/jonesrussell/docwatch/internal/config"
	"github.com/jonesrussell/docwatch/internal/database"
	"github.com/jonesrussell/docwatch/internal/doccache"
	"github.com/jonesrussell/docwatch/internal/logger"
	"github.com/jonesrussell/docwatch/internal/metrics"
	"github.com/jonesrussell/docwatch/internal/server"
	"github.com/jonesrussell/docwatch/internal/syncer"
	"github.com/jonesrussell/docwatch/internal/vectordb"
)

// commandDeps holds the dependencies shared by the CLI commands. Each
// command builds them after configuration has been initialized and closes
// them when done.
type commandDeps struct {
	Config *config.Config
	Logger logger.Logger

	DB         *sqlx.DB
	Queues     *database.QueueRepository
	Documents  *database.DocumentRepository
	Executions *database.ExecutionRepository

	Collector *collector.Client
	Cache     *doccache.Store

	esClient    *es.Client
	redisClient *redis.Client
}

// newCommandDeps loads the configuration and connects the dependencies
// every command needs. The vector store stack is connected separately by
// buildRunner since only sync commands touch Elasticsearch.
func newCommandDeps() (*commandDeps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &commandDeps{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Queues:     database.NewQueueRepository(db),
		Documents:  database.NewDocumentRepository(db),
		Executions: database.NewExecutionRepository(db),
		Collector: collector.NewClient(
			cfg.Collector.BaseURL,
			cfg.Collector.APIKey,
			&http.Client{Timeout: cfg.Collector.Timeout},
		),
		Cache: doccache.NewStore(cfg.Storage.DocumentsDir),
	}, nil
}

// Close releases the connections held by the deps.
func (d *commandDeps) Close() {
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.Logger.Error("Failed to close Redis client", logger.Error(err))
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Failed to close database connection", logger.Error(err))
	}
	_ = d.Logger.Sync()
}

// buildVectorStore connects Elasticsearch and the embedding stack.
func (d *commandDeps) buildVectorStore() (*vectordb.Store, error) {
	esClient, err := vectordb.NewClient(vectordb.ClientConfig{
		Addresses: d.Config.Elasticsearch.Addresses,
		Username:  d.Config.Elasticsearch.Username,
		Password:  d.Config.Elasticsearch.Password,
		APIKey:    d.Config.Elasticsearch.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	d.esClient = esClient

	var embedder vectordb.Embedder = vectordb.NewHTTPEmbedder(
		d.Config.Embedder.BaseURL,
		d.Config.Embedder.APIKey,
		d.Config.Embedder.Model,
		&http.Client{Timeout: d.Config.Embedder.Timeout},
	)

	if d.Config.Redis.Enabled {
		d.redisClient = redis.NewClient(&redis.Options{
			Addr:     d.Config.Redis.Addr,
			Password: d.Config.Redis.Password,
			DB:       d.Config.Redis.DB,
		})
		embedder = vectordb.NewCachedEmbedder(embedder, d.redisClient, d.Config.Redis.CacheTTL, d.Logger)
	}

	return vectordb.NewStore(vectordb.StoreParams{
		Client:       esClient,
		Embedder:     embedder,
		IndexPrefix:  d.Config.Elasticsearch.IndexPrefix,
		Dimensions:   d.Config.Embedder.Dimensions,
		ChunkSize:    d.Config.Elasticsearch.ChunkSize,
		ChunkOverlap: d.Config.Elasticsearch.ChunkOverlap,
		Logger:       d.Logger,
	}), nil
}

// buildRunner assembles the sync runner over the shared deps.
func (d *commandDeps) buildRunner(m *metrics.Metrics) (*syncer.Runner, error) {
	vectors, err := d.buildVectorStore()
	if err != nil {
		return nil, err
	}

	return syncer.NewRunner(syncer.RunnerParams{
		Queues:            d.Queues,
		Log:               d.Executions,
		Documents:         d.Documents,
		Fetcher:           d.Collector,
		Cache:             d.Cache,
		Vectors:           vectors,
		Metrics:           m,
		Logger:            d.Logger,
		MaxRepeatFailures: d.Config.Sync.MaxRepeatFailures,
	}), nil
}

// readinessChecks returns the dependency probes exposed on /ready.
// The Elasticsearch probe is present only after the vector store has been
// connected.
func (d *commandDeps) readinessChecks() []server.Check {
	checks := []server.Check{
		{
			Name: "postgres",
			Probe: func(ctx context.Context) error {
				return d.DB.PingContext(ctx)
			},
		},
		{
			Name: "collector",
			Probe: func(ctx context.Context) error {
				if !d.Collector.IsOnline(ctx) {
					return errors.New("collector API unreachable")
				}
				return nil
			},
		},
	}

	if d.esClient != nil {
		esClient := d.esClient
		checks = append(checks, server.Check{
			Name: "elasticsearch",
			Probe: func(ctx context.Context) error {
				res, err := esClient.Ping(esClient.Ping.WithContext(ctx))
				if err != nil {
					return err
				}
				defer res.Body.Close()
				if res.IsError() {
					return fmt.Errorf("ping returned %s", res.Status())
				}
				return nil
			},
		})
	}

	return checks
}
