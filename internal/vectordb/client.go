// Package vectordb maintains per-workspace vector indexes in Elasticsearch.
// Document content is chunked, embedded, and stored one chunk per index
// document so a rebuild can replace all chunks belonging to a source
// document in one pass.
package vectordb

import (
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
)

// ClientConfig holds connection settings for the Elasticsearch cluster.
type ClientConfig struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

// NewClient creates an Elasticsearch client and verifies the connection.
func NewClient(cfg ClientConfig) (*es.Client, error) {
	clientConfig := es.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}

	return client, nil
}
