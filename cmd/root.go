// Package cmd implements the command-line interface for docwatch.
// It provides the root command and subcommands for running sync passes,
// managing the watch queue, and operating the sync daemon.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// version can be set at build time via -ldflags.
	version = "dev"

	// rootCmd represents the root command for the docwatch CLI.
	rootCmd = &cobra.Command{
		Use:   "docwatch",
		Short: "Keep watched knowledge-store documents in sync with their sources",
		Long: `docwatch periodically re-fetches watched documents from their upstream
sources, rebuilds their vector embeddings when content changes, and
propagates updated content to every workspace that shares the document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early so --config and --debug are visible to initConfig
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("docwatch version %s\n", version)
		},
	})

	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newUnwatchCommand())
	rootCmd.AddCommand(newQueueCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newCleanupCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Environment variables take precedence over the config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional; defaults and environment variables cover
	// the rest
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := bindAppEnvVars(); err != nil {
		return err
	}
	if err := bindDatabaseEnvVars(); err != nil {
		return err
	}
	if err := bindElasticsearchEnvVars(); err != nil {
		return err
	}
	if err := bindServiceEnvVars(); err != nil {
		return err
	}

	if debug {
		viper.Set("logging.level", "debug")
	}

	return nil
}

// bindAppEnvVars binds logging environment variables to config keys.
func bindAppEnvVars() error {
	if err := viper.BindEnv("logging.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	if err := viper.BindEnv("logging.format", "LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind LOG_FORMAT: %w", err)
	}
	return nil
}

// bindDatabaseEnvVars binds PostgreSQL environment variables to config keys.
func bindDatabaseEnvVars() error {
	if err := viper.BindEnv("database.host", "POSTGRES_HOST"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_HOST: %w", err)
	}
	if err := viper.BindEnv("database.port", "POSTGRES_PORT"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_PORT: %w", err)
	}
	if err := viper.BindEnv("database.user", "POSTGRES_USER"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_USER: %w", err)
	}
	if err := viper.BindEnv("database.password", "POSTGRES_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_PASSWORD: %w", err)
	}
	if err := viper.BindEnv("database.dbname", "POSTGRES_DB"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_DB: %w", err)
	}
	if err := viper.BindEnv("database.sslmode", "POSTGRES_SSLMODE"); err != nil {
		return fmt.Errorf("failed to bind POSTGRES_SSLMODE: %w", err)
	}
	return nil
}

// bindElasticsearchEnvVars binds Elasticsearch environment variables to
// config keys.
func bindElasticsearchEnvVars() error {
	// Support both ELASTICSEARCH_HOSTS and ELASTICSEARCH_ADDRESSES
	if err := viper.BindEnv("elasticsearch.addresses", "ELASTICSEARCH_HOSTS", "ELASTICSEARCH_ADDRESSES"); err != nil {
		return fmt.Errorf("failed to bind Elasticsearch addresses: %w", err)
	}
	if err := viper.BindEnv("elasticsearch.password", "ELASTIC_PASSWORD", "ELASTICSEARCH_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind Elasticsearch password: %w", err)
	}
	if err := viper.BindEnv("elasticsearch.api_key", "ELASTICSEARCH_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind Elasticsearch API key: %w", err)
	}
	if err := viper.BindEnv("elasticsearch.index_prefix", "ELASTICSEARCH_INDEX_PREFIX"); err != nil {
		return fmt.Errorf("failed to bind Elasticsearch index prefix: %w", err)
	}
	return nil
}

// bindServiceEnvVars binds collector, embedder, Redis, and storage
// environment variables to config keys.
func bindServiceEnvVars() error {
	if err := viper.BindEnv("collector.base_url", "COLLECTOR_BASE_URL"); err != nil {
		return fmt.Errorf("failed to bind COLLECTOR_BASE_URL: %w", err)
	}
	if err := viper.BindEnv("collector.api_key", "COLLECTOR_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind COLLECTOR_API_KEY: %w", err)
	}
	if err := viper.BindEnv("embedder.base_url", "EMBEDDER_BASE_URL"); err != nil {
		return fmt.Errorf("failed to bind EMBEDDER_BASE_URL: %w", err)
	}
	if err := viper.BindEnv("embedder.api_key", "EMBEDDER_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind EMBEDDER_API_KEY: %w", err)
	}
	if err := viper.BindEnv("redis.addr", "REDIS_ADDR"); err != nil {
		return fmt.Errorf("failed to bind REDIS_ADDR: %w", err)
	}
	if err := viper.BindEnv("redis.password", "REDIS_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind REDIS_PASSWORD: %w", err)
	}
	if err := viper.BindEnv("storage.documents_dir", "DOCUMENTS_DIR"); err != nil {
		return fmt.Errorf("failed to bind DOCUMENTS_DIR: %w", err)
	}
	return nil
}
