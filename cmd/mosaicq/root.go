package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mosaic "github.com/scopedb/mosaic-go"
)

var (
	configPath string
	backend    string
	endpoint   string
	dsn        string
	logLevel   string

	config *mosaic.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mosaicq",
	Short:         "Query a local or remote database through a mosaic connector",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mosaic.LoadConfig(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("backend") {
			cfg.Backend = backend
		}
		if flags.Changed("endpoint") {
			cfg.Endpoint = endpoint
		}
		if flags.Changed("dsn") {
			cfg.DSN = dsn
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		l, err := mosaic.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		config, logger = cfg, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a config file")
	flags.StringVar(&backend, "backend", "", "connector backend: local or remote")
	flags.StringVar(&endpoint, "endpoint", "", "endpoint of the remote database service")
	flags.StringVar(&dsn, "dsn", "", "data source name of the embedded engine")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(queryCmd, execCmd, loadCmd, serveCmd)
}

// openCoordinator binds a connector built from the loaded config. The returned
// function closes the connector.
func openCoordinator(ctx context.Context, reg prometheus.Registerer) (*mosaic.Coordinator, func(), error) {
	opts := []mosaic.Option{mosaic.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, mosaic.WithMetrics(mosaic.NewMetrics(reg)))
	}
	conn, err := mosaic.NewConnector(ctx, config, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s connector: %w", config.Backend, err)
	}

	coord := mosaic.NewCoordinator(
		mosaic.WithCoordinatorLogger(logger),
		mosaic.WithResultCache(config.CacheSize, config.CacheTTL),
	)
	coord.DatabaseConnector(conn)
	return coord, func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close connector", zap.Error(err))
		}
	}, nil
}
