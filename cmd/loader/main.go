package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/api"
	"github.com/omics-warehouse-loader/internal/config"
	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/loader"
	"github.com/omics-warehouse-loader/internal/metrics"
	"github.com/omics-warehouse-loader/internal/reconcile"
	"github.com/omics-warehouse-loader/internal/registry"
	"github.com/omics-warehouse-loader/internal/resolve"
	"github.com/omics-warehouse-loader/internal/store"
	"github.com/omics-warehouse-loader/pkg/resolverapi"
)

func main() {
	configFile := flag.String("config", "", "path to the configuration file")
	dataDir := flag.String("data", "", "data directory to load (overrides configuration)")
	serve := flag.Bool("serve", false, "keep the status server running after the batch")
	matrixFile := flag.String("matrix", "", "load a single gene-keyed matrix file instead of a batch")
	matrixKey := flag.String("matrix-key", "depmap_id", "row-key column name of the matrix file")
	matrixAttribute := flag.String("matrix-attribute", "value", "attribute name for matrix cells")
	matrixPrimary := flag.Bool("matrix-primary", false, "matrix column IDs are primary (NCBI) identifiers")
	flag.Parse()

	// Load configuration
	configManager, err := config.NewManager(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := newLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	warehouse, err := newWarehouse(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open warehouse: %v", err)
	}
	defer warehouse.Close()

	resolverClient, err := newResolverClient(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create resolver client: %v", err)
	}
	defer resolverClient.Close()

	taxonID, _ := cfg.TaxonID()
	resolver := resolve.NewGeneResolver(taxonID, resolverClient,
		resolve.NewEntityCache[*domain.Gene](), logger)

	m := metrics.New(nil)
	batch := loader.New(
		registry.NewAssembler(logger),
		reconcile.NewReconciler(resolver, logger),
		resolver,
		warehouse,
		m,
		cfg.Files,
		logger,
	)

	if *matrixFile != "" {
		spec := reconcile.MatrixSpec{
			HeaderStart:   *matrixKey,
			Attribute:     *matrixAttribute,
			IDsArePrimary: *matrixPrimary,
		}
		if _, err := batch.LoadMatrix(ctx, *matrixFile, spec); err != nil {
			logger.Fatalf("Matrix load failed: %v", err)
		}
		if err := resolver.Flush(ctx, warehouse); err != nil {
			logger.Fatalf("Flushing genes failed: %v", err)
		}
		return
	}

	if _, err := batch.Run(ctx, cfg.DataDir); err != nil {
		logger.Fatalf("Batch run failed: %v", err)
	}

	if cfg.Server.Enabled || *serve {
		server := api.NewServer(cfg.Server, batch, nil, logger)
		if err := server.Start(ctx); err != nil {
			logger.Fatalf("Status server failed: %v", err)
		}
	}

	logger.Info("Loader finished")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// newWarehouse opens the configured warehouse backend.
func newWarehouse(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (domain.Warehouse, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.SQLitePath)
	default:
		if cfg.Store.MigrationsPath != "" {
			runner, err := store.NewMigrationRunner(store.PostgresURL(cfg.Database), cfg.Store.MigrationsPath, logger)
			if err != nil {
				return nil, err
			}
			if err := runner.Up(); err != nil {
				runner.Close()
				return nil, err
			}
			runner.Close()
		}
		return store.NewPostgresStore(ctx, cfg.Database, logger)
	}
}

// newResolverClient builds the external resolver client, with the Redis warm
// tier attached when the cache is enabled.
func newResolverClient(cfg *domain.Config, logger *logrus.Logger) (*resolverapi.Client, error) {
	clientConfig := resolverapi.Config{
		BaseURL:   cfg.Resolver.BaseURL,
		Timeout:   cfg.Resolver.Timeout,
		RateLimit: cfg.Resolver.RateLimit,
		CacheSize: cfg.Resolver.CacheSize,
	}
	if cfg.Cache.Enabled {
		clientConfig.RedisURL = cfg.Cache.RedisURL
		clientConfig.RedisTTL = cfg.Cache.TTL
	}
	return resolverapi.NewClient(clientConfig, logger)
}
