package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mfenderov/filingflow/internal/archive"
	"github.com/mfenderov/filingflow/internal/config"
	"github.com/mfenderov/filingflow/internal/elasticsearch"
	"github.com/mfenderov/filingflow/internal/ingestion"
	"github.com/mfenderov/filingflow/internal/layout"
	"github.com/mfenderov/filingflow/internal/ledger"
	"github.com/mfenderov/filingflow/internal/metrics"
	"github.com/mfenderov/filingflow/internal/pipeline"
	"github.com/mfenderov/filingflow/internal/provider"
	"github.com/mfenderov/filingflow/internal/reorg"
	"github.com/mfenderov/filingflow/internal/storage"
)

func newESClient(cfg *config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	return client, nil
}

func newStorageClient(ctx context.Context, cfg *config.Config) (*storage.Client, error) {
	client, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	return client, nil
}

// newEngine builds the publishing engine from the enabled sinks. It returns
// nil when neither sink is enabled.
func newEngine(ctx context.Context, cfg *config.Config) (*ingestion.Engine, error) {
	var (
		indexer ingestion.Indexer
		mirror  ingestion.Mirror
	)

	if cfg.Elasticsearch.Enabled {
		es, err := newESClient(cfg)
		if err != nil {
			return nil, err
		}
		indexer = es
		slog.Info("search indexing enabled", "index", cfg.Elasticsearch.Index)
	}

	if cfg.Storage.Enabled {
		s3, err := newStorageClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mirror = s3
		slog.Info("object mirror enabled", "bucket", cfg.Storage.Bucket)
	}

	if indexer == nil && mirror == nil {
		return nil, nil
	}
	return ingestion.New(indexer, mirror, slog.Default()), nil
}

func openLedger(ctx context.Context, cfg *config.Config) (*ledger.Ledger, error) {
	if !cfg.Ledger.Enabled {
		return nil, nil
	}
	l, err := ledger.Open(ctx, cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", cfg.Ledger.Path, err)
	}
	return l, nil
}

func newTransformer(cfg *config.Config) *archive.Transformer {
	allocator := layout.New(cfg.Paths.OutputDir, nil, slog.Default())
	return archive.New(allocator, nil, cfg.Paths.ArchiveDir, slog.Default())
}

// app bundles the components a pipeline run needs. close releases the
// ledger.
type app struct {
	pipeline *pipeline.Pipeline
	ledger   *ledger.Ledger
}

func (a *app) close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
}

func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*app, error) {
	logger := slog.Default()

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	edgar := provider.NewEDGAR(provider.Config{
		BaseURL:   cfg.Provider.BaseURL,
		DataURL:   cfg.Provider.DataURL,
		UserAgent: cfg.Provider.UserAgent,
		Delay:     cfg.Provider.Delay,
		Timeout:   cfg.Provider.Timeout,
		Dir:       cfg.Paths.ProviderDir,
	}, logger)

	allocator := layout.New(cfg.Paths.OutputDir, nil, logger)
	pc := pipeline.Config{
		ProviderDir: cfg.Paths.ProviderDir,
		Provider:    edgar,
		Allocator:   allocator,
		Reorganizer: reorg.New(logger),
		Transformer: archive.New(allocator, nil, cfg.Paths.ArchiveDir, logger),
		Engine:      engine,
		Metrics:     metrics.New(reg),
		Logger:      logger,
	}
	if l != nil {
		pc.Ledger = l
	}

	p, err := pipeline.New(pc)
	if err != nil {
		if l != nil {
			l.Close()
		}
		return nil, err
	}
	return &app{pipeline: p, ledger: l}, nil
}
