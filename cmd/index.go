package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/catalogstore"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/embedding"
	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/indexer"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:        "index",
		Usage:       "Embed the catalog into the vector index",
		Description: `Read the catalog, provision the vector index when missing, and embed every table into it in rate-limited batches. Re-running fully overwrites existing records, so the command is safe to repeat.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "tables embedded per batch",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}

			return runIndex(ctx, cfg, int(cmd.Int("batch-size")))
		},
	}
}

func runIndex(ctx context.Context, cfg *config.Config, batchSize int) error {
	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	embedder, err := embedding.NewManager(cfg.Embedding)
	if err != nil {
		return err
	}

	store, err := vectorstore.NewClient(cfg.VectorStore)
	if err != nil {
		return err
	}

	opts := indexer.Options{
		BatchSize:       cfg.Indexer.BatchSize,
		InterBatchDelay: cfg.Indexer.Delay(),
		Workers:         cfg.Indexer.Workers,
	}
	if batchSize > 0 {
		opts.BatchSize = batchSize
	}

	builder := indexer.NewBuilder(embedder, store, cfg.VectorStore.Metric, opts)

	progress := newProgress("Provisioning vector index...")
	progress.Start()

	if err := builder.EnsureIndex(ctx); err != nil {
		progress.Stop()
		return err
	}

	progress.Suffix = fmt.Sprintf(" Indexing %d tables...", catalog.TotalTables)

	written, err := builder.Build(ctx, catalog.Schemas)

	progress.Stop()

	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d of %d tables into %q\n", written, catalog.TotalTables, cfg.VectorStore.IndexName)

	return nil
}

// loadCatalog reads the local catalog, falling back to the object-store
// mirror when the local copy is missing.
func loadCatalog(ctx context.Context, cfg *config.Config) (*schema.Catalog, error) {
	catalog, err := schema.ReadCatalog(cfg.Catalog.Path)
	if err == nil {
		return catalog, nil
	}

	if !cfg.ObjectStore.Enabled {
		return nil, err
	}

	logging.WithField("path", cfg.Catalog.Path).Info("Local catalog missing, trying object store")

	store, storeErr := catalogstore.New(ctx, cfg.ObjectStore)
	if storeErr != nil {
		return nil, storeErr
	}

	data, getErr := store.GetCatalog(ctx)
	if getErr != nil {
		return nil, errors.Wrap(getErr, errors.ErrTypeStorage,
			"catalog not found locally or in the object store")
	}

	if writeErr := os.WriteFile(cfg.Catalog.Path, data, 0644); writeErr != nil {
		return nil, errors.Wrap(writeErr, errors.ErrTypeStorage, "failed to write fetched catalog")
	}

	return schema.ReadCatalog(cfg.Catalog.Path)
}
