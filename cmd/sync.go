package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/catalogstore"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/source"
)

func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:        "sync",
		Usage:       "Fetch the schema source and rebuild the catalog",
		Description: `Fetch the configured schema repository (or read a local directory), normalize every recognized schema file into the catalog, and write the catalog to disk. When an object store is configured the catalog is mirrored there as well.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}

			return runSync(ctx, cfg)
		},
	}
}

func runSync(ctx context.Context, cfg *config.Config) error {
	fetcher, err := source.NewFetcher(cfg.Source)
	if err != nil {
		return err
	}

	progress := newProgress("Fetching schema source...")
	progress.Start()

	root, err := fetcher.Fetch(ctx)
	if err != nil {
		progress.Stop()
		return err
	}

	progress.Suffix = " Normalizing schemas..."

	schemaDir := filepath.Join(root, cfg.Source.SchemaDir)

	files, err := schema.DiscoverSourceFiles(schemaDir)
	if err != nil {
		progress.Stop()
		return err
	}

	docs := schema.LoadDocs(filepath.Join(root, cfg.Source.DocsDir))

	normalizer := schema.NewNormalizer(docs)
	schemas := normalizer.NormalizeFiles(files)

	if len(schemas) == 0 {
		progress.Stop()
		return errors.Newf(errors.ErrTypeSourceParse,
			"no recognizable schema definitions found in %s", schemaDir).
			WithSuggestion("Check the source mode and schema directory settings")
	}

	catalog, err := schema.WriteCatalog(cfg.Catalog.Path, schemas)
	if err != nil {
		progress.Stop()
		return err
	}

	if cfg.ObjectStore.Enabled {
		progress.Suffix = " Mirroring catalog to object store..."

		if err := mirrorCatalog(ctx, cfg); err != nil {
			progress.Stop()
			return err
		}
	}

	progress.Stop()

	fmt.Printf("Cataloged %d tables from %d source files\n", catalog.TotalTables, len(files))
	fmt.Printf("Catalog written to %s\n", cfg.Catalog.Path)

	return nil
}

func mirrorCatalog(ctx context.Context, cfg *config.Config) error {
	store, err := catalogstore.New(ctx, cfg.ObjectStore)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Catalog.Path)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to read catalog for upload")
	}

	if err := store.PutCatalog(ctx, data); err != nil {
		return err
	}

	logging.WithField("bucket", cfg.ObjectStore.Bucket).Info("Catalog mirrored to object store")

	return nil
}

// newProgress builds a terminal spinner used by the long-running commands
func newProgress(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	return s
}
