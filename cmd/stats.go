package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display catalog and index statistics",
		Description: `Show what the catalog holds and whether the vector index matches it.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}

			return runStats(ctx, cfg)
		},
	}
}

func runStats(ctx context.Context, cfg *config.Config) error {
	fmt.Println("Catalog")
	fmt.Println("=======")

	catalog, err := schema.ReadCatalog(cfg.Catalog.Path)
	if err != nil {
		fmt.Printf("  No catalog at %s (run 'tablescout sync')\n", cfg.Catalog.Path)
	} else {
		totalColumns := 0
		for _, table := range catalog.Schemas {
			totalColumns += len(table.Columns)
		}

		fmt.Printf("  Tables: %d\n", catalog.TotalTables)
		fmt.Printf("  Columns: %d\n", totalColumns)
		fmt.Printf("  Last Sync: %s\n", catalog.Timestamp.Format("2006-01-02 15:04:05"))
	}

	fmt.Println("\nVector Index")
	fmt.Println("============")

	store, err := vectorstore.NewClient(cfg.VectorStore)
	if err != nil {
		return err
	}

	exists, err := store.IndexExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		fmt.Printf("  Index %q does not exist (run 'tablescout index')\n", cfg.VectorStore.IndexName)
		return nil
	}

	stats, err := store.DescribeIndexStats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("  Index: %s\n", cfg.VectorStore.IndexName)
	fmt.Printf("  Records: %d\n", stats.TotalVectorCount)
	fmt.Printf("  Dimension: %d\n", stats.Dimension)

	if catalog != nil && stats.TotalVectorCount != catalog.TotalTables {
		fmt.Printf("\n  Index has %d records but the catalog has %d tables; run 'tablescout index'\n",
			stats.TotalVectorCount, catalog.TotalTables)
	}

	return nil
}
