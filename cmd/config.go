package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/config"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or bootstrap the configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Display the active configuration",
				Action: runConfigShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file location",
				Action: runConfigPath,
			},
			{
				Name:   "init",
				Usage:  "Write the active configuration to the config file",
				Action: runConfigInit,
			},
		},
	}
}

func runConfigShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := resolveConfig(ctx, cmd)
	if err != nil {
		return err
	}

	fmt.Println("Active Configuration:")
	fmt.Println()

	fmt.Println("Server:")
	fmt.Printf("  Port: %d\n", cfg.Server.Port)
	fmt.Printf("  Shutdown Timeout: %s\n", cfg.Server.ShutdownTimeout)

	fmt.Println("\nDatabase:")
	fmt.Printf("  Driver: %s\n", cfg.Database.Driver)
	fmt.Printf("  DSN: %s\n", cfg.Database.DSN)
	fmt.Printf("  Query Timeout: %s\n", cfg.Database.QueryTimeout)

	fmt.Println("\nEmbedding:")
	fmt.Printf("  Provider: %s\n", cfg.Embedding.Provider)
	fmt.Printf("  Model: %s\n", cfg.Embedding.Model)
	fmt.Printf("  Dimensions: %d\n", cfg.Embedding.Dimensions)

	fmt.Println("\nAuthoring:")
	fmt.Printf("  Provider: %s\n", cfg.Authoring.Provider)
	fmt.Printf("  Model: %s\n", cfg.Authoring.Model)

	fmt.Println("\nVector Store:")
	fmt.Printf("  Index: %s\n", cfg.VectorStore.IndexName)
	fmt.Printf("  Metric: %s\n", cfg.VectorStore.Metric)
	fmt.Printf("  Dimensions: %d\n", cfg.VectorStore.Dimensions)

	fmt.Println("\nSource:")
	fmt.Printf("  Mode: %s\n", cfg.Source.Mode)
	fmt.Printf("  Location: %s\n", cfg.Source.Location)
	fmt.Printf("  Schema Dir: %s\n", cfg.Source.SchemaDir)

	fmt.Println("\nCatalog:")
	fmt.Printf("  Path: %s\n", cfg.Catalog.Path)

	fmt.Println("\nRetrieval:")
	fmt.Printf("  Top K: %d\n", cfg.Retrieval.TopK)

	fmt.Println("\nIndexer:")
	fmt.Printf("  Batch Size: %d\n", cfg.Indexer.BatchSize)
	fmt.Printf("  Inter-Batch Delay: %s\n", cfg.Indexer.InterBatchDelay)
	fmt.Printf("  Workers: %d\n", cfg.Indexer.Workers)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.ObjectStore.Enabled {
		fmt.Println("\nObject Store:")
		fmt.Printf("  Endpoint: %s\n", cfg.ObjectStore.Endpoint)
		fmt.Printf("  Bucket: %s\n", cfg.ObjectStore.Bucket)
	}

	return nil
}

func runConfigPath(_ context.Context, _ *cli.Command) error {
	fmt.Println(config.GetConfigPath())

	return nil
}

func runConfigInit(ctx context.Context, cmd *cli.Command) error {
	cfg, err := resolveConfig(ctx, cmd)
	if err != nil {
		return err
	}

	if err := config.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", config.GetConfigPath())

	// Show what was written so secrets redaction is visible
	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err == nil {
		fmt.Println(string(encoded))
	}

	return nil
}
