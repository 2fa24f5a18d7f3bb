// Package cmd wires the CLI commands to the pipeline components.
package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/logging"
)

type contextKey string

const configContextKey contextKey = "config"

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCommand().Run(context.Background(), os.Args)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "tablescout",
		Usage: "Ask natural-language questions against a SQL schema catalog",
		Description: `tablescout normalizes a repository of table schema definitions into a
catalog, embeds each table into a vector index, and answers natural-language
questions by retrieving the most relevant tables, authoring a SELECT
statement with an LLM, validating it, and executing it read-only.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "override the catalog file path",
			},
		},
		Commands: []*cli.Command{
			SyncCommand(),
			IndexCommand(),
			QueryCommand(),
			ServeCommand(),
			ConfigCommand(),
			StatsCommand(),
		},
	}
}

// getConfigFromContext returns a config injected into the context, which
// tests use to bypass file and environment loading.
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configContextKey).(*config.Config); ok {
		return cfg
	}

	return nil
}

// resolveConfig returns the active configuration: the context-injected one
// when present, otherwise loaded from file/env with the root flags applied.
// The logger is initialized as a side effect.
func resolveConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	if cfg := getConfigFromContext(ctx); cfg != nil {
		return cfg, nil
	}

	cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
		"log-level": cmd.String("log-level"),
		"catalog":   cmd.String("catalog"),
	})
	if err != nil {
		logging.SetupFallbackLogger()
		return nil, err
	}

	cfg.ExpandAllPaths()

	if err := cfg.EnsureDirectories(); err != nil {
		logging.SetupFallbackLogger()
		return nil, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.WithError(err).Warn("Falling back to default logger")
	}

	return cfg, nil
}
