package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/api"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/schema"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Run the HTTP API",
		Description: `Serve POST /query, GET /health, GET /tables, and GET /metrics until interrupted. Shutdown drains in-flight requests within the configured timeout.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "listen port",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}

			return runServe(ctx, cfg, int(cmd.Int("port")))
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, port int) error {
	if port <= 0 {
		port = cfg.Server.Port
	}

	p, closer, err := buildPipeline(cfg, cfg.Retrieval.TopK)
	if err != nil {
		return err
	}
	defer closer()

	handler := api.NewHandler(api.Dependencies{
		Pipeline: p,
		Catalog: func() (*schema.Catalog, error) {
			return schema.ReadCatalog(cfg.Catalog.Path)
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		logging.WithField("addr", server.Addr).Info("HTTP API listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("Shutting down")

	timeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
