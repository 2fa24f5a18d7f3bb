// Package source fetches the schema repository the catalog is built from.
package source

import (
	"context"
	"os"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
)

// Fetcher materializes the schema source on local disk and returns the
// directory holding it. Local sources are returned as-is; remote sources are
// synced into the configured work directory.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// NewFetcher selects a fetcher for the configured source mode.
func NewFetcher(cfg config.SourceConfig) (Fetcher, error) {
	switch cfg.Mode {
	case "local":
		return &LocalFetcher{Dir: cfg.Location}, nil
	case "git":
		return &GitFetcher{RemoteURL: cfg.Location, WorkDir: cfg.WorkDir}, nil
	case "github":
		return NewGitHubFetcher(cfg)
	default:
		return nil, errors.Newf(errors.ErrTypeConfiguration,
			"unsupported source mode: %s (supported: local, git, github)", cfg.Mode)
	}
}

// LocalFetcher serves a directory that already exists on disk.
type LocalFetcher struct {
	Dir string
}

// Fetch verifies the directory exists and returns it unchanged.
func (f *LocalFetcher) Fetch(_ context.Context) (string, error) {
	info, err := os.Stat(f.Dir)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeSourceFetch,
			"source directory %s is not accessible", f.Dir)
	}

	if !info.IsDir() {
		return "", errors.Newf(errors.ErrTypeSourceFetch, "source location %s is not a directory", f.Dir)
	}

	return f.Dir, nil
}
