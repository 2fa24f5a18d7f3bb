package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
)

// RESTClientInterface is the slice of the go-gh REST client the fetcher uses
type RESTClientInterface interface {
	Get(path string, resp interface{}) error
}

// GitHubFetcher downloads schema files through the GitHub contents API using
// existing GitHub CLI authentication. It avoids a full clone when only the
// schema and docs directories are needed.
type GitHubFetcher struct {
	apiClient RESTClientInterface
	repo      string
	workDir   string
	dirs      []string
}

type contentEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// NewGitHubFetcher creates a fetcher for an "owner/repo" location.
func NewGitHubFetcher(cfg config.SourceConfig) (*GitHubFetcher, error) {
	if !strings.Contains(cfg.Location, "/") {
		return nil, errors.Newf(errors.ErrTypeConfiguration,
			"github source location must be owner/repo, got %q", cfg.Location)
	}

	client, err := api.DefaultRESTClient()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSourceFetch, "failed to create GitHub API client")
	}

	return &GitHubFetcher{
		apiClient: client,
		repo:      cfg.Location,
		workDir:   cfg.WorkDir,
		dirs:      sourceDirs(cfg),
	}, nil
}

// NewGitHubFetcherWithClient injects a REST client, primarily for tests
func NewGitHubFetcherWithClient(client RESTClientInterface, cfg config.SourceConfig) *GitHubFetcher {
	return &GitHubFetcher{
		apiClient: client,
		repo:      cfg.Location,
		workDir:   cfg.WorkDir,
		dirs:      sourceDirs(cfg),
	}
}

// Fetch mirrors the schema and docs directories into the work directory and
// returns it. Directories missing upstream are skipped.
func (f *GitHubFetcher) Fetch(ctx context.Context) (string, error) {
	target := filepath.Join(f.workDir, filepath.Base(f.repo))

	for _, dir := range f.dirs {
		if err := f.mirrorDir(ctx, dir, target); err != nil {
			return "", err
		}
	}

	return target, nil
}

func (f *GitHubFetcher) mirrorDir(ctx context.Context, dir, target string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var entries []contentEntry

	err := f.apiClient.Get(fmt.Sprintf("repos/%s/contents/%s", f.repo, dir), &entries)
	if err != nil {
		if httpErr, ok := err.(*api.HTTPError); ok && httpErr.StatusCode == http.StatusNotFound {
			logging.WithField("dir", dir).Debug("Directory not present upstream, skipping")
			return nil
		}

		return errors.Wrapf(err, errors.ErrTypeSourceFetch, "failed to list %s in %s", dir, f.repo)
	}

	if err := os.MkdirAll(filepath.Join(target, dir), 0755); err != nil {
		return errors.Wrap(err, errors.ErrTypeSourceFetch, "failed to create work directory")
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if entry.Type != "file" {
			continue
		}

		if err := f.downloadFile(entry.Path, target); err != nil {
			return err
		}
	}

	return nil
}

func (f *GitHubFetcher) downloadFile(filePath, target string) error {
	var file contentEntry

	err := f.apiClient.Get(fmt.Sprintf("repos/%s/contents/%s", f.repo, filePath), &file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeSourceFetch, "failed to fetch %s", filePath)
	}

	data := []byte(file.Content)

	if file.Encoding == "base64" {
		data, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeSourceFetch, "failed to decode %s", filePath)
		}
	}

	dest := filepath.Join(target, filepath.FromSlash(filePath))

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrTypeSourceFetch, "failed to write %s", dest)
	}

	return nil
}

func sourceDirs(cfg config.SourceConfig) []string {
	dirs := []string{cfg.SchemaDir}

	if cfg.DocsDir != "" && cfg.DocsDir != cfg.SchemaDir {
		dirs = append(dirs, cfg.DocsDir)
	}

	return dirs
}
