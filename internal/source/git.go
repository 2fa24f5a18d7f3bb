package source

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
)

// GitFetcher syncs a git remote with clone-or-pull semantics: the first fetch
// clones into the work directory, later fetches fast-forward it.
type GitFetcher struct {
	RemoteURL string
	WorkDir   string
}

// Fetch returns the checkout directory after syncing it.
func (f *GitFetcher) Fetch(ctx context.Context) (string, error) {
	if f.RemoteURL == "" {
		return "", errors.New(errors.ErrTypeConfiguration, "git source requires a remote URL")
	}

	checkout := filepath.Join(f.WorkDir, repoDirName(f.RemoteURL))

	if _, err := os.Stat(filepath.Join(checkout, ".git")); err == nil {
		logging.WithField("dir", checkout).Debug("Pulling schema repository")

		if err := runGit(ctx, "", "-C", checkout, "pull", "--ff-only"); err != nil {
			return "", err
		}

		return checkout, nil
	}

	if err := os.MkdirAll(f.WorkDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeSourceFetch, "failed to create work directory")
	}

	logging.WithField("url", f.RemoteURL).Info("Cloning schema repository")

	if err := runGit(ctx, "", "clone", "--depth", "1", f.RemoteURL, checkout); err != nil {
		return "", err
	}

	return checkout, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeSourceFetch,
			"git %s failed: %s", args[0], strings.TrimSpace(string(output)))
	}

	return nil
}

// repoDirName derives a stable directory name from a git URL.
func repoDirName(remoteURL string) string {
	name := strings.TrimSuffix(path.Base(strings.TrimSuffix(remoteURL, "/")), ".git")
	if name == "" || name == "." {
		return "source"
	}

	return name
}
