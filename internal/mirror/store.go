// Package mirror manages the directory of bare mirrors that back
// every configured logical repo, and the fetch that keeps a mirror's
// refs/heads/* authoritative before it's served.
package mirror

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/safareli/git-proxy/internal/gitexec"
)

// Store resolves logical repo names to bare-mirror paths under a root
// directory and bootstraps them on demand.
type Store struct {
	root string
}

// NewStore returns a Store rooted at reposDir.
func NewStore(reposDir string) *Store {
	return &Store{root: reposDir}
}

// Path returns the on-disk path of repoName's mirror. Logical names
// may contain "/" and are joined into a sub-path.
func (s *Store) Path(repoName string) string {
	return filepath.Join(s.root, repoName+".git")
}

// Exists reports whether repoName's mirror has already been
// bootstrapped.
func (s *Store) Exists(repoName string) bool {
	info, err := os.Stat(s.Path(repoName))
	return err == nil && info.IsDir()
}

// Bootstrap ensures repoName has a bare mirror with origin configured
// to upstream and fetch refspec +refs/heads/*:refs/heads/*, with
// http.receivepack enabled and the pre-receive hook installed
// pointing back at selfBinary. It is idempotent: re-running it against
// an already-bootstrapped mirror is a no-op beyond re-asserting config.
func (s *Store) Bootstrap(ctx context.Context, repoName, upstream, selfBinary string) error {
	path := s.Path(repoName)

	if !s.Exists(repoName) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errors.Wrapf(err, "mkdir mirror parent for %s", repoName)
		}
		inv := gitexec.New(filepath.Dir(path))
		if res, err := inv.Run(ctx, nil, "init", "--bare", path); err != nil || !res.Ok() {
			return gitFailure(err, res, "git init --bare")
		}
		logrus.WithField("repo", repoName).Info("bootstrapped bare mirror")
	}

	inv := gitexec.New(path)

	steps := [][]string{
		{"remote", "remove", "origin"},
		{"remote", "add", "origin", upstream},
		{"config", "remote.origin.fetch", "+refs/heads/*:refs/heads/*"},
		{"config", "http.receivepack", "true"},
		{"config", "receive.advertisePushOptions", "false"},
	}
	for i, args := range steps {
		res, err := inv.Run(ctx, nil, args...)
		if err != nil {
			return errors.Wrapf(err, "git %v", args)
		}
		// "remote remove origin" failing because origin doesn't exist yet
		// is expected on first bootstrap; every other step must succeed.
		if !res.Ok() && i != 0 {
			return gitFailure(nil, res, "git "+args[0])
		}
	}

	if err := installPreReceiveHook(path, repoName, selfBinary); err != nil {
		return errors.Wrapf(err, "install pre-receive hook for %s", repoName)
	}

	return nil
}

func gitFailure(err error, res gitexec.Result, what string) error {
	if err != nil {
		return errors.Wrap(err, what)
	}
	return errors.Errorf("%s failed: %s", what, res.Stderr)
}
