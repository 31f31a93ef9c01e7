package mirror

import (
	"context"

	"github.com/safareli/git-proxy/internal/gitexec"
)

// ErrSyncFailed wraps the stderr of a failed `git fetch origin --prune`.
// Callers surface a fixed message to the client, but keep the actual
// stderr in server logs.
type ErrSyncFailed struct {
	Repo   string
	Stderr string
}

func (e *ErrSyncFailed) Error() string {
	return "sync failed for " + e.Repo + ": " + e.Stderr
}

// Syncer runs `git fetch origin --prune` against a mirror before it is
// served, guaranteeing reads are upstream-authoritative.
type Syncer struct {
	store  *Store
	sshEnv map[string]string
}

// NewSyncer returns a Syncer using store to resolve mirror paths and
// sshEnv for every fetch.
func NewSyncer(store *Store, sshEnv map[string]string) *Syncer {
	return &Syncer{store: store, sshEnv: sshEnv}
}

// Sync fetches repoName's mirror from origin, pruning stale remote
// refs.
func (s *Syncer) Sync(ctx context.Context, repoName string) error {
	inv := gitexec.New(s.store.Path(repoName))
	res, err := inv.Run(ctx, s.sshEnv, "fetch", "origin", "--prune")
	if err != nil {
		return &ErrSyncFailed{Repo: repoName, Stderr: err.Error()}
	}
	if !res.Ok() {
		return &ErrSyncFailed{Repo: repoName, Stderr: res.Stderr}
	}
	return nil
}
