package validator

import (
	"context"
	"fmt"

	"github.com/safareli/git-proxy/internal/gitexec"
	"github.com/safareli/git-proxy/internal/refupdate"
)

// checkDivergence rejects a push whose claimed old oid no longer matches
// upstream's current tip for the branch. Skipped for force-classified
// updates and for creates.
func checkDivergence(ctx context.Context, inv *gitexec.Invoker, u refupdate.Update, branch string, class refupdate.Class, isForcePush bool) string {
	if isForcePush || class == refupdate.Create {
		return ""
	}

	// The mirror's refs/heads/* is synced straight from upstream (see
	// package mirror), and pre-receive fires before git applies this
	// push's ref update, so refs/heads/<branch> here still holds
	// upstream's pre-push value.
	res, err := inv.Run(ctx, nil, "rev-parse", "--verify", "refs/heads/"+branch)
	if err != nil || !res.Ok() {
		// upstream has no such branch yet
		return ""
	}

	remote := res.Stdout
	if remote != u.OldOID {
		return fmt.Sprintf(
			"Upstream has diverged. Expected: %s, Actual: %s. Please fetch and rebase.",
			refupdate.ShortOID(u.OldOID), refupdate.ShortOID(remote))
	}
	return ""
}
