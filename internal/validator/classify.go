package validator

import (
	"context"
	"fmt"

	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/gitexec"
	"github.com/safareli/git-proxy/internal/refupdate"
)

// classify determines the update's class and enforces the force-push
// policy against it. The returned message is non-empty on rejection.
func classify(ctx context.Context, inv *gitexec.Invoker, u refupdate.Update, policy config.RepoPolicy) (refupdate.Class, bool, string) {
	switch {
	case refupdate.IsZero(u.OldOID):
		return refupdate.Create, false, ""

	case refupdate.IsZero(u.NewOID):
		if policy.ForcePush == config.ForcePushDeny {
			return refupdate.Delete, false, "Branch deletion is not allowed (force_push: deny)"
		}
		return refupdate.Delete, false, ""

	default:
		res, err := inv.Run(ctx, nil, "merge-base", "--is-ancestor", u.OldOID, u.NewOID)
		if err == nil && res.Ok() {
			return refupdate.FastForward, false, ""
		}

		if policy.ForcePush == config.ForcePushDeny {
			return refupdate.ForceUpdate, false, fmt.Sprintf(
				"Force push detected and not allowed. Old: %s, New: %s",
				refupdate.ShortOID(u.OldOID), refupdate.ShortOID(u.NewOID))
		}
		return refupdate.ForceUpdate, true, ""
	}
}
