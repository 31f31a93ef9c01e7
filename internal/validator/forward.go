package validator

import (
	"context"
	"fmt"

	"github.com/safareli/git-proxy/internal/gitexec"
	"github.com/safareli/git-proxy/internal/refupdate"
)

// forward pushes every accepted update upstream in order, stopping and
// rejecting the batch on the first push failure.
func forward(ctx context.Context, inv *gitexec.Invoker, accs []accepted, pctx Context) Result {
	environ := gitexec.ForwarderEnviron(pctx.SSHEnv)

	for _, a := range accs {
		args := pushArgs(a)
		res, err := runForward(ctx, inv, environ, args)
		if err != nil || !res.Ok() {
			stderr := res.Stderr
			if err != nil {
				stderr = err.Error()
			}
			return Result{Allowed: false, Message: FormatRejection([]string{
				fmt.Sprintf("Failed to push to upstream:\n%s", stderr),
			})}
		}
	}

	return Result{Allowed: true, Message: "All refs validated and pushed successfully"}
}

func pushArgs(a accepted) []string {
	branch, _ := a.update.Branch()

	switch a.class {
	case refupdate.Delete:
		return []string{"push", "origin", "--delete", branch}
	case refupdate.ForceUpdate:
		return []string{"push", "--force", "origin", a.update.NewOID + ":refs/heads/" + branch}
	default: // Create, FastForward
		return []string{"push", "origin", a.update.NewOID + ":refs/heads/" + branch}
	}
}

// runForward runs git with a full-replacement environment (not an
// overlay), since the Invoker's normal Run() inherits the ambient
// process env including the quarantine variable we must strip.
func runForward(ctx context.Context, inv *gitexec.Invoker, environ []string, args []string) (gitexec.Result, error) {
	return inv.RunEnviron(ctx, environ, args...)
}
