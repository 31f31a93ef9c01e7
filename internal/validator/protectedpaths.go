package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/gitexec"
	"github.com/safareli/git-proxy/internal/globset"
	"github.com/safareli/git-proxy/internal/refupdate"
)

// checkProtectedPaths rejects a push that touches a protected path in a
// net (not cumulative) diff against the base branch, so a sequence that
// introduces then reverts a protected-path change is allowed.
func checkProtectedPaths(ctx context.Context, inv *gitexec.Invoker, u refupdate.Update, class refupdate.Class, policy config.RepoPolicy) string {
	patterns := policy.NormalizedProtectedPaths
	if len(patterns) == 0 {
		// A policy not built by config.Load has no precomputed expansion:
		// apply the same trailing-slash rule ("foo/" -> "foo/**" + "foo").
		for _, p := range policy.ProtectedPaths {
			if strings.HasSuffix(p, "/") {
				patterns = append(patterns, p+"**", strings.TrimSuffix(p, "/"))
			} else {
				patterns = append(patterns, p)
			}
		}
	}
	if len(patterns) == 0 {
		return ""
	}
	if class == refupdate.Delete {
		return ""
	}

	// refs/heads/<base> mirrors upstream directly (see package mirror)
	// and still holds its pre-push value at this point in the hook, but
	// the client-facing name for this ref is origin/<base_branch>.
	baseRef := "refs/heads/" + policy.BaseBranch
	displayBaseRef := "origin/" + policy.BaseBranch
	notFoundMsg := fmt.Sprintf("Base branch %s not found. Cannot validate protected paths.", displayBaseRef)

	if res, err := inv.Run(ctx, nil, "rev-parse", "--verify", baseRef); err != nil || !res.Ok() {
		return notFoundMsg
	}

	revListRes, err := inv.Run(ctx, nil, "rev-list", u.NewOID, "--not", baseRef)
	if err != nil {
		return notFoundMsg
	}
	if strings.TrimSpace(revListRes.Stdout) == "" {
		// new tip is already reachable from base: nothing new to check.
		return ""
	}

	diffRes, err := inv.Run(ctx, nil, "diff", "--name-only", baseRef, u.NewOID)
	if err != nil {
		return notFoundMsg
	}

	set, err := globset.Compile(patterns)
	if err != nil {
		return fmt.Sprintf("invalid protected_paths pattern: %v", err)
	}

	var violations []string
	for _, path := range splitLines(diffRes.Stdout) {
		if path == "" {
			continue
		}
		if set.MatchAny(path) {
			violations = append(violations, path)
		}
	}
	if len(violations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Changes to protected paths detected:\n")
	for _, v := range violations {
		b.WriteString("  - " + v + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
