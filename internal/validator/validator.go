// Package validator classifies every ref update in a push, checks it
// against the repo's policy, and on full-batch success pushes each
// update upstream; any single rejection fails the whole batch.
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

// Context is the per-push environment the Validator needs: the mirror
// to run git commands against, the policy to enforce, and the SSH
// overlay for the eventual upstream push.
type Context struct {
	MirrorPath string
	Policy     config.RepoPolicy
	SSHEnv     map[string]string
}

// Result is the Validator/Forwarder's verdict for the whole batch.
type Result struct {
	Allowed bool
	Message string
}

// accepted is a per-update bookkeeping record carried from pass 1 to
// pass 2.
type accepted struct {
	update      refupdate.Update
	class       refupdate.Class
	isForcePush bool
}

// ValidateAndPush validates every update against policy, then, only if
// all pass, pushes them upstream in order.
func ValidateAndPush(ctx context.Context, updates []refupdate.Update, pctx Context) Result {
	inv := gitexec.New(pctx.MirrorPath)

	var errs []string
	var accs []accepted

	for _, u := range updates {
		a, err := validateOne(ctx, inv, u, pctx.Policy)
		if err != "" {
			errs = append(errs, err)
			continue
		}
		accs = append(accs, a)
	}

	if len(errs) > 0 {
		return Result{Allowed: false, Message: FormatRejection(errs)}
	}

	return forward(ctx, inv, accs, pctx)
}

// validateOne runs every admission check for a single update. It returns
// either a populated accepted record, or a non-empty rejection message.
func validateOne(ctx context.Context, inv *gitexec.Invoker, u refupdate.Update, policy config.RepoPolicy) (accepted, string) {
	branch, ok := u.Branch()
	if !ok {
		return accepted{}, fmt.Sprintf("Only branch pushes allowed (refs/heads/*), got: %s", u.Ref)
	}

	if msg := checkBranchAdmission(branch, policy); msg != "" {
		return accepted{}, msg
	}

	class, isForcePush, msg := classify(ctx, inv, u, policy)
	if msg != "" {
		return accepted{}, msg
	}

	if msg := checkDivergence(ctx, inv, u, branch, class, isForcePush); msg != "" {
		return accepted{}, msg
	}

	if msg := checkProtectedPaths(ctx, inv, u, class, policy); msg != "" {
		return accepted{}, msg
	}

	return accepted{update: u, class: class, isForcePush: isForcePush}, ""
}

// checkBranchAdmission enforces the allow/block branch-name policy.
func checkBranchAdmission(branch string, policy config.RepoPolicy) string {
	if policy.HasAllowedBranches() {
		set, err := globset.Compile(policy.AllowedBranches)
		if err != nil || !set.MatchAny(branch) {
			return fmt.Sprintf("Branch '%s' is not in allowed list. Allowed patterns: %s",
				branch, strings.Join(policy.AllowedBranches, ","))
		}
		return ""
	}
	if policy.HasBlockedBranches() {
		set, err := globset.Compile(policy.BlockedBranches)
		if err == nil && set.MatchAny(branch) {
			return fmt.Sprintf("Branch '%s' is blocked. Blocked patterns: %s",
				branch, strings.Join(policy.BlockedBranches, ","))
		}
	}
	return ""
}
