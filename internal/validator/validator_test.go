package validator_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/refupdate"
	"github.com/safareli/git-proxy/internal/validator"
)

// runGit runs a git command in dir and fails the spec on error, mirroring
// the throwaway subprocess helpers used throughout this codebase's
// integration-style tests.
func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func revParse(dir, ref string) string {
	return runGit(dir, "rev-parse", ref)
}

var _ = Describe("ValidateAndPush", func() {
	var (
		upstream, work, mirror string
		policy                 config.RepoPolicy
	)

	BeforeEach(func() {
		var err error
		upstream, err = os.MkdirTemp("", "git-proxy-upstream")
		Expect(err).NotTo(HaveOccurred())
		work, err = os.MkdirTemp("", "git-proxy-work")
		Expect(err).NotTo(HaveOccurred())

		runGit("", "init", "--bare", "-b", "main", upstream)
		runGit("", "clone", upstream, work)
		os.WriteFile(filepath.Join(work, "README.md"), []byte("hello\n"), 0o644)
		runGit(work, "add", "README.md")
		runGit(work, "commit", "-m", "initial")
		runGit(work, "push", "origin", "main")

		mirror, err = os.MkdirTemp("", "git-proxy-mirror")
		Expect(err).NotTo(HaveOccurred())
		runGit("", "clone", "--bare", upstream, mirror)
		runGit(mirror, "config", "remote.origin.fetch", "+refs/heads/*:refs/heads/*")
		runGit(mirror, "fetch", "origin")

		policy = config.RepoPolicy{
			Upstream:        upstream,
			AllowedBranches: []string{"**"},
			ForcePush:       config.ForcePushDeny,
			BaseBranch:      "main",
		}
	})

	AfterEach(func() {
		os.RemoveAll(upstream)
		os.RemoveAll(work)
		os.RemoveAll(mirror)
	})

	pushCtx := func() validator.Context {
		return validator.Context{MirrorPath: mirror, Policy: policy, SSHEnv: map[string]string{}}
	}

	// injectIntoMirror fetches sha's objects into the mirror without
	// moving any ref, the same state a receive-pack quarantine leaves
	// behind before a pre-receive hook runs.
	injectIntoMirror := func(sha string) string {
		runGit(mirror, "fetch", work, sha)
		return sha
	}

	commitOnTop := func(base, message, filename string) string {
		runGit(work, "fetch", "origin")
		runGit(work, "checkout", base)
		os.WriteFile(filepath.Join(work, filename), []byte(message+"\n"), 0o644)
		runGit(work, "add", filename)
		runGit(work, "commit", "-m", message)
		return injectIntoMirror(revParse(work, "HEAD"))
	}

	It("accepts a fast-forward update and pushes it upstream", func() {
		newSHA := commitOnTop("main", "second commit", "second.txt")
		oldSHA := revParse(mirror, "refs/heads/main")

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: oldSHA, NewOID: newSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeTrue())
		Expect(revParse(upstream, "refs/heads/main")).To(Equal(newSHA))
	})

	It("accepts a branch creation", func() {
		runGit(work, "checkout", "-b", "feature-1")
		os.WriteFile(filepath.Join(work, "feature.txt"), []byte("x\n"), 0o644)
		runGit(work, "add", "feature.txt")
		runGit(work, "commit", "-m", "feature work")
		newSHA := injectIntoMirror(revParse(work, "HEAD"))

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: refupdate.ZeroOID, NewOID: newSHA, Ref: "refs/heads/feature-1"},
		}, pushCtx())

		Expect(result.Allowed).To(BeTrue())
		Expect(revParse(upstream, "refs/heads/feature-1")).To(Equal(newSHA))
	})

	It("rejects a force push when force_push is deny", func() {
		firstSHA := revParse(mirror, "refs/heads/main")

		runGit(work, "checkout", "main")
		runGit(work, "commit", "--amend", "-m", "rewritten history")
		amendedSHA := injectIntoMirror(revParse(work, "HEAD"))

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: firstSHA, NewOID: amendedSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("Force push detected"))
		Expect(revParse(upstream, "refs/heads/main")).To(Equal(firstSHA))
	})

	It("allows a force push when force_push is allow", func() {
		policy.ForcePush = config.ForcePushAllow
		firstSHA := revParse(mirror, "refs/heads/main")

		runGit(work, "checkout", "main")
		runGit(work, "commit", "--amend", "-m", "rewritten history")
		amendedSHA := injectIntoMirror(revParse(work, "HEAD"))

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: firstSHA, NewOID: amendedSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeTrue())
		Expect(revParse(upstream, "refs/heads/main")).To(Equal(amendedSHA))
	})

	It("rejects branch deletion when force_push is deny", func() {
		runGit(work, "checkout", "-b", "throwaway")
		os.WriteFile(filepath.Join(work, "t.txt"), []byte("t\n"), 0o644)
		runGit(work, "add", "t.txt")
		runGit(work, "commit", "-m", "throwaway")
		runGit(work, "push", "origin", "throwaway")
		runGit(mirror, "fetch", "origin")
		sha := revParse(mirror, "refs/heads/throwaway")

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: sha, NewOID: refupdate.ZeroOID, Ref: "refs/heads/throwaway"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("deletion is not allowed"))
	})

	It("rejects a non-branch ref", func() {
		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: refupdate.ZeroOID, NewOID: revParse(mirror, "main"), Ref: "refs/tags/v1"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("Only branch pushes allowed"))
	})

	It("rejects a branch not on the allow list", func() {
		policy.AllowedBranches = []string{"release-*"}
		newSHA := commitOnTop("main", "second commit", "second.txt")

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: refupdate.ZeroOID, NewOID: newSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("not in allowed list"))
	})

	It("rejects a blocked branch", func() {
		policy.AllowedBranches = nil
		policy.BlockedBranches = []string{"main"}
		newSHA := commitOnTop("main", "second commit", "second.txt")

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: revParse(mirror, "main"), NewOID: newSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("is blocked"))
	})

	It("rejects a change under a protected path", func() {
		policy.ProtectedPaths = []string{"config/"}
		runGit(work, "checkout", "main")
		os.MkdirAll(filepath.Join(work, "config"), 0o755)
		os.WriteFile(filepath.Join(work, "config", "secrets.yaml"), []byte("k: v\n"), 0o644)
		runGit(work, "add", "config/secrets.yaml")
		runGit(work, "commit", "-m", "touch protected config")
		newSHA := injectIntoMirror(revParse(work, "HEAD"))
		oldSHA := revParse(mirror, "main")

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: oldSHA, NewOID: newSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("Changes to protected paths"))
	})

	It("allows a push that introduces then reverts a protected-path change", func() {
		policy.ProtectedPaths = []string{"config/"}
		oldSHA := revParse(mirror, "main")

		runGit(work, "checkout", "main")
		os.MkdirAll(filepath.Join(work, "config"), 0o755)
		os.WriteFile(filepath.Join(work, "config", "secrets.yaml"), []byte("k: v\n"), 0o644)
		runGit(work, "add", "config/secrets.yaml")
		runGit(work, "commit", "-m", "touch protected config")

		runGit(work, "revert", "--no-edit", "HEAD")
		newSHA := injectIntoMirror(revParse(work, "HEAD"))

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: oldSHA, NewOID: newSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeTrue())
	})

	It("rejects a stale push when upstream has diverged", func() {
		staleSHA := revParse(mirror, "main")

		commitOnTop("main", "someone else's commit", "other.txt")
		runGit(work, "push", "origin", "main")
		// Simulate the Upstream Syncer's pre-serve fetch picking up the
		// new tip before this (now stale) push's hook runs.
		runGit(mirror, "fetch", "origin")

		runGit(work, "checkout", staleSHA)
		runGit(work, "checkout", "-b", "stale-branch-based-on-old-main")
		os.WriteFile(filepath.Join(work, "mine.txt"), []byte("mine\n"), 0o644)
		runGit(work, "add", "mine.txt")
		runGit(work, "commit", "-m", "my commit based on stale main")
		myNewSHA := injectIntoMirror(revParse(work, "HEAD"))

		result := validator.ValidateAndPush(context.Background(), []refupdate.Update{
			{OldOID: staleSHA, NewOID: myNewSHA, Ref: "refs/heads/main"},
		}, pushCtx())

		Expect(result.Allowed).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("diverged"))
	})
})
