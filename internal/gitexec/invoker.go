// Package gitexec is the uniform subprocess runner for git commands:
// it captures stdout/stderr/exit code and accepts either an
// environment overlay on top of the ambient process environment, or a
// full-replacement environment for the upstream-push case where the
// git backend's quarantine variable must not survive.
package gitexec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of running one git subprocess.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Invoker runs git commands in a fixed working directory.
type Invoker struct {
	Dir string
}

// New returns an Invoker rooted at dir (typically a mirror path).
func New(dir string) *Invoker {
	return &Invoker{Dir: dir}
}

// Run executes `git <args...>` with the ambient environment overlaid
// by env (env may be nil).
func (g *Invoker) Run(ctx context.Context, env map[string]string, args ...string) (Result, error) {
	return g.run(ctx, overlayEnv(env), args...)
}

// RunWithEnv executes `git <args...>` with env as the *entire*
// process environment, bypassing the ambient ENV inheritance.
func (g *Invoker) RunWithEnv(ctx context.Context, env map[string]string, args ...string) (Result, error) {
	return g.run(ctx, mapToEnviron(env), args...)
}

// RunEnviron executes `git <args...>` with environ as the entire,
// already-built process environment (see ForwarderEnviron). Used by
// the Forwarder to push upstream without the git backend's receive
// quarantine variable.
func (g *Invoker) RunEnviron(ctx context.Context, environ []string, args ...string) (Result, error) {
	return g.run(ctx, environ, args...)
}

func (g *Invoker) run(ctx context.Context, environ []string, args ...string) (Result, error) {
	logrus.WithFields(logrus.Fields{
		"dir":  g.Dir,
		"argv": strings.Join(args, " "),
	}).Debug("git exec")

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	cmd.Env = environ

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

// Ok reports whether the result represents a successful (exit 0) run.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}
