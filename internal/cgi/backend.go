package cgi

import (
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var candidatePaths = []string{
	"/usr/lib/git-core/git-http-backend",
	"/usr/libexec/git-core/git-http-backend",
}

var (
	locateOnce sync.Once
	backendBin string
	locateErr  error
)

// LocateBackend finds the git-http-backend binary once and caches the
// result: it checks the candidate paths first, then falls back to
// asking `git --exec-path` for git's helper directory.
func LocateBackend(exists func(string) bool, execPath func() (string, error)) (string, error) {
	locateOnce.Do(func() {
		for _, p := range candidatePaths {
			if exists(p) {
				backendBin = p
				return
			}
		}
		root, err := execPath()
		if err == nil {
			p := strings.TrimSpace(root) + "/git-http-backend"
			if exists(p) {
				backendBin = p
				return
			}
		}
		locateErr = errors.New("git-http-backend not found in any candidate path")
	})
	return backendBin, locateErr
}

// resetLocateOnceForTest clears the cached lookup so tests can exercise
// LocateBackend's search order repeatedly.
func resetLocateOnceForTest() {
	locateOnce = sync.Once{}
	backendBin = ""
	locateErr = nil
}

// GitExecPath runs `git --exec-path` to discover git's helper directory.
func GitExecPath() (string, error) {
	out, err := exec.Command("git", "--exec-path").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
