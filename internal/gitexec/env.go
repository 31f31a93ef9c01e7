package gitexec

import (
	"os"
	"strings"
)

// overlayEnv returns the ambient process environment with env's keys
// added or replaced.
func overlayEnv(env map[string]string) []string {
	base := os.Environ()
	if len(env) == 0 {
		return base
	}

	result := make([]string, 0, len(base)+len(env))
	for _, kv := range base {
		k := kv[:strings.IndexByte(kv, '=')]
		if _, ok := env[k]; ok {
			continue
		}
		result = append(result, kv)
	}
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	return result
}

// mapToEnviron turns env into a full os/exec environment, dropping
// anything not explicitly listed.
func mapToEnviron(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	return result
}

// quarantineVar is the git receive-pack quarantine variable, which
// ForwarderEnviron strips: the Forwarder must not push against the
// quarantined object store the backend built for the still-in-flight
// receive.
const quarantineVar = "GIT_QUARANTINE_PATH"

// ForwarderEnviron builds the full replacement environment for a
// `git push` to upstream: the current process environment (so PATH,
// HOME etc. resolve normally), minus the quarantine variable and
// GIT_ALTERNATE_OBJECT_DIRECTORIES, plus the SSH overlay.
func ForwarderEnviron(sshOverlay map[string]string) []string {
	base := os.Environ()
	result := make([]string, 0, len(base)+len(sshOverlay))
	for _, kv := range base {
		k := kv[:strings.IndexByte(kv, '=')]
		if k == quarantineVar || k == "GIT_ALTERNATE_OBJECT_DIRECTORIES" {
			continue
		}
		if _, ok := sshOverlay[k]; ok {
			continue
		}
		result = append(result, kv)
	}
	for k, v := range sshOverlay {
		result = append(result, k+"="+v)
	}
	return result
}
