// Package sshenv builds the environment overlay used for every git
// invocation that may reach upstream over SSH.
package sshenv

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Build computes the SSH environment overlay: a runtime GIT_SSH_KEY_PATH
// wins over fileKeyPath (the configured key on disk), which wins over any
// ambient GIT_SSH_COMMAND. If neither is present a warning is logged and
// an empty overlay is returned.
func Build(fileKeyPath string) map[string]string {
	keyPath := os.Getenv("GIT_SSH_KEY_PATH")
	if keyPath == "" {
		keyPath = fileKeyPath
	}

	if keyPath != "" {
		return map[string]string{
			"GIT_SSH_COMMAND": fmt.Sprintf(
				"ssh -i %s -o StrictHostKeyChecking=accept-new -o UserKnownHostsFile=/dev/null",
				keyPath,
			),
		}
	}

	if ambient := os.Getenv("GIT_SSH_COMMAND"); ambient != "" {
		return map[string]string{"GIT_SSH_COMMAND": ambient}
	}

	logrus.Warn("no SSH key configured and no ambient GIT_SSH_COMMAND; upstream git operations will use default SSH")
	return map[string]string{}
}
