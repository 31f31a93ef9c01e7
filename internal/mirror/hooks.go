package mirror

import (
	"fmt"
	"os"
	"path/filepath"
)

const preReceiveTemplate = `#!/bin/sh
# Installed by git-proxy bootstrap. Do not edit by hand.
exec %q pre-receive %q
`

// installPreReceiveHook writes a thin shell wrapper that re-invokes
// the proxy binary in pre-receive mode for this repo.
func installPreReceiveHook(mirrorPath, repoName, selfBinary string) error {
	hookPath := filepath.Join(mirrorPath, "hooks", "pre-receive")
	script := fmt.Sprintf(preReceiveTemplate, selfBinary, repoName)
	return os.WriteFile(hookPath, []byte(script), 0o755)
}
