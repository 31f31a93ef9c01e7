package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/mirror"
	"github.com/safareli/git-proxy/internal/receive"
)

func newPreReceiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pre-receive <repo-name>",
		Short: "Run the pre-receive callback for repo-name (invoked by an installed hook)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runPreReceive(args[0])
			return nil
		},
	}
}

func runPreReceive(repoName string) {
	configureLogging()

	configPath := envOr("GIT_PROXY_CONFIG", "/etc/git-proxy/config.json")
	reposDir := envOr("REPOS_DIR", "/var/lib/git-proxy/repos")

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("loading config: %v", err)
	}

	store := mirror.NewStore(reposDir)
	code := receive.Run(context.Background(), repoName, cfg, store, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(code)
}
