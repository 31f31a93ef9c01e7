package main

import (
	"context"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/safareli/git-proxy/internal/cgi"
	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/mirror"
	"github.com/safareli/git-proxy/internal/server"
	"github.com/safareli/git-proxy/internal/sshenv"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	configureLogging()

	configPath := envOr("GIT_PROXY_CONFIG", "/etc/git-proxy/config.json")
	reposDir := envOr("REPOS_DIR", "/var/lib/git-proxy/repos")
	port := envOr("HTTP_PORT", "8080")

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("loading config: %v", err)
	}

	selfBinary, err := os.Executable()
	if err != nil {
		fatal("resolving self binary path: %v", err)
	}

	store := mirror.NewStore(reposDir)
	sshEnv := sshenv.Build(cfg.SSHKeyPath)
	syncer := mirror.NewSyncer(store, sshEnv)

	ctx := context.Background()
	for name, policy := range cfg.Repos {
		logrus.WithField("repo", name).Info("bootstrapping mirror")
		if err := store.Bootstrap(ctx, name, policy.Upstream, selfBinary); err != nil {
			fatal("bootstrapping mirror for %s: %v", name, err)
		}
	}

	backendPath, err := cgi.LocateBackend(fileExists, cgi.GitExecPath)
	if err != nil {
		fatal("locating git-http-backend: %v", err)
	}
	gw := cgi.New(backendPath)

	srv := server.New(cfg, store, syncer, gw)

	addr := ":" + port
	logrus.WithField("addr", addr).Info("git-proxy listening")
	return http.ListenAndServe(addr, srv.Handler())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
