// Package server wires the mirror store, upstream syncer, per-repo
// serializer, CGI gateway, and HTTP router into the request-handling
// glue that answers an incoming git-over-HTTP request.
package server

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/safareli/git-proxy/internal/cgi"
	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/mirror"
	"github.com/safareli/git-proxy/internal/router"
	"github.com/safareli/git-proxy/internal/serializer"
)

// Server holds everything a running git-proxy instance needs to
// answer HTTP requests.
type Server struct {
	Config     *config.Config
	Store      *mirror.Store
	Syncer     *mirror.Syncer
	Serializer *serializer.Serializer
	Gateway    *cgi.Gateway
}

// New builds a Server ready to be handed to net/http.
func New(cfg *config.Config, store *mirror.Store, syncer *mirror.Syncer, gw *cgi.Gateway) *Server {
	return &Server{
		Config:     cfg,
		Store:      store,
		Syncer:     syncer,
		Serializer: serializer.New(),
		Gateway:    gw,
	}
}

// Handler returns the top-level http.Handler for the proxy.
func (s *Server) Handler() http.Handler {
	return router.New(s.serveGit, s.isConfigured, s.unknownRepo)
}

func (s *Server) isConfigured(repo string) bool {
	_, ok := s.Config.Repos[repo]
	return ok
}

func (s *Server) unknownRepo(w http.ResponseWriter, r *http.Request, repo string) {
	http.Error(w, fmt.Sprintf("Not Found - Unknown repo: %s", repo), http.StatusNotFound)
}

// serveGit syncs the mirror from upstream, then hands off to the CGI
// gateway, all inside the repo's exclusive section.
func (s *Server) serveGit(w http.ResponseWriter, r *http.Request, repo, tail string) {
	err := s.Serializer.WithExclusive(repo, func() error {
		if err := s.Syncer.Sync(r.Context(), repo); err != nil {
			logrus.WithError(err).WithField("repo", repo).Error("upstream sync failed")
			http.Error(w, "Internal Error - Failed to sync with upstream", http.StatusInternalServerError)
			return nil
		}

		resp, err := s.Gateway.Serve(r.Context(), r, s.Store.Path(repo), repo)
		if err != nil {
			logrus.WithError(err).WithField("repo", repo).Error("git backend invocation failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return nil
		}
		resp.WriteTo(w)
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("repo", repo).Error("unexpected error serving git request")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
