// Package router demultiplexes request paths into (repo, sub-path) and
// dispatches to either the health endpoint or the gated git path.
package router

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// repoPathPattern is non-greedy to the first ".git" boundary, so repo
// names may themselves contain slashes (namespaced names).
var repoPathPattern = regexp.MustCompile(`^/(.+?)\.git(/.*)?$`)

// GitHandler dispatches a request already known to target repo, with
// tail being the remaining sub-path (possibly empty).
type GitHandler func(w http.ResponseWriter, r *http.Request, repo, tail string)

// UnknownRepoHandler is called when repo doesn't match any configured
// repo, so the caller (which owns the config) can produce the 404.
type UnknownRepoHandler func(w http.ResponseWriter, r *http.Request, repo string)

// New builds the top-level router. isConfigured reports whether a
// parsed repo name is one of the server's configured repos.
func New(gitHandler GitHandler, isConfigured func(string) bool, unknownRepo UnknownRepoHandler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(withRecover(dispatch(gitHandler, isConfigured, unknownRepo)))
	return r
}

func dispatch(gitHandler GitHandler, isConfigured func(string) bool, unknownRepo UnknownRepoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := repoPathPattern.FindStringSubmatch(r.URL.Path)
		if m == nil {
			http.Error(w, "Not Found - Invalid repo path", http.StatusNotFound)
			return
		}

		repo, tail := m[1], m[2]
		if !isConfigured(repo) {
			unknownRepo(w, r, repo)
			return
		}
		gitHandler(w, r, repo, tail)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// withRecover converts a handler panic into a 500 so a single bad
// request can't take the server down.
func withRecover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithField("panic", rec).Error("handler panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}
