package cgi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// inheritedVars are ambient process variables the backend and everything
// it spawns (git receive-pack/upload-pack, the pre-receive hook, the
// re-invoked git-proxy binary, its own git subprocesses) need to resolve
// the git binary and a home directory for credential/config lookups.
var inheritedVars = []string{"PATH", "HOME", "USER"}

// BuildEnv constructs the CGI environment for the git HTTP backend from
// r, overlaying the CGI-specific variables onto a small inherited subset
// of the ambient process environment.
func BuildEnv(r *http.Request, mirrorPath, repoName string) []string {
	scriptName := "/" + repoName + ".git"
	pathInfo := strings.TrimPrefix(r.URL.Path, scriptName)

	port := r.URL.Port()
	if port == "" {
		port = "80"
	}

	env := map[string]string{
		"REQUEST_METHOD":        r.Method,
		"QUERY_STRING":          r.URL.RawQuery,
		"CONTENT_TYPE":          r.Header.Get("Content-Type"),
		"CONTENT_LENGTH":        strconv.FormatInt(r.ContentLength, 10),
		"PATH_INFO":             pathInfo,
		"PATH_TRANSLATED":       mirrorPath + pathInfo,
		"SCRIPT_NAME":           scriptName,
		"SERVER_NAME":           r.Host,
		"SERVER_PORT":           port,
		"SERVER_PROTOCOL":       "HTTP/1.1",
		"GATEWAY_INTERFACE":     "CGI/1.1",
		"SERVER_SOFTWARE":       "git-proxy",
		"GIT_PROJECT_ROOT":      mirrorPath,
		"GIT_HTTP_EXPORT_ALL":   "1",
		"GIT_HTTP_RECEIVE_PACK": "true",
		"GIT_HTTP_UPLOAD_PACK":  "true",
	}

	for name, values := range r.Header {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		env[key] = strings.Join(values, ", ")
	}

	for _, name := range inheritedVars {
		if _, ok := env[name]; ok {
			continue
		}
		if v := os.Getenv(name); v != "" {
			env[name] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
