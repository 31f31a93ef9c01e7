// Package cgi wraps the git HTTP backend as a CGI child process: it
// builds the CGI environment from an incoming HTTP request, streams
// the request body to the child's stdin, and parses the child's
// CGI-framed output back into an HTTP response.
//
// The gateway never interprets the body: pack streams, error
// payloads, and side-band messages flow through as opaque bytes.
package cgi

import (
	"bytes"
	"context"
	"net/http"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Gateway spawns the git HTTP backend for a single request.
type Gateway struct {
	BackendPath string
}

// New returns a Gateway wrapping the backend located at backendPath.
func New(backendPath string) *Gateway {
	return &Gateway{BackendPath: backendPath}
}

// Response is a parsed CGI response: status, headers, and opaque body.
type Response struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
}

// Serve builds the CGI environment for r against mirrorPath (the git
// project root) and repoName (used to strip the SCRIPT_NAME prefix
// from PATH_INFO), runs the backend, and returns its parsed response.
func (g *Gateway) Serve(ctx context.Context, r *http.Request, mirrorPath, repoName string) (*Response, error) {
	env := BuildEnv(r, mirrorPath, repoName)

	cmd := exec.CommandContext(ctx, g.BackendPath)
	cmd.Dir = mirrorPath
	cmd.Env = env
	cmd.Stdin = r.Body

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		logrus.WithFields(logrus.Fields{
			"repo":   repoName,
			"stderr": stderr.String(),
		}).Warn("git-http-backend wrote to stderr")
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"repo": repoName,
			"err":  err,
		}).Warn("git-http-backend exited non-zero")
		// non-zero exit doesn't mean no output: parse whatever was produced.
	}

	return ParseCGIOutput(stdout.Bytes())
}

// ParseCGIOutput splits raw CGI child output into a header block and
// body, then parses the header block into a status code, status text,
// and HTTP header set.
func ParseCGIOutput(raw []byte) (*Response, error) {
	headerBytes, body := splitHeaders(raw)

	resp := &Response{
		StatusCode: http.StatusOK,
		StatusText: "OK",
		Header:     http.Header{},
		Body:       body,
	}

	for _, line := range strings.Split(string(headerBytes), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if strings.EqualFold(name, "Status") {
			code, text := parseStatus(value)
			resp.StatusCode = code
			resp.StatusText = text
			continue
		}
		resp.Header.Add(name, value)
	}

	return resp, nil
}

// splitHeaders scans raw byte-by-byte for the first "\r\n\r\n" or
// "\n\n" separator. If neither is present the entire output is headers
// and the body is empty.
func splitHeaders(raw []byte) (headers, body []byte) {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	if crlf >= 0 && (lf < 0 || crlf < lf) {
		return raw[:crlf], raw[crlf+4:]
	}
	if lf >= 0 {
		return raw[:lf], raw[lf+2:]
	}
	return raw, nil
}

// parseStatus parses a CGI Status header value: "<code> <reason>".
func parseStatus(value string) (int, string) {
	parts := strings.SplitN(value, " ", 2)
	code, err := strconv.Atoi(parts[0])
	if err != nil {
		return http.StatusOK, "OK"
	}
	text := http.StatusText(code)
	if len(parts) == 2 {
		text = parts[1]
	}
	return code, text
}

// WriteTo writes resp to w as an HTTP response.
func (resp *Response) WriteTo(w http.ResponseWriter) {
	h := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
