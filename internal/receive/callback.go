// Package receive implements the pre-receive callback: the procedure
// the git backend invokes before finalizing a receive-pack.
package receive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/safareli/git-proxy/internal/config"
	"github.com/safareli/git-proxy/internal/mirror"
	"github.com/safareli/git-proxy/internal/refupdate"
	"github.com/safareli/git-proxy/internal/sshenv"
	"github.com/safareli/git-proxy/internal/validator"
)

// ErrMalformedLine is returned when a stdin line doesn't match
// "<old> <new> <ref>".
type ErrMalformedLine struct {
	Line string
}

func (e *ErrMalformedLine) Error() string {
	return fmt.Sprintf("malformed pre-receive input: %q", e.Line)
}

// ParseUpdates parses zero or more "<old> <new> <ref>" lines. Empty or
// whitespace-only input yields a nil, non-error result.
func ParseUpdates(r io.Reader) ([]refupdate.Update, error) {
	var updates []refupdate.Update

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, &ErrMalformedLine{Line: line}
		}
		updates = append(updates, refupdate.Update{
			OldOID: fields[0],
			NewOID: fields[1],
			Ref:    fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return updates, nil
}

// Run executes the pre-receive callback for repoName: it parses
// stdin, loads policy from cfg, validates and forwards, then writes
// the verdict to stdout/stderr and returns the process exit code.
func Run(ctx context.Context, repoName string, cfg *config.Config, store *mirror.Store, stdin io.Reader, stdout, stderr io.Writer) int {
	log := logrus.WithField("repo", repoName)

	updates, err := ParseUpdates(stdin)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		log.WithError(err).Error("pre-receive: malformed input")
		return 1
	}
	if len(updates) == 0 {
		return 0
	}

	policy, ok := cfg.Repos[repoName]
	if !ok {
		fmt.Fprintf(stderr, "unknown repo: %s\n", repoName)
		log.Error("pre-receive: unknown repo")
		return 1
	}

	sshEnv := sshenv.Build(cfg.SSHKeyPath)

	result := validator.ValidateAndPush(ctx, updates, validator.Context{
		MirrorPath: store.Path(repoName),
		Policy:     policy,
		SSHEnv:     sshEnv,
	})

	log.WithFields(logrus.Fields{
		"updates": len(updates),
		"allowed": result.Allowed,
	}).Info("pre-receive: decision")

	if !result.Allowed {
		fmt.Fprint(stderr, result.Message)
		return 1
	}

	fmt.Fprintln(stdout, result.Message)
	return 0
}
