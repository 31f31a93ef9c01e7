// Package config loads and validates the git-proxy policy file.
//
// Loading is treated as an external collaborator by the core state
// machine (see the Validator in package validator), but something has
// to read the JSON off disk and reject malformed policy before the
// server starts, so it lives here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ForcePushPolicy is one of {deny, allow}.
type ForcePushPolicy string

const (
	// ForcePushDeny rejects any non-fast-forward update and any delete.
	ForcePushDeny ForcePushPolicy = "deny"
	// ForcePushAllow permits force-updates and deletes.
	ForcePushAllow ForcePushPolicy = "allow"
)

// RepoPolicy is the declarative policy for a single logical repo.
type RepoPolicy struct {
	Upstream        string   `json:"upstream"`
	ProtectedPaths  []string `json:"protected_paths"`
	AllowedBranches []string `json:"allowed_branches,omitempty"`
	BlockedBranches []string `json:"blocked_branches,omitempty"`
	ForcePush       ForcePushPolicy `json:"force_push"`
	BaseBranch      string   `json:"base_branch"`

	// NormalizedProtectedPaths is ProtectedPaths after the trailing-slash
	// expansion rule has been applied once, at load time.
	NormalizedProtectedPaths []string `json:"-"`
}

// HasAllowedBranches reports whether allowed_branches was configured.
func (p RepoPolicy) HasAllowedBranches() bool {
	return p.AllowedBranches != nil
}

// HasBlockedBranches reports whether blocked_branches was configured.
func (p RepoPolicy) HasBlockedBranches() bool {
	return p.BlockedBranches != nil
}

// Config is the top-level on-disk configuration document.
type Config struct {
	SSHKeyPath string                `json:"ssh_key_path,omitempty"`
	Repos      map[string]RepoPolicy `json:"repos"`
}

// Load reads and validates the configuration file at path.
//
// Validation failures are fatal: missing file, invalid JSON, and the
// "both or neither of allowed_branches/blocked_branches" schema rule.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}

	cfg.normalize()
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Repos) == 0 {
		return errors.New("no repos configured")
	}
	for name, p := range c.Repos {
		if strings.TrimSpace(p.Upstream) == "" {
			return fmt.Errorf("repo %q: upstream is required", name)
		}
		if p.HasAllowedBranches() && p.HasBlockedBranches() {
			return fmt.Errorf("repo %q: allowed_branches and blocked_branches are mutually exclusive", name)
		}
		if !p.HasAllowedBranches() && !p.HasBlockedBranches() {
			return fmt.Errorf("repo %q: exactly one of allowed_branches or blocked_branches is required", name)
		}
		switch p.ForcePush {
		case "", ForcePushDeny, ForcePushAllow:
		default:
			return fmt.Errorf("repo %q: force_push must be %q or %q, got %q", name, ForcePushDeny, ForcePushAllow, p.ForcePush)
		}
	}
	return nil
}

// normalize fills in defaults and precomputes derived fields so the
// request path never has to re-derive them.
func (c *Config) normalize() {
	for name, p := range c.Repos {
		if p.ForcePush == "" {
			p.ForcePush = ForcePushDeny
		}
		if p.BaseBranch == "" {
			p.BaseBranch = "main"
		}
		p.NormalizedProtectedPaths = expandProtectedPaths(p.ProtectedPaths)
		c.Repos[name] = p
	}
}

// expandProtectedPaths applies the trailing-slash rule: "foo/" becomes
// "foo/**" plus the bare "foo".
func expandProtectedPaths(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			out = append(out, p+"**", strings.TrimSuffix(p, "/"))
		} else {
			out = append(out, p)
		}
	}
	return out
}
