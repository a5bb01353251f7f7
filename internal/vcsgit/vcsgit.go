// Package vcsgit fetches git-backed dependencies into a shared cache,
// cloning at most once per (url, target) pair.
//
// Same Sync/Tags/Latest shape as a plain git subprocess wrapper, repurposed
// from "fetch a Go module's source" to "fetch a C++ dependency's source".
package vcsgit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

// Git fetches repositories using the system git binary.
type Git struct {
	git string
}

// Option configures a Git fetcher.
type Option func(*Git)

// WithGitPath overrides the git executable path (default: "git" on PATH).
func WithGitPath(path string) Option {
	return func(g *Git) { g.git = path }
}

// New creates a Git fetcher.
func New(opts ...Option) *Git {
	g := &Git{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sync ensures dir holds a checkout of remote at target (a tag, branch, or
// commit hash; empty means the remote's default branch HEAD). If dir
// already holds a checkout, it is reused as-is — Sync is a clone-once
// operation keyed by the caller's (url, target) cache path, not a refresh.
func (g *Git) Sync(ctx context.Context, remote, target, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &cabinerr.ResolveError{Msg: fmt.Sprintf("creating clone dir %s", dir), Err: err}
	}
	if err := g.run(ctx, dir, "init"); err != nil {
		return &cabinerr.ResolveError{Msg: "git init", Err: err}
	}
	ref := target
	if ref == "" {
		ref = "HEAD"
	}
	if err := g.run(ctx, dir, "fetch", "--depth", "1", remote, ref); err != nil {
		return &cabinerr.ResolveError{Msg: fmt.Sprintf("fetching %s@%s", remote, ref), Err: err}
	}
	if err := g.run(ctx, dir, "checkout", "--quiet", "FETCH_HEAD"); err != nil {
		return &cabinerr.ResolveError{Msg: fmt.Sprintf("checking out %s@%s", remote, ref), Err: err}
	}
	return nil
}

// InitRepo runs "git init" in dir without fetching anything, for the `new`/
// `init` subcommands scaffolding a fresh project.
func (g *Git) InitRepo(ctx context.Context, dir string) error {
	if err := g.run(ctx, dir, "init", "--quiet"); err != nil {
		return &cabinerr.ResolveError{Msg: "git init", Err: err}
	}
	return nil
}

// Tags lists the tags advertised by remote, without cloning it.
func (g *Git) Tags(ctx context.Context, remote string) ([]string, error) {
	out, err := g.output(ctx, "", "ls-remote", "--tags", "--refs", remote)
	if err != nil {
		return nil, &cabinerr.ResolveError{Msg: fmt.Sprintf("listing tags for %s", remote), Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) == 2 {
			tags = append(tags, strings.TrimPrefix(parts[1], "refs/tags/"))
		}
	}
	return tags, nil
}

// Latest returns the commit hash of remote's default branch HEAD.
func (g *Git) Latest(ctx context.Context, remote string) (string, error) {
	out, err := g.output(ctx, "", "ls-remote", remote, "HEAD")
	if err != nil {
		return "", &cabinerr.ResolveError{Msg: fmt.Sprintf("resolving HEAD for %s", remote), Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &cabinerr.ResolveError{Msg: fmt.Sprintf("remote %s has no HEAD", remote)}
	}
	parts := strings.Split(out, "\t")
	return parts[0], nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// EscapeURL turns a URL into a filesystem-safe path component for cache
// keying: every byte outside [A-Za-z0-9._-] is percent-escaped.
func EscapeURL(url string) string {
	var b strings.Builder
	for i := 0; i < len(url); i++ {
		c := url[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}
