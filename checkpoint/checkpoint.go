// Package checkpoint publishes the persisted catalog and ledger at batch
// boundaries. Failures are reported to the caller, which treats them as
// non-fatal.
package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Syncer publishes a checkpoint described by summary.
type Syncer interface {
	Sync(ctx context.Context, summary string) error
}

// Func adapts a function to the Syncer interface.
type Func func(ctx context.Context, summary string) error

// Sync calls f.
func (f Func) Sync(ctx context.Context, summary string) error {
	return f(ctx, summary)
}

// Nop discards checkpoints.
type Nop struct{}

// Sync does nothing.
func (Nop) Sync(context.Context, string) error { return nil }

// Runner executes a git subcommand in dir and returns its combined output.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Git stages the state files, commits them and optionally pushes.
type Git struct {
	Dir    string
	Paths  []string
	Push   bool
	Remote string
	Logger *slog.Logger
	Run    Runner
}

// NewGit returns a Git syncer for paths inside the repository at dir.
func NewGit(dir string, paths []string, push bool, remote string, logger *slog.Logger) *Git {
	return &Git{Dir: dir, Paths: paths, Push: push, Remote: remote, Logger: logger}
}

// Sync commits the state files with summary as the message. A commit with
// no changes counts as success and skips the push.
func (g *Git) Sync(ctx context.Context, summary string) error {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	add := append([]string{"add", "--"}, g.Paths...)
	if _, err := g.run(ctx, add...); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	out, err := g.run(ctx, "commit", "-m", summary)
	if err != nil {
		if nothingToCommit(out) {
			logger.Debug("checkpoint has no changes", slog.String("summary", summary))
			return nil
		}
		return fmt.Errorf("git commit: %w", err)
	}

	if g.Push {
		push := []string{"push"}
		if g.Remote != "" {
			push = append(push, g.Remote)
		}
		if _, err := g.run(ctx, push...); err != nil {
			return fmt.Errorf("git push: %w", err)
		}
	}

	logger.Info("checkpoint committed",
		slog.String("summary", summary),
		slog.Bool("pushed", g.Push),
	)
	return nil
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	run := g.Run
	if run == nil {
		run = execGit
	}
	return run(ctx, g.Dir, args...)
}

func execGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return out, err
		}
		return out, fmt.Errorf("%w: %s", err, msg)
	}
	return out, nil
}

func nothingToCommit(out []byte) bool {
	lower := bytes.ToLower(out)
	return bytes.Contains(lower, []byte("nothing to commit")) ||
		bytes.Contains(lower, []byte("nothing added to commit"))
}
