package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git commands.
type Runner interface {
	Exec(ctx context.Context, dir string, args ...string) (string, error)
}

// CommandError carries the exit code and stderr of a failed git command.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s failed (exit %d): %s",
		strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

// ExitCode returns the exit code of err if it is a CommandError, or -1.
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

// osRunner executes real git commands via exec.CommandContext.
type osRunner struct{}

func (osRunner) Exec(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Stdout is still returned; merge-tree reports conflicts on
			// exit 1 with the detail on stdout.
			return stdout.String(), &CommandError{
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return stdout.String(), nil
}

// limitRunner bounds concurrent git subprocesses with a semaphore.
type limitRunner struct {
	inner Runner
	sem   chan struct{}
}

func (r *limitRunner) Exec(ctx context.Context, dir string, args ...string) (string, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.inner.Exec(ctx, dir, args...)
}

// NewRunner returns a Runner that shells out to git, allowing at most
// concurrency subprocesses at a time.
func NewRunner(concurrency int) Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &limitRunner{
		inner: osRunner{},
		sem:   make(chan struct{}, concurrency),
	}
}
