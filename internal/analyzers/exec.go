package analyzers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrToolUnavailable reports that an external tool could not be run at all:
// missing binary, start failure, or timeout.
var ErrToolUnavailable = errors.New("analysis tool unavailable")

// Command describes how to invoke an external tool. Args from the
// configuration follow the tool's subcommand and precede its own flags.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// result is the captured outcome of one tool invocation.
type result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// run executes the tool with source on stdin. The argument order is sub, then
// the configured Args, then toolArgs. A non-zero exit is not an error: each
// tool gives its exit codes their own meaning.
func (c Command) run(ctx context.Context, sub, toolArgs []string, stdin string) (result, error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return result{}, fmt.Errorf("%w: %s: %v", ErrToolUnavailable, c.Path, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(sub)+len(c.Args)+len(toolArgs))
	args = append(args, sub...)
	args = append(args, c.Args...)
	args = append(args, toolArgs...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	res := result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrToolUnavailable, c.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		return res, nil
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("%w: %s: %v", ErrToolUnavailable, c.Path, runErr)
	}
}

// firstLine returns the first non-empty line of tool output, for error messages.
func firstLine(b []byte) string {
	for _, line := range strings.Split(string(b), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}
