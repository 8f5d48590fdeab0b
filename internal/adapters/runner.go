package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
)

// Command is one subprocess invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string
	Stdin io.Reader
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output is what a finished subprocess produced. A non-zero exit is reported
// here, not as an error, because linters use it to signal findings.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it. The error is non-nil only when the
// process could not be started or the context was cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return out, forgeerrors.NewIOError(forgeerrors.ErrCodeToolNotFound,
			fmt.Sprintf("%s not found; install it or set its command in .wpforge.yml", cmd.Name), err)
	}
	return out, forgeerrors.NewIOError(forgeerrors.ErrCodeToolFailed,
		fmt.Sprintf("starting %s", cmd.Name), err)
}

// tool is the configured executable prefix of an external adapter.
type tool struct {
	command string
	args    []string
}

func newTool(cfg config.ToolConfig) tool {
	return tool{command: cfg.Command, args: append([]string(nil), cfg.Args...)}
}

// cmdline builds a Command for this tool with extra arguments appended.
func (t tool) cmdline(dir string, args ...string) Command {
	all := make([]string, 0, len(t.args)+len(args))
	all = append(all, t.args...)
	all = append(all, args...)
	return Command{Name: t.command, Args: all, Dir: dir}
}

// toolFailure reports a tool that exited non-zero without producing a
// parseable result.
func toolFailure(name string, out Output) error {
	msg := strings.TrimSpace(string(out.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(out.Stdout))
	}
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", out.ExitCode)
	}
	return forgeerrors.NewIOError(forgeerrors.ErrCodeToolFailed,
		fmt.Sprintf("%s failed", name), errors.New(msg))
}
