package agent

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/logging"
)

// Runner executes a prepared command line and returns combined stdout.
// It exists so tests can intercept agent invocations without spawning
// processes.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.Wrapf(errors.ErrCommandFailed, "%s failed: %v\nstderr: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", errors.Wrapf(errors.ErrCommandFailed, "failed to run %s: %v", name, err)
	}
	return string(output), nil
}

// CLIExecutor invokes an agent CLI in headless one-shot mode.
type CLIExecutor struct {
	command string
	runner  Runner
	logger  *logging.Logger
}

// CLIOption configures a CLIExecutor.
type CLIOption func(*CLIExecutor)

// WithRunner overrides how the executor spawns the agent command.
func WithRunner(r Runner) CLIOption {
	return func(c *CLIExecutor) {
		c.runner = r
	}
}

// WithLogger sets the executor's logger.
func WithLogger(l *logging.Logger) CLIOption {
	return func(c *CLIExecutor) {
		c.logger = l
	}
}

// NewCLIExecutor creates an executor for the given agent command
// (e.g. "claude").
func NewCLIExecutor(command string, opts ...CLIOption) *CLIExecutor {
	c := &CLIExecutor{
		command: command,
		runner:  execRunner{},
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildArgs assembles the one-shot argument list for a request. The prompt
// is always the final positional argument.
func (c *CLIExecutor) BuildArgs(req Request) []string {
	args := []string{"--print"}
	if req.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(req.MaxTurns))
	}
	if len(req.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(req.AllowedTools, ","))
	}
	if req.DisableExtensions {
		args = append(args, "--strict-mcp-config", "--mcp-config", "{}")
	}
	return append(args, req.Prompt)
}

// Execute runs the agent once and returns its final output.
func (c *CLIExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty prompt")
	}

	c.logger.Debug("invoking agent",
		"command", c.command,
		"workDir", req.WorkDir,
		"maxTurns", req.MaxTurns,
		"promptBytes", len(req.Prompt),
	)

	output, err := c.runner.Run(ctx, req.WorkDir, c.command, c.BuildArgs(req)...)
	if err != nil {
		return nil, err
	}
	return &Result{Output: strings.TrimSpace(output)}, nil
}
