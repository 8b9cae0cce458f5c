// Package gitops provides the git and GitHub operations the merge flow
// depends on. Mutating operations shell out to the git and gh CLIs through
// a CommandExecutor seam so tests can run without a repository; landing
// verification reads history in-process (see landing.go).
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/state"
)

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)

	// RunContext executes a command under a context and returns combined
	// output. Long-running commands (CI watching) go through this path.
	RunContext(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RunContext executes a command under a context and returns combined output.
func (e *CLICommandExecutor) RunContext(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Service is the port the merge flow drives. All paths are worktree
// directories unless noted otherwise.
type Service interface {
	HasUncommittedChanges(dir string) (bool, error)
	CommitAll(dir, message string) error
	Push(dir string) error
	CurrentBranch(dir string) (string, error)
	Fetch(dir, remote, branch string) error

	// CreatePR opens a pull request for the current branch against base
	// and returns its URL and number.
	CreatePR(dir, title, body, base string) (string, int, error)

	// MergePR merges the numbered pull request with a merge commit.
	MergePR(dir string, number int) error

	// MergeBranch merges branch into base locally with a merge commit.
	MergeBranch(dir, branch, base string) error

	// WatchChecks blocks until the branch's CI checks finish or the
	// timeout elapses. A timeout yields a CITimeoutError.
	WatchChecks(ctx context.Context, dir, branch string, timeout time.Duration) error

	// DiffSummary summarizes the branch's changes relative to base.
	DiffSummary(dir, base string) (state.DiffSummary, error)

	// VerifyLanded confirms the branch's tip is an ancestor of base.
	VerifyLanded(dir, branch, base string) error
}

// CLIService implements Service with the git and gh CLIs.
type CLIService struct {
	executor CommandExecutor
}

// NewCLIService creates a CLIService using os/exec.
func NewCLIService() *CLIService {
	return &CLIService{executor: NewCLICommandExecutor()}
}

// NewCLIServiceWithExecutor creates a CLIService with a custom executor.
// This is primarily useful for testing.
func NewCLIServiceWithExecutor(executor CommandExecutor) *CLIService {
	return &CLIService{executor: executor}
}

// HasUncommittedChanges returns true if the worktree has staged or
// unstaged changes.
func (s *CLIService) HasUncommittedChanges(dir string) (bool, error) {
	output, err := s.executor.Run(dir, "git", "status", "--porcelain")
	if err != nil {
		return false, commandError("failed to check git status", output, err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// CommitAll stages and commits all changes with the given message.
// Returns nil if there is nothing to commit.
func (s *CLIService) CommitAll(dir, message string) error {
	output, err := s.executor.Run(dir, "git", "add", "-A")
	if err != nil {
		return commandError("failed to stage changes", output, err)
	}

	output, err = s.executor.Run(dir, "git", "commit", "-m", message)
	if err != nil {
		if strings.Contains(string(output), "nothing to commit") {
			return nil
		}
		return commandError("failed to commit changes", output, err)
	}
	return nil
}

// Push pushes the current branch to origin, setting the upstream.
func (s *CLIService) Push(dir string) error {
	output, err := s.executor.Run(dir, "git", "push", "-u", "origin", "HEAD")
	if err != nil {
		return commandError("failed to push", output, err)
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (s *CLIService) CurrentBranch(dir string) (string, error) {
	output, err := s.executor.Run(dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", commandError("failed to get branch", output, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Fetch updates the remote-tracking ref for branch.
func (s *CLIService) Fetch(dir, remote, branch string) error {
	output, err := s.executor.Run(dir, "git", "fetch", remote, branch)
	if err != nil {
		return commandError("failed to fetch "+remote+"/"+branch, output, err)
	}
	return nil
}

// CreatePR opens a pull request with gh and returns its URL and number.
func (s *CLIService) CreatePR(dir, title, body, base string) (string, int, error) {
	args := []string{"pr", "create", "--title", title, "--body", body}
	if base != "" {
		args = append(args, "--base", base)
	}

	output, err := s.executor.Run(dir, "gh", args...)
	if err != nil {
		return "", 0, commandError("failed to create pull request", output, err)
	}

	url := lastNonEmptyLine(string(output))
	number, err := ParsePRNumber(url)
	if err != nil {
		return url, 0, err
	}
	return url, number, nil
}

// MergePR merges the numbered pull request with a merge commit, keeping
// the feature branch an ancestor of the base branch so landing
// verification can prove the merge.
func (s *CLIService) MergePR(dir string, number int) error {
	output, err := s.executor.Run(dir, "gh", "pr", "merge", strconv.Itoa(number), "--merge")
	if err != nil {
		return commandError("failed to merge pull request", output, err)
	}
	return nil
}

// MergeBranch merges branch into base locally with a merge commit. The
// worktree is left on base.
func (s *CLIService) MergeBranch(dir, branch, base string) error {
	output, err := s.executor.Run(dir, "git", "checkout", base)
	if err != nil {
		return commandError("failed to check out "+base, output, err)
	}

	output, err = s.executor.Run(dir, "git", "merge", "--no-ff", branch, "-m", "Merge branch '"+branch+"'")
	if err != nil {
		outputStr := string(output)
		if strings.Contains(outputStr, "CONFLICT") {
			_, _ = s.executor.Run(dir, "git", "merge", "--abort")
			return commandError("merge conflicts detected - manual resolution required", output, err)
		}
		return commandError("failed to merge "+branch+" into "+base, output, err)
	}
	return nil
}

// WatchChecks blocks until CI checks for the branch finish. Exceeding the
// timeout yields a retryable CITimeoutError rather than ErrCommandFailed.
func (s *CLIService) WatchChecks(ctx context.Context, dir, branch string, timeout time.Duration) error {
	watchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := s.executor.RunContext(watchCtx, dir, "gh", "pr", "checks", branch, "--watch")
	if err != nil {
		if watchCtx.Err() == context.DeadlineExceeded {
			return errors.NewCITimeoutError(branch, time.Since(start))
		}
		return commandError("ci checks failed", output, err)
	}
	return nil
}

// DiffSummary summarizes the branch's changes relative to base using
// three-dot diff semantics.
func (s *CLIService) DiffSummary(dir, base string) (state.DiffSummary, error) {
	var summary state.DiffSummary

	output, err := s.executor.Run(dir, "git", "diff", "--shortstat", base+"...HEAD")
	if err != nil {
		return summary, commandError("failed to diff against "+base, output, err)
	}
	summary = parseShortStat(string(output))

	output, err = s.executor.Run(dir, "git", "rev-list", "--count", base+"..HEAD")
	if err != nil {
		return summary, commandError("failed to count commits", output, err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil {
		return summary, errors.Wrapf(errors.ErrCommandFailed, "failed to parse commit count %q", strings.TrimSpace(string(output)))
	}
	summary.CommitCount = count

	return summary, nil
}

// ParsePRNumber extracts the pull request number from a gh-reported URL
// such as https://github.com/owner/repo/pull/42.
func ParsePRNumber(url string) (int, error) {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "cannot parse pull request number from %q", url)
	}
	number, err := strconv.Atoi(url[idx+1:])
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "cannot parse pull request number from %q", url)
	}
	return number, nil
}

// parseShortStat parses git diff --shortstat output, e.g.
// " 3 files changed, 45 insertions(+), 12 deletions(-)".
func parseShortStat(output string) state.DiffSummary {
	var summary state.DiffSummary
	for _, part := range strings.Split(strings.TrimSpace(output), ",") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(fields[1], "file"):
			summary.FilesChanged = n
		case strings.HasPrefix(fields[1], "insertion"):
			summary.Additions = n
		case strings.HasPrefix(fields[1], "deletion"):
			summary.Deletions = n
		}
	}
	return summary
}

// lastNonEmptyLine returns the final non-blank line of command output.
// gh prints progress lines before the PR URL.
func lastNonEmptyLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// commandError wraps a CLI failure with its captured output.
func commandError(message string, output []byte, err error) error {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return fmt.Errorf("%w: %s: %v", errors.ErrCommandFailed, message, err)
	}
	return fmt.Errorf("%w: %s: %v\noutput: %s", errors.ErrCommandFailed, message, err, trimmed)
}
