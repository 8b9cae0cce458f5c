package gitops

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pipewright/pipewright/internal/errors"
)

// mockExecutor returns canned responses keyed by the joined command line
// and records every invocation.
type mockExecutor struct {
	responses map[string]mockResponse
	calls     []string
	ctxErr    error
}

type mockResponse struct {
	output string
	err    error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{responses: map[string]mockResponse{}}
}

func (m *mockExecutor) respond(cmdLine, output string, err error) {
	m.responses[cmdLine] = mockResponse{output: output, err: err}
}

func (m *mockExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmdLine := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, cmdLine)
	if resp, ok := m.responses[cmdLine]; ok {
		return []byte(resp.output), resp.err
	}
	return nil, nil
}

func (m *mockExecutor) RunContext(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	if m.ctxErr != nil {
		// Simulate the process being killed when the deadline passes.
		deadline, ok := ctx.Deadline()
		if ok {
			time.Sleep(time.Until(deadline) + time.Millisecond)
		}
		return nil, m.ctxErr
	}
	return m.Run(dir, name, args...)
}

func (m *mockExecutor) called(cmdLine string) bool {
	for _, c := range m.calls {
		if c == cmdLine {
			return true
		}
	}
	return false
}

func TestHasUncommittedChanges(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"clean", "", false},
		{"whitespace only", "\n  \n", false},
		{"dirty", " M internal/engine/engine.go\n?? notes.txt\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newMockExecutor()
			exec.respond("git status --porcelain", tt.output, nil)

			got, err := NewCLIServiceWithExecutor(exec).HasUncommittedChanges("/work")
			if err != nil {
				t.Fatalf("HasUncommittedChanges: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommitAll_NothingToCommit(t *testing.T) {
	exec := newMockExecutor()
	exec.respond("git commit -m checkpoint", "nothing to commit, working tree clean", fmt.Errorf("exit status 1"))

	if err := NewCLIServiceWithExecutor(exec).CommitAll("/work", "checkpoint"); err != nil {
		t.Errorf("a clean tree must not be an error, got: %v", err)
	}
	if !exec.called("git add -A") {
		t.Error("expected changes to be staged first")
	}
}

func TestCommitAll_Failure(t *testing.T) {
	exec := newMockExecutor()
	exec.respond("git commit -m checkpoint", "fatal: bad object", fmt.Errorf("exit status 128"))

	err := NewCLIServiceWithExecutor(exec).CommitAll("/work", "checkpoint")
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got: %v", err)
	}
	if !strings.Contains(err.Error(), "bad object") {
		t.Errorf("error should carry git output, got: %v", err)
	}
}

func TestCreatePR_ParsesURLAndNumber(t *testing.T) {
	exec := newMockExecutor()
	exec.respond(
		"gh pr create --title Add login --body body --base main",
		"Creating pull request for feature/login into main\nhttps://github.com/acme/app/pull/42\n",
		nil,
	)

	url, number, err := NewCLIServiceWithExecutor(exec).CreatePR("/work", "Add login", "body", "main")
	if err != nil {
		t.Fatalf("CreatePR: %v", err)
	}
	if url != "https://github.com/acme/app/pull/42" {
		t.Errorf("url = %q", url)
	}
	if number != 42 {
		t.Errorf("number = %d, want 42", number)
	}
}

func TestMergeBranch_ConflictAborts(t *testing.T) {
	exec := newMockExecutor()
	exec.respond(
		"git merge --no-ff feature/login -m Merge branch 'feature/login'",
		"CONFLICT (content): Merge conflict in internal/routes.go",
		fmt.Errorf("exit status 1"),
	)

	err := NewCLIServiceWithExecutor(exec).MergeBranch("/work", "feature/login", "main")
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got: %v", err)
	}
	if !exec.called("git merge --abort") {
		t.Error("conflicting merge must be aborted")
	}
}

func TestWatchChecks_Timeout(t *testing.T) {
	exec := newMockExecutor()
	exec.ctxErr = fmt.Errorf("signal: killed")

	err := NewCLIServiceWithExecutor(exec).WatchChecks(context.Background(), "/work", "feature/login", 10*time.Millisecond)
	if !errors.Is(err, errors.ErrCITimeout) {
		t.Fatalf("expected ErrCITimeout, got: %v", err)
	}
	if errors.Is(err, errors.ErrCommandFailed) {
		t.Error("a timeout must be distinguishable from a command failure")
	}

	var timeoutErr *errors.CITimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatal("expected a CITimeoutError")
	}
	if timeoutErr.Branch != "feature/login" {
		t.Errorf("Branch = %q", timeoutErr.Branch)
	}
	if !errors.IsRetryable(err) {
		t.Error("CI timeout should be retryable")
	}
}

func TestWatchChecks_CommandFailure(t *testing.T) {
	exec := newMockExecutor()
	exec.respond("gh pr checks feature/login --watch", "some checks failed", fmt.Errorf("exit status 1"))

	err := NewCLIServiceWithExecutor(exec).WatchChecks(context.Background(), "/work", "feature/login", time.Minute)
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got: %v", err)
	}
}

func TestDiffSummary(t *testing.T) {
	exec := newMockExecutor()
	exec.respond("git diff --shortstat main...HEAD", " 3 files changed, 45 insertions(+), 12 deletions(-)\n", nil)
	exec.respond("git rev-list --count main..HEAD", "4\n", nil)

	summary, err := NewCLIServiceWithExecutor(exec).DiffSummary("/work", "main")
	if err != nil {
		t.Fatalf("DiffSummary: %v", err)
	}
	if summary.FilesChanged != 3 || summary.Additions != 45 || summary.Deletions != 12 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.CommitCount != 4 {
		t.Errorf("CommitCount = %d, want 4", summary.CommitCount)
	}
}

func TestParseShortStat_Variants(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		files   int
		adds    int
		deletes int
	}{
		{"empty diff", "", 0, 0, 0},
		{"single file singular", " 1 file changed, 1 insertion(+)", 1, 1, 0},
		{"deletions only", " 2 files changed, 7 deletions(-)", 2, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parseShortStat(tt.output)
			if s.FilesChanged != tt.files || s.Additions != tt.adds || s.Deletions != tt.deletes {
				t.Errorf("parseShortStat(%q) = %+v", tt.output, s)
			}
		})
	}
}

func TestParsePRNumber(t *testing.T) {
	if _, err := ParsePRNumber("not a url"); err == nil {
		t.Error("expected error for unparseable URL")
	}
	n, err := ParsePRNumber("https://github.com/acme/app/pull/7")
	if err != nil || n != 7 {
		t.Errorf("got (%d, %v), want (7, nil)", n, err)
	}
}
