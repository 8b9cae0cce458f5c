// Package agent abstracts the external AI coding agent behind the
// Executor port. Producer and repair steps invoke the agent with a prompt
// and constrained options; the agent's own side effects (files written,
// commits made) happen in the run's working copy.
package agent

import (
	"context"
)

// Request describes one agent invocation.
type Request struct {
	// Prompt is the full instruction text for the agent.
	Prompt string

	// WorkDir is the working directory the agent operates in.
	WorkDir string

	// MaxTurns caps the agent's interaction turns. Zero means the agent's
	// own default.
	MaxTurns int

	// DisableExtensions turns off agent extensions/MCP servers for narrow
	// tasks such as artifact repair.
	DisableExtensions bool

	// AllowedTools restricts the agent to the named tools. Empty means no
	// restriction.
	AllowedTools []string
}

// Result is the agent's output for one invocation.
type Result struct {
	// Output is the agent's final textual output.
	Output string
}

// Executor invokes the external agent. Implementations own their timeout
// policy; the graph executor treats any returned error as fatal to the
// current invocation and never retries internally.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}
