package runner

import (
	"regexp"
	"strings"
	"time"
)

// State identifies the terminal state of one CLI invocation.
type State string

const (
	StateClosedOK      State = "closed_ok"
	StateClosedNonzero State = "closed_nonzero"
	StateTimedOut      State = "timed_out"
	StateSpawnFailed   State = "spawn_failed"
	StateRuntimeError  State = "runtime_error"
)

// Outcome is the structured result of one CLI invocation. It is built once
// per Run call and never persisted; only session records are.
type Outcome struct {
	Success   bool          `json:"success"`
	Output    string        `json:"output"`
	ExitCode  *int          `json:"exitCode"` // nil when the process never exited observably
	Duration  time.Duration `json:"-"`
	DurationMs int64        `json:"durationMs"`
	SessionID string        `json:"sessionId,omitempty"`
	State     State         `json:"state"`
}

var (
	// CSI sequences (colors, cursor movement) and OSC sequences (titles, links).
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
	// Remaining control characters except tab and newline.
	ctrlPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// CleanOutput strips terminal escape sequences and normalizes line endings.
// The codex CLI decorates its output with ANSI color codes even when piped;
// for claude this is a no-op.
func CleanOutput(s string) string {
	s = csiPattern.ReplaceAllString(s, "")
	s = oscPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = ctrlPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
