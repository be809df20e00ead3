// Package routing detects delegation triggers in free-form text and decides
// which assistant an instruction is addressed to.
package routing

import (
	"regexp"
	"strings"
)

// Target identifies the assistant an instruction is routed to.
type Target string

const (
	TargetClaude Target = "claude"
	TargetCodex  Target = "codex"
)

// Decision is the outcome of trigger detection: where to route and the
// instruction with the trigger marker stripped.
type Decision struct {
	Target      Target
	Instruction string
}

// trigger is one recognizable marker form. Patterns anchor at the start of
// the text and capture the remaining instruction.
type trigger struct {
	target  Target
	pattern *regexp.Regexp
}

// Marker forms, most specific first. All matching is case-insensitive and
// tolerant of leading whitespace.
var triggers = []trigger{
	{TargetCodex, regexp.MustCompile(`(?is)^\s*codex\s*[:,]\s*(.+)$`)},
	{TargetCodex, regexp.MustCompile(`(?is)^\s*(?:hey|ask|tell)\s+codex\b\s*[:,]?\s*(.+)$`)},
	{TargetClaude, regexp.MustCompile(`(?is)^\s*claude\s*[:,]\s*(.+)$`)},
	{TargetClaude, regexp.MustCompile(`(?is)^\s*(?:hey|ask|tell)\s+claude\b\s*[:,]?\s*(.+)$`)},
}

// Detect scans text for a delegation trigger. It returns the routing
// decision and true when a marker is found; the returned instruction has
// the marker removed and surrounding whitespace trimmed.
func Detect(text string) (Decision, bool) {
	for _, t := range triggers {
		if m := t.pattern.FindStringSubmatch(text); m != nil {
			instruction := strings.TrimSpace(m[1])
			if instruction == "" {
				continue
			}
			return Decision{Target: t.target, Instruction: instruction}, true
		}
	}
	return Decision{}, false
}
