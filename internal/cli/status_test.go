package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusReportsBothAssistants(t *testing.T) {
	writeTestConfig(t)

	out := runCommand(t, "status")

	// The binaries may or may not be installed where the tests run; either
	// way both assistants and the session summary are reported.
	assert.Contains(t, out, "claude:")
	assert.Contains(t, out, "codex:")
	assert.Contains(t, out, "sessions: 0 claude, 0 codex")
}
