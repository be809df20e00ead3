package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantTarget  Target
		wantInstr   string
		wantMatched bool
	}{
		{"codex colon", "codex: review the diff", TargetCodex, "review the diff", true},
		{"codex comma", "codex, run the tests", TargetCodex, "run the tests", true},
		{"hey codex", "hey codex fix the lint errors", TargetCodex, "fix the lint errors", true},
		{"ask codex with colon", "ask codex: is this thread safe?", TargetCodex, "is this thread safe?", true},
		{"tell codex", "tell codex to refactor this", TargetCodex, "to refactor this", true},
		{"claude colon", "claude: implement the parser", TargetClaude, "implement the parser", true},
		{"hey claude", "hey claude add a test for this", TargetClaude, "add a test for this", true},
		{"case insensitive", "CODEX: Review THIS", TargetCodex, "Review THIS", true},
		{"leading whitespace", "   codex: trimmed", TargetCodex, "trimmed", true},
		{"multiline instruction", "claude: first line\nsecond line", TargetClaude, "first line\nsecond line", true},
		{"no trigger", "just a normal message", "", "", false},
		{"trigger mid-sentence", "I think codex: should not fire", "", "", false},
		{"bare marker without instruction", "codex:", "", "", false},
		{"marker with only whitespace", "hey claude   ", "", "", false},
		{"prefix of another word", "ask codexify something", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, ok := Detect(tt.text)
			require.Equal(t, tt.wantMatched, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantTarget, decision.Target)
			assert.Equal(t, tt.wantInstr, decision.Instruction)
		})
	}
}
