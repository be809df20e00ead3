package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/duet/pkg/executor"
	"github.com/harun/duet/pkg/runner"
	"github.com/harun/duet/pkg/session"
)

// fakeExecutor records calls and returns a scripted outcome.
type fakeExecutor struct {
	name      string
	lastInstr string
	lastOpts  executor.Options
	outcome   runner.Outcome
	available bool
}

func (f *fakeExecutor) Name() string { return f.name }

func (f *fakeExecutor) Execute(_ context.Context, instruction string, opts executor.Options) runner.Outcome {
	f.lastInstr = instruction
	f.lastOpts = opts
	return f.outcome
}

func (f *fakeExecutor) IsAvailable(context.Context) bool { return f.available }

func newToolSetForTest(t *testing.T) (*ToolSet, *fakeExecutor, *fakeExecutor, *session.Store, *session.Store) {
	t.Helper()
	claude := &fakeExecutor{name: "claude", outcome: runner.Outcome{Success: true, Output: "done", SessionID: "sess-1", State: runner.StateClosedOK}}
	codex := &fakeExecutor{name: "codex", outcome: runner.Outcome{Success: true, Output: "reviewed", State: runner.StateClosedOK}}
	claudeStore := session.NewStore(t.TempDir(), "claude")
	codexStore := session.NewStore(t.TempDir(), "codex")

	ts := NewToolSet(ToolDeps{
		Claude:         claude,
		Codex:          codex,
		ClaudeSessions: claudeStore,
		CodexSessions:  codexStore,
	})
	return ts, claude, codex, claudeStore, codexStore
}

func TestToolSet_ListsAllTools(t *testing.T) {
	ts, _, _, _, _ := newToolSetForTest(t)

	names := make([]string, 0)
	for _, tool := range ts.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"delegate_to_claude", "delegate_to_codex", "delegate", "clear_session", "list_sessions"}, names)
}

func TestToolSet_DelegateToClaude(t *testing.T) {
	ts, claude, _, _, _ := newToolSetForTest(t)

	result, err := ts.Call(context.Background(), "delegate_to_claude", map[string]interface{}{
		"instruction":     "fix the bug",
		"workingDir":      "/tmp/project",
		"continueSession": true,
		"timeoutMs":       float64(30000),
	})
	require.NoError(t, err)

	assert.Equal(t, "fix the bug", claude.lastInstr)
	assert.Equal(t, "/tmp/project", claude.lastOpts.WorkingDir)
	assert.True(t, claude.lastOpts.ContinueSession)
	assert.Equal(t, 30*time.Second, claude.lastOpts.Timeout)

	m := result.(map[string]interface{})
	assert.Equal(t, false, m["isError"])
	sc := m["structuredContent"].(map[string]interface{})
	assert.Equal(t, "sess-1", sc["sessionId"])
}

func TestToolSet_DelegateFailureIsToolError(t *testing.T) {
	ts, claude, _, _, _ := newToolSetForTest(t)
	claude.outcome = runner.Outcome{Success: false, Output: "boom", State: runner.StateClosedNonzero}

	result, err := ts.Call(context.Background(), "delegate_to_claude", map[string]interface{}{
		"instruction": "task",
		"workingDir":  "/tmp/project",
	})
	require.NoError(t, err, "execution failures are outcomes, not RPC errors")

	m := result.(map[string]interface{})
	assert.Equal(t, true, m["isError"])
}

func TestToolSet_ValidationFailures(t *testing.T) {
	ts, _, _, _, _ := newToolSetForTest(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing instruction", "delegate_to_claude", map[string]interface{}{"workingDir": "/tmp"}},
		{"empty working dir", "delegate_to_claude", map[string]interface{}{"instruction": "x", "workingDir": ""}},
		{"empty instruction", "delegate_to_codex", map[string]interface{}{"instruction": "", "workingDir": "/tmp"}},
		{"unknown property", "delegate_to_codex", map[string]interface{}{"instruction": "x", "workingDir": "/tmp", "bogus": 1}},
		{"codex rejects session pin", "delegate_to_codex", map[string]interface{}{"instruction": "x", "workingDir": "/tmp", "sessionId": "abc"}},
		{"bad assistant", "clear_session", map[string]interface{}{"workingDir": "/tmp", "assistant": "gemini"}},
		{"nil args", "clear_session", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Call(context.Background(), tt.tool, tt.args)
			var rpcErr *RPCError
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, InvalidParams, rpcErr.Code)
		})
	}
}

func TestToolSet_DelegateDefaultsToContinue(t *testing.T) {
	ts, claude, _, _, _ := newToolSetForTest(t)

	_, err := ts.Call(context.Background(), "delegate_to_claude", map[string]interface{}{
		"instruction": "task",
		"workingDir":  "/tmp/project",
	})
	require.NoError(t, err)
	assert.True(t, claude.lastOpts.ContinueSession)

	_, err = ts.Call(context.Background(), "delegate_to_claude", map[string]interface{}{
		"instruction":     "task",
		"workingDir":      "/tmp/project",
		"continueSession": false,
	})
	require.NoError(t, err)
	assert.False(t, claude.lastOpts.ContinueSession)
}

func TestToolSet_RoutedDelegate(t *testing.T) {
	ts, claude, codex, _, _ := newToolSetForTest(t)

	_, err := ts.Call(context.Background(), "delegate", map[string]interface{}{
		"instruction": "codex: review the diff",
		"workingDir":  "/tmp/project",
	})
	require.NoError(t, err)
	assert.Equal(t, "review the diff", codex.lastInstr)

	_, err = ts.Call(context.Background(), "delegate", map[string]interface{}{
		"instruction": "hey claude add tests",
		"workingDir":  "/tmp/project",
	})
	require.NoError(t, err)
	assert.Equal(t, "add tests", claude.lastInstr)
}

func TestToolSet_RoutedDelegateWithoutMarker(t *testing.T) {
	ts, _, _, _, _ := newToolSetForTest(t)

	_, err := ts.Call(context.Background(), "delegate", map[string]interface{}{
		"instruction": "no marker here",
	})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, InvalidParams, rpcErr.Code)
}

func TestToolSet_UnknownTool(t *testing.T) {
	ts, _, _, _, _ := newToolSetForTest(t)

	_, err := ts.Call(context.Background(), "delete_everything", map[string]interface{}{})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, InvalidParams, rpcErr.Code)
}

func TestToolSet_ClearSession(t *testing.T) {
	ts, _, _, claudeStore, codexStore := newToolSetForTest(t)
	dir := t.TempDir()

	claudeStore.Save(dir, session.Record{WorkingDir: dir, SessionID: "s1", LastUsed: time.Now(), TaskCount: 1})
	codexStore.Save(dir, session.Record{WorkingDir: dir, LastUsed: time.Now(), TaskCount: 3})

	result, err := ts.Call(context.Background(), "clear_session", map[string]interface{}{"workingDir": dir})
	require.NoError(t, err)

	_, claudeLeft := claudeStore.Load(dir)
	_, codexLeft := codexStore.Load(dir)
	assert.False(t, claudeLeft)
	assert.False(t, codexLeft)

	m := result.(map[string]interface{})
	text := m["content"].([]map[string]interface{})[0]["text"].(string)
	assert.Contains(t, text, "cleared")
}

func TestToolSet_ClearSessionScopedToAssistant(t *testing.T) {
	ts, _, _, claudeStore, codexStore := newToolSetForTest(t)
	dir := t.TempDir()

	claudeStore.Save(dir, session.Record{WorkingDir: dir, SessionID: "s1", LastUsed: time.Now(), TaskCount: 1})
	codexStore.Save(dir, session.Record{WorkingDir: dir, LastUsed: time.Now(), TaskCount: 1})

	_, err := ts.Call(context.Background(), "clear_session", map[string]interface{}{
		"workingDir": dir,
		"assistant":  "codex",
	})
	require.NoError(t, err)

	_, claudeLeft := claudeStore.Load(dir)
	_, codexLeft := codexStore.Load(dir)
	assert.True(t, claudeLeft, "claude session must survive a codex-scoped clear")
	assert.False(t, codexLeft)
}

func TestToolSet_ClearSessionNothingToClear(t *testing.T) {
	ts, _, _, _, _ := newToolSetForTest(t)

	result, err := ts.Call(context.Background(), "clear_session", map[string]interface{}{"workingDir": t.TempDir()})
	require.NoError(t, err)

	m := result.(map[string]interface{})
	assert.Equal(t, false, m["isError"])
	text := m["content"].([]map[string]interface{})[0]["text"].(string)
	assert.Contains(t, text, "no session")
}

func TestToolSet_ListSessions(t *testing.T) {
	ts, _, _, claudeStore, codexStore := newToolSetForTest(t)

	claudeStore.Save("/tmp/a", session.Record{WorkingDir: "/tmp/a", SessionID: "s1", LastUsed: time.Now(), TaskCount: 2})
	codexStore.Save("/tmp/b", session.Record{WorkingDir: "/tmp/b", LastUsed: time.Now(), TaskCount: 1})

	result, err := ts.Call(context.Background(), "list_sessions", map[string]interface{}{})
	require.NoError(t, err)

	m := result.(map[string]interface{})
	sessions := m["structuredContent"].(map[string]interface{})["sessions"].([]map[string]interface{})
	require.Len(t, sessions, 2)

	scoped, err := ts.Call(context.Background(), "list_sessions", map[string]interface{}{"assistant": "claude"})
	require.NoError(t, err)
	sessions = scoped.(map[string]interface{})["structuredContent"].(map[string]interface{})["sessions"].([]map[string]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "claude", sessions[0]["assistant"])
}
