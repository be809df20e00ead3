package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/duet/internal/metrics"
	"github.com/harun/duet/pkg/executor"
	"github.com/harun/duet/pkg/routing"
	"github.com/harun/duet/pkg/session"
)

// Tool is one callable entry in the tool surface.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`

	schema  *gojsonschema.Schema
	handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ToolDeps are the collaborators the tool handlers operate on.
type ToolDeps struct {
	Claude         executor.Executor
	Codex          executor.Executor
	ClaudeSessions *session.Store
	CodexSessions  *session.Store
	Metrics        *metrics.Metrics
}

// ToolSet holds the registered tools in a stable order.
type ToolSet struct {
	tools []*Tool
	deps  ToolDeps
}

// NewToolSet builds the tool surface. Schema compilation failures are
// programming errors and panic at startup.
func NewToolSet(deps ToolDeps) *ToolSet {
	ts := &ToolSet{deps: deps}

	ts.add(&Tool{
		Name: "delegate_to_claude",
		Description: "Delegate a coding task to the claude CLI in the given working directory. " +
			"Set continueSession to keep the conversation from the previous delegation in that directory.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"instruction": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "The task for claude to perform",
				},
				"workingDir": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Directory to run in; defaults to the bridge's working directory",
				},
				"sessionId": map[string]interface{}{
					"type":        "string",
					"description": "Pin an exact session UUID; always starts a fresh session under that id",
				},
				"continueSession": map[string]interface{}{
					"type":        "boolean",
					"description": "Resume the directory's previous session if one exists; defaults to true",
				},
				"timeoutMs": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Override the configured timeout, in milliseconds",
				},
			},
			"required":             []interface{}{"instruction"},
			"additionalProperties": false,
		},
		handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return ts.delegate(ctx, ts.deps.Claude, args)
		},
	})

	ts.add(&Tool{
		Name: "delegate_to_codex",
		Description: "Delegate a review or fix task to the codex CLI in the given working directory. " +
			"Set continueSession to pick up the most recent codex session for that directory.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"instruction": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "The task for codex to perform",
				},
				"workingDir": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Directory to run in; defaults to the bridge's working directory",
				},
				"continueSession": map[string]interface{}{
					"type":        "boolean",
					"description": "Resume the directory's previous session if one exists; defaults to true",
				},
				"timeoutMs": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Override the configured timeout, in milliseconds",
				},
			},
			"required":             []interface{}{"instruction"},
			"additionalProperties": false,
		},
		handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return ts.delegate(ctx, ts.deps.Codex, args)
		},
	})

	ts.add(&Tool{
		Name: "delegate",
		Description: "Route an instruction by its addressing marker (\"claude: ...\", " +
			"\"hey codex ...\") to the matching assistant.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"instruction": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "The instruction, starting with an addressing marker",
				},
				"workingDir": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Directory to run in; defaults to the bridge's working directory",
				},
				"continueSession": map[string]interface{}{
					"type":        "boolean",
					"description": "Resume the directory's previous session if one exists; defaults to true",
				},
				"timeoutMs": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Override the configured timeout, in milliseconds",
				},
			},
			"required":             []interface{}{"instruction"},
			"additionalProperties": false,
		},
		handler: ts.delegateRouted,
	})

	ts.add(&Tool{
		Name: "clear_session",
		Description: "Forget the persisted session for a working directory so the next " +
			"delegation starts fresh. Clears both assistants unless one is named.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"workingDir": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"description": "Absolute path of the directory whose session to clear",
				},
				"assistant": map[string]interface{}{
					"type":        "string",
					"enum":        []interface{}{"claude", "codex"},
					"description": "Limit clearing to one assistant",
				},
			},
			"required":             []interface{}{"workingDir"},
			"additionalProperties": false,
		},
		handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return ts.clearSession(args)
		},
	})

	ts.add(&Tool{
		Name:        "list_sessions",
		Description: "List the persisted delegation sessions, optionally for one assistant.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"assistant": map[string]interface{}{
					"type":        "string",
					"enum":        []interface{}{"claude", "codex"},
					"description": "Limit listing to one assistant",
				},
			},
			"additionalProperties": false,
		},
		handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return ts.listSessions(args)
		},
	})

	return ts
}

func (ts *ToolSet) add(tool *Tool) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid input schema for tool %s: %v", tool.Name, err))
	}
	tool.schema = schema
	ts.tools = append(ts.tools, tool)
}

// List returns the tool definitions for tools/list.
func (ts *ToolSet) List() []*Tool {
	return ts.tools
}

// Call validates the arguments against the tool's schema and dispatches.
// Validation failures surface as InvalidParams RPC errors, never as tool
// outcomes.
func (ts *ToolSet) Call(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	var tool *Tool
	for _, t := range ts.tools {
		if t.Name == name {
			tool = t
			break
		}
	}
	if tool == nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Unknown tool: %s", name),
		}
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := tool.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid arguments for %s", name),
			Data:    err.Error(),
		}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid arguments for %s", name),
			Data:    details,
		}
	}

	return tool.handler(ctx, args)
}

// delegateRouted picks the assistant from the instruction's addressing
// marker, then delegates with the marker stripped.
func (ts *ToolSet) delegateRouted(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	decision, ok := routing.Detect(stringArg(args, "instruction"))
	if !ok {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "No addressing marker found; start the instruction with \"claude:\" or \"codex:\"",
		}
	}

	target := ts.deps.Claude
	if decision.Target == routing.TargetCodex {
		target = ts.deps.Codex
	}
	args["instruction"] = decision.Instruction
	return ts.delegate(ctx, target, args)
}

// delegate executes one delegation and shapes the outcome as tool content.
func (ts *ToolSet) delegate(ctx context.Context, exec executor.Executor, args map[string]interface{}) (interface{}, error) {
	opts := executor.Options{
		WorkingDir:      stringArg(args, "workingDir"),
		SessionID:       stringArg(args, "sessionId"),
		ContinueSession: true,
	}
	if v, ok := args["continueSession"].(bool); ok {
		opts.ContinueSession = v
	}
	if ms := intArg(args, "timeoutMs"); ms > 0 {
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}

	out := exec.Execute(ctx, stringArg(args, "instruction"), opts)

	result := map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": out.Output},
		},
		"isError": !out.Success,
		"structuredContent": map[string]interface{}{
			"success":    out.Success,
			"state":      string(out.State),
			"durationMs": out.DurationMs,
		},
	}
	if out.SessionID != "" {
		result["structuredContent"].(map[string]interface{})["sessionId"] = out.SessionID
	}
	if out.ExitCode != nil {
		result["structuredContent"].(map[string]interface{})["exitCode"] = *out.ExitCode
	}
	return result, nil
}

func (ts *ToolSet) clearSession(args map[string]interface{}) (interface{}, error) {
	workingDir := stringArg(args, "workingDir")
	assistant := stringArg(args, "assistant")

	var cleared []string
	for _, store := range ts.stores(assistant) {
		if store.Clear(workingDir) {
			cleared = append(cleared, store.Assistant())
			if ts.deps.Metrics != nil {
				ts.deps.Metrics.SessionsCleared.Inc()
			}
		}
	}

	text := "no session found for " + workingDir
	if len(cleared) > 0 {
		text = fmt.Sprintf("cleared %s session(s) for %s", strings.Join(cleared, " and "), workingDir)
	}
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"isError":           false,
		"structuredContent": map[string]interface{}{"cleared": len(cleared) > 0},
	}, nil
}

func (ts *ToolSet) listSessions(args map[string]interface{}) (interface{}, error) {
	assistant := stringArg(args, "assistant")

	sessions := make([]map[string]interface{}, 0)
	for _, store := range ts.stores(assistant) {
		for _, rec := range store.List() {
			entry := map[string]interface{}{
				"assistant":  store.Assistant(),
				"workingDir": rec.WorkingDir,
				"lastUsed":   rec.LastUsed.Format(time.RFC3339),
				"taskCount":  rec.TaskCount,
			}
			if rec.SessionID != "" {
				entry["sessionId"] = rec.SessionID
			}
			sessions = append(sessions, entry)
		}
	}

	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": fmt.Sprintf("%d session(s)", len(sessions))},
		},
		"isError":           false,
		"structuredContent": map[string]interface{}{"sessions": sessions},
	}, nil
}

// stores selects the session stores matching an assistant filter; an empty
// filter selects both.
func (ts *ToolSet) stores(assistant string) []*session.Store {
	var stores []*session.Store
	if (assistant == "" || assistant == "claude") && ts.deps.ClaudeSessions != nil {
		stores = append(stores, ts.deps.ClaudeSessions)
	}
	if (assistant == "" || assistant == "codex") && ts.deps.CodexSessions != nil {
		stores = append(stores, ts.deps.CodexSessions)
	}
	return stores
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
