// Package executor wires session continuity onto the process runner. Each
// assistant CLI gets its own executor because the two tools disagree on how
// sessions are addressed: claude pins explicit UUIDs, codex only knows how
// to resume whatever ran last in a directory.
package executor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harun/duet/internal/audit"
	"github.com/harun/duet/internal/config"
	"github.com/harun/duet/internal/metrics"
	"github.com/harun/duet/pkg/runner"
	"github.com/harun/duet/pkg/session"
)

// Options control a single delegation.
type Options struct {
	// WorkingDir is where the assistant CLI runs. Required.
	WorkingDir string
	// SessionID pins an exact session. A pinned session is always started
	// fresh under that identifier, never resumed.
	SessionID string
	// ContinueSession resumes the directory's previous session when a
	// record exists.
	ContinueSession bool
	// Timeout overrides the configured per-assistant timeout when positive.
	Timeout time.Duration
	// Env entries are overlaid on the parent environment.
	Env map[string]string
}

// Executor runs one instruction against an assistant CLI.
type Executor interface {
	// Name returns the assistant identifier ("claude" or "codex").
	Name() string
	// Execute runs the instruction and returns a resolved outcome. Errors
	// are carried inside the Outcome, never returned.
	Execute(ctx context.Context, instruction string, opts Options) runner.Outcome
	// IsAvailable probes whether the CLI binary is installed and runnable.
	IsAvailable(ctx context.Context) bool
}

// withDefaults fills unset option fields. The working directory defaults to
// the process's own, matching where the caller launched the bridge.
func (o Options) withDefaults() Options {
	if o.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			o.WorkingDir = wd
		}
	}
	return o
}

// resolution is the session decision for one execution.
type resolution struct {
	id        string
	resume    bool
	taskCount int
}

// resolveSession applies the continuation policy. Precedence: an explicit
// pin wins and always starts fresh; otherwise ContinueSession reuses the
// persisted record when one exists; otherwise a new session begins.
func resolveSession(store *session.Store, opts Options) resolution {
	if opts.SessionID != "" {
		return resolution{id: opts.SessionID, resume: false, taskCount: 1}
	}
	if opts.ContinueSession {
		if rec, ok := store.Load(opts.WorkingDir); ok {
			return resolution{id: rec.SessionID, resume: true, taskCount: rec.TaskCount + 1}
		}
	}
	return resolution{id: uuid.NewString(), resume: false, taskCount: 1}
}

// mergeEnv overlays extras on the parent environment. The assistant CLIs
// refuse to start without a home directory, so one is defaulted if the
// parent environment somehow lacks it.
func mergeEnv(extra map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range extra {
		merged[k] = v
	}

	homeKey := "HOME"
	if runtime.GOOS == "windows" {
		homeKey = "USERPROFILE"
	}
	if merged[homeKey] == "" {
		if home, err := os.UserHomeDir(); err == nil {
			merged[homeKey] = home
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// base carries the dependencies shared by both executors.
type base struct {
	runner  runner.CommandRunner
	store   *session.Store
	audit   *audit.Logger
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu  sync.RWMutex
	cfg config.AssistantConfig
}

func (b *base) config() config.AssistantConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// SetConfig applies a hot-reloaded assistant configuration. In-flight
// executions keep the settings they started with.
func (b *base) SetConfig(cfg config.AssistantConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
}

func timeoutFor(cfg config.AssistantConfig, opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}

// finish records metrics and the audit line, and persists the session
// record on success. Shared tail of both Execute implementations.
func (b *base) finish(name, instruction string, opts Options, res resolution, out runner.Outcome, persistedID string) runner.Outcome {
	status := "failure"
	if out.Success {
		status = "success"
	}
	if b.metrics != nil {
		b.metrics.DelegationsTotal.WithLabelValues(name, status).Inc()
		b.metrics.DelegationDuration.WithLabelValues(name).Observe(out.Duration.Seconds())
		switch out.State {
		case runner.StateTimedOut:
			b.metrics.DelegationTimeouts.WithLabelValues(name).Inc()
		case runner.StateSpawnFailed:
			b.metrics.SpawnFailuresTotal.WithLabelValues(name).Inc()
		}
	}

	b.audit.RecordDelegation("user->"+name, res.resume, persistedID, instruction, out.Success)

	if out.Success {
		b.store.Save(opts.WorkingDir, session.Record{
			WorkingDir: opts.WorkingDir,
			SessionID:  persistedID,
			LastUsed:   time.Now(),
			TaskCount:  res.taskCount,
		})
	}

	b.logger.Info().
		Str("status", status).
		Str("state", string(out.State)).
		Bool("continued", res.resume).
		Dur("duration", out.Duration).
		Msg("Delegation finished")

	return out
}

// probe checks the binary responds to --version within a short deadline.
func (b *base) probe(ctx context.Context) bool {
	out := b.runner.Run(ctx, runner.Request{
		Command: b.config().Binary,
		Args:    []string{"--version"},
		Timeout: 10 * time.Second,
	})
	return out.Success
}

// noOutputPlaceholder keeps empty successful runs from reading like
// failures on the caller's side.
func noOutputPlaceholder(name string) string {
	return fmt.Sprintf("(%s completed without producing output)", name)
}
