package executor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/harun/duet/internal/audit"
	"github.com/harun/duet/internal/config"
	"github.com/harun/duet/internal/metrics"
	"github.com/harun/duet/pkg/runner"
	"github.com/harun/duet/pkg/session"
)

// Claude delegates instructions to the claude CLI in headless print mode.
// Sessions are addressed by explicit UUID: new sessions are pinned with
// --session-id so they can be resumed later with --resume.
type Claude struct {
	base
}

// NewClaude creates the claude executor.
func NewClaude(r runner.CommandRunner, store *session.Store, auditLog *audit.Logger, m *metrics.Metrics, cfg config.AssistantConfig) *Claude {
	return &Claude{base: base{
		runner:  r,
		store:   store,
		audit:   auditLog,
		metrics: m,
		cfg:     cfg,
		logger:  log.With().Str("component", "executor").Str("assistant", "claude").Logger(),
	}}
}

// Name implements Executor.
func (c *Claude) Name() string { return "claude" }

// Execute implements Executor.
func (c *Claude) Execute(ctx context.Context, instruction string, opts Options) runner.Outcome {
	cfg := c.config()
	opts = opts.withDefaults()
	res := resolveSession(c.store, opts)

	args := []string{"-p", instruction}
	if res.resume {
		args = append(args, "--resume", res.id)
	} else {
		args = append(args, "--session-id", res.id)
	}
	if cfg.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	c.logger.Info().
		Str("session_id", res.id).
		Bool("resume", res.resume).
		Str("dir", opts.WorkingDir).
		Msg("Delegating to claude")

	out := c.runner.Run(ctx, runner.Request{
		Command: cfg.Binary,
		Args:    args,
		Dir:     opts.WorkingDir,
		Env:     mergeEnv(opts.Env),
		Timeout: timeoutFor(cfg, opts),
	})

	out.SessionID = res.id
	if out.Success && out.Output == "" {
		out.Output = noOutputPlaceholder("claude")
	}

	return c.finish("claude", instruction, opts, res, out, res.id)
}

// IsAvailable implements Executor.
func (c *Claude) IsAvailable(ctx context.Context) bool {
	return c.probe(ctx)
}
