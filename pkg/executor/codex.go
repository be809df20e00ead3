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

// Codex delegates instructions to the codex CLI in non-interactive exec
// mode. Codex has no addressable session identifier: continuation is
// "exec resume --last", which picks up whatever session the CLI itself
// recorded most recently for the directory. The session record therefore
// persists only recency and task count, never an ID.
type Codex struct {
	base
}

// NewCodex creates the codex executor.
func NewCodex(r runner.CommandRunner, store *session.Store, auditLog *audit.Logger, m *metrics.Metrics, cfg config.AssistantConfig) *Codex {
	return &Codex{base: base{
		runner:  r,
		store:   store,
		audit:   auditLog,
		metrics: m,
		cfg:     cfg,
		logger:  log.With().Str("component", "executor").Str("assistant", "codex").Logger(),
	}}
}

// Name implements Executor.
func (c *Codex) Name() string { return "codex" }

// Execute implements Executor.
func (c *Codex) Execute(ctx context.Context, instruction string, opts Options) runner.Outcome {
	cfg := c.config()
	opts = opts.withDefaults()
	res := resolveSession(c.store, opts)

	var args []string
	if res.resume {
		args = []string{"exec", "resume", "--last"}
	} else {
		args = []string{"exec"}
	}
	if cfg.FullAuto {
		args = append(args, "--full-auto")
	}
	args = append(args, instruction)

	c.logger.Info().
		Bool("resume", res.resume).
		Str("dir", opts.WorkingDir).
		Msg("Delegating to codex")

	out := c.runner.Run(ctx, runner.Request{
		Command: cfg.Binary,
		Args:    args,
		Dir:     opts.WorkingDir,
		Env:     mergeEnv(opts.Env),
		Timeout: timeoutFor(cfg, opts),
	})

	// No session ID to echo: codex tracks its own sessions internally.
	return c.finish("codex", instruction, opts, res, out, "")
}

// IsAvailable implements Executor.
func (c *Codex) IsAvailable(ctx context.Context) bool {
	return c.probe(ctx)
}
