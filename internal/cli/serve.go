package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/duet/internal/audit"
	"github.com/harun/duet/internal/config"
	"github.com/harun/duet/internal/logger"
	"github.com/harun/duet/internal/metrics"
	"github.com/harun/duet/pkg/executor"
	"github.com/harun/duet/pkg/gateway"
	"github.com/harun/duet/pkg/runner"
	"github.com/harun/duet/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the delegation tools over stdio",
	Long: `Serve the delegation tool surface as a JSON-RPC server on stdin/stdout.
This is the mode a tool-calling client launches duet in. All logging goes
to stderr and the log file; stdout carries only protocol traffic.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()

	m := metrics.NewMetrics()

	auditLog := audit.New(cfg.AuditLog)
	defer auditLog.Close()

	claudeStore := session.NewStore(cfg.Sessions.Dir, "claude")
	codexStore := session.NewStore(cfg.Sessions.Dir, "codex")
	m.SessionsActive.Set(float64(len(claudeStore.List()) + len(codexStore.List())))

	r := runner.New()
	claude := executor.NewClaude(r, claudeStore, auditLog, m, cfg.Claude)
	codex := executor.NewCodex(r, codexStore, auditLog, m, cfg.Codex)

	cleanup := session.NewCleanup(
		[]*session.Store{claudeStore, codexStore},
		time.Duration(cfg.Sessions.MaxAgeDays)*24*time.Hour,
	)
	if cfg.Sessions.MaxAgeDays > 0 {
		if err := cleanup.Start(cfg.Sessions.CleanupSchedule); err != nil {
			return fmt.Errorf("failed to start session cleanup: %w", err)
		}
		defer cleanup.Stop()
	}

	watcher, err := config.NewWatcher(loader, func(next *config.Config) {
		claude.SetConfig(next.Claude)
		codex.SetConfig(next.Codex)
	})
	if err == nil {
		if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable, edits require a restart")
		} else {
			defer watcher.Stop()
		}
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	tools := gateway.NewToolSet(gateway.ToolDeps{
		Claude:         claude,
		Codex:          codex,
		ClaudeSessions: claudeStore,
		CodexSessions:  codexStore,
		Metrics:        m,
	})
	srv := gateway.NewServer(os.Stdin, os.Stdout, tools, "duet", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
