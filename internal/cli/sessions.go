package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/duet/internal/config"
	"github.com/harun/duet/pkg/session"
)

var sessionsAssistant string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage persisted delegation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions",
	RunE:  runSessionsList,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <working-dir>",
	Short: "Forget the session for a working directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove sessions older than the configured maximum age",
	RunE:  runSessionsSweep,
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsAssistant, "assistant", "", "limit to one assistant (claude or codex)")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsCmd.AddCommand(sessionsSweepCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func selectedStores(cfg *config.Config) ([]*session.Store, error) {
	switch sessionsAssistant {
	case "":
		return []*session.Store{
			session.NewStore(cfg.Sessions.Dir, "claude"),
			session.NewStore(cfg.Sessions.Dir, "codex"),
		}, nil
	case "claude", "codex":
		return []*session.Store{session.NewStore(cfg.Sessions.Dir, sessionsAssistant)}, nil
	default:
		return nil, fmt.Errorf("unknown assistant %q (expected claude or codex)", sessionsAssistant)
	}
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stores, err := selectedStores(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	total := 0
	for _, store := range stores {
		for _, rec := range store.List() {
			total++
			line := fmt.Sprintf("%-7s %s  tasks=%d  last=%s",
				store.Assistant(), rec.WorkingDir, rec.TaskCount, rec.LastUsed.Format(time.RFC3339))
			if rec.SessionID != "" {
				line += "  session=" + rec.SessionID
			}
			fmt.Fprintln(out, line)
		}
	}
	if total == 0 {
		fmt.Fprintln(out, "no sessions")
	}
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stores, err := selectedStores(cfg)
	if err != nil {
		return err
	}

	workingDir := args[0]
	var cleared []string
	for _, store := range stores {
		if store.Clear(workingDir) {
			cleared = append(cleared, store.Assistant())
		}
	}

	out := cmd.OutOrStdout()
	if len(cleared) == 0 {
		fmt.Fprintf(out, "no session found for %s\n", workingDir)
	} else {
		fmt.Fprintf(out, "cleared %s session(s) for %s\n", strings.Join(cleared, " and "), workingDir)
	}
	return nil
}

func runSessionsSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stores, err := selectedStores(cfg)
	if err != nil {
		return err
	}

	cleanup := session.NewCleanup(stores, time.Duration(cfg.Sessions.MaxAgeDays)*24*time.Hour)
	removed := cleanup.Sweep()
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale session(s)\n", removed)
	return nil
}
