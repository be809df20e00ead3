package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/duet/internal/config"
	"github.com/harun/duet/pkg/runner"
	"github.com/harun/duet/pkg/session"
)

const probeTimeout = 10 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check assistant CLI availability",
	Long:  `Probe the configured claude and codex binaries and report session counts.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r := runner.New()
	out := cmd.OutOrStdout()

	for _, probe := range []struct {
		name   string
		binary string
	}{
		{"claude", cfg.Claude.Binary},
		{"codex", cfg.Codex.Binary},
	} {
		result := r.Run(cmd.Context(), runner.Request{
			Command: probe.binary,
			Args:    []string{"--version"},
			Timeout: probeTimeout,
		})
		if result.Success {
			fmt.Fprintf(out, "%s: available (%s)\n", probe.name, firstLine(result.Output))
		} else {
			fmt.Fprintf(out, "%s: unavailable (%s)\n", probe.name, probe.binary)
		}
	}

	claudeStore := session.NewStore(cfg.Sessions.Dir, "claude")
	codexStore := session.NewStore(cfg.Sessions.Dir, "codex")
	fmt.Fprintf(out, "sessions: %d claude, %d codex (%s)\n",
		len(claudeStore.List()), len(codexStore.List()), cfg.Sessions.Dir)

	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
