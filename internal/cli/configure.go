package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/duet/internal/config"
)

var (
	configureClaudeBinary    string
	configureCodexBinary     string
	configureClaudeTimeoutMs int64
	configureCodexTimeoutMs  int64
	configureSkipPermissions bool
	configureFullAuto        bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the configuration file",
	Long: `Write the configuration file with the given settings. Existing values
are loaded first, so repeated runs only change the flags you pass.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureClaudeBinary, "claude-binary", "", "path to the claude CLI")
	configureCmd.Flags().StringVar(&configureCodexBinary, "codex-binary", "", "path to the codex CLI")
	configureCmd.Flags().Int64Var(&configureClaudeTimeoutMs, "claude-timeout-ms", 0, "claude delegation timeout in milliseconds")
	configureCmd.Flags().Int64Var(&configureCodexTimeoutMs, "codex-timeout-ms", 0, "codex delegation timeout in milliseconds")
	configureCmd.Flags().BoolVar(&configureSkipPermissions, "skip-permissions", false, "pass --dangerously-skip-permissions to claude")
	configureCmd.Flags().BoolVar(&configureFullAuto, "full-auto", false, "pass --full-auto to codex")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}

	if configureClaudeBinary != "" {
		cfg.Claude.Binary = configureClaudeBinary
	}
	if configureCodexBinary != "" {
		cfg.Codex.Binary = configureCodexBinary
	}
	if configureClaudeTimeoutMs > 0 {
		cfg.Claude.TimeoutMs = configureClaudeTimeoutMs
	}
	if configureCodexTimeoutMs > 0 {
		cfg.Codex.TimeoutMs = configureCodexTimeoutMs
	}
	if cmd.Flags().Changed("skip-permissions") {
		cfg.Claude.SkipPermissions = configureSkipPermissions
	}
	if cmd.Flags().Changed("full-auto") {
		cfg.Codex.FullAuto = configureFullAuto
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", loader.GetConfigPath())
	return nil
}
