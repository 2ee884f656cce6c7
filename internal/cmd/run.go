package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyc/internal/config"
	"github.com/Iron-Ham/pyc/internal/shell"
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a single command and exit with its status",
	Long: `Run one command the way the interactive shell would, with alias
expansion and builtins, then exit with the command's status.

Examples:
  pyc run -- ls -la
  pyc run -- ll        # expands the "ll" alias from the config file`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SetInterspersed(false)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	code := shell.RunOnce(cmd.Context(), args,
		shell.WithAliases(cfg.Aliases),
		shell.WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)
	return exitWith(code)
}
