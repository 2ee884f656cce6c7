package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/pyc/internal/config"
	"github.com/Iron-Ham/pyc/internal/errors"
	"github.com/Iron-Ham/pyc/internal/styles"
)

var rootCmd = &cobra.Command{
	Use:   "pyc",
	Short: "Interactive command shell with persistent history",
	Long: `pyc is an interactive command shell front-end.

It edits the command line in place, keeps a numbered history across
sessions, recalls entries with !{index} and searches them incrementally
with Ctrl+R.

Without a subcommand pyc starts an interactive session.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInteractive,
}

// statusError carries a command's exit status out of a cobra RunE without
// printing anything.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitWith converts a shell status into a RunE result.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &statusError{code: code}
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var st *statusError
	if errors.As(err, &st) {
		return st.code
	}
	fmt.Fprintln(os.Stderr, styles.Error.Render("pyc: "+err.Error()))
	return errors.ExitCode(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/pyc/config.yaml)")
	rootCmd.PersistentFlags().String("history-file", "", "history file (default is $HOME/.local/state/pyc/history)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("history.file", rootCmd.PersistentFlags().Lookup("history-file"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/pyc")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PYC")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PYC_HISTORY_MAX_SIZE for history.max_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
