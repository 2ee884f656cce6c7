package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/pyc/internal/config"
	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/logging"
	"github.com/Iron-Ham/pyc/internal/shell"
	"github.com/Iron-Ham/pyc/internal/styles"
	"github.com/Iron-Ham/pyc/internal/terminal"
)

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	defer logger.Close()

	store := openHistory(cmd, cfg, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("history close failed", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	opts := shell.Options{
		Config:   cfg,
		History:  store,
		Terminal: terminal.Stdio(),
		Logger:   logger,
		Stderr:   os.Stderr,
	}

	if path := viper.ConfigFileUsed(); path != "" {
		watcher, err := config.NewWatcher(path)
		if err != nil {
			logger.Warn("config watch disabled", "path", path, "error", err.Error())
		} else {
			defer watcher.Close()
			go logWatchErrors(ctx, watcher, logger)
			opts.Changes = watcher.Changes()
			opts.Reload = func() (*config.Config, error) {
				return config.Reload(viper.GetViper())
			}
		}
	}

	code, err := shell.New(opts).Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return exitWith(code)
}

// newLogger opens the session log when logging is enabled. A log that cannot
// be opened is reported once and replaced by a no-op logger.
func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLogger(config.StateDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		warn(cmd, "logging disabled: %v", err)
		return logging.NopLogger()
	}
	return logger.WithSession(logging.NewSessionID())
}

// openHistory loads the history file. When the file cannot be opened the
// shell still runs with history kept in memory.
func openHistory(cmd *cobra.Command, cfg *config.Config, logger *logging.Logger) *history.Store {
	opts := history.Options{
		MaxSize: cfg.History.MaxSize,
		Ignore:  cfg.History.Ignore,
	}

	path := cfg.History.HistoryFile()
	var store *history.Store
	fileLog, err := history.OpenFileLog(path)
	if err == nil {
		store, err = history.Open(fileLog, opts)
		if err != nil {
			_ = fileLog.Close()
		}
	}
	if err != nil {
		logger.Warn("history unavailable", "path", path, "error", err.Error())
		warn(cmd, "history not saved: %v", err)
		// A nil log cannot fail to load.
		store, _ = history.Open(nil, opts)
	}
	return store
}

func logWatchErrors(ctx context.Context, w *config.Watcher, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Warn("config watch error", "path", w.Path(), "error", err.Error())
		}
	}
}

func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.ErrOrStderr(), styles.Warning.Render("pyc: "+fmt.Sprintf(format, args...)))
}
