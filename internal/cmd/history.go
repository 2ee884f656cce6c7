package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyc/internal/config"
	"github.com/Iron-Ham/pyc/internal/errors"
	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/styles"
	"github.com/Iron-Ham/pyc/internal/util"
)

// maxCommandWidth bounds the command column of `history list`.
const maxCommandWidth = 80

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the command history",
	Long: `Inspect or clear the persistent command history.

Entries are numbered from 1 in the order they were run. The numbers are
the ones accepted by !{index} recall in the interactive shell.`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <index>",
	Short: "Print a single history entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every history entry",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var (
	historyTail  int
	historyPlain bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)

	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().IntVarP(&historyTail, "tail", "n", 0, "Show only the last N entries (0 for all)")
		c.Flags().BoolVar(&historyPlain, "plain", false, "Print tab-separated index and command without a table")
	}
}

// loadHistory opens the configured history file. The caller closes the store.
func loadHistory() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := history.OpenFileLog(cfg.History.HistoryFile())
	if err != nil {
		return nil, err
	}
	store, err := history.Open(log, history.Options{MaxSize: cfg.History.MaxSize})
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := loadHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries := store.Entries()
	if historyTail > 0 && len(entries) > historyTail {
		entries = entries[len(entries)-historyTail:]
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries.")
		return nil
	}
	if historyPlain {
		for _, e := range entries {
			fmt.Fprintf(out, "%d\t%s\n", e.Index, e.Text)
		}
		return nil
	}
	return writeHistoryTable(out, entries)
}

// writeHistoryTable renders entries as an index/command table.
func writeHistoryTable(w io.Writer, entries []*history.Entry) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers("#", "COMMAND").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeader
			case col == 0:
				return styles.TableIndex
			default:
				return styles.TableCell
			}
		})
	for _, e := range entries {
		t.Row(strconv.Itoa(e.Index), util.TruncateANSI(util.Printable(e.Text), maxCommandWidth))
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.NewValidationError("invalid history index").
			WithField("index").
			WithValue(args[0]).
			WithCause(err)
	}

	store, err := loadHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Lookup(index)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), entry.Text)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := loadHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	n := store.Len()
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history entries.\n", n)
	return nil
}
