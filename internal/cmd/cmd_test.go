package cmd

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	resetFlags()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables between executions; cobra only assigns
// flags that appear on the command line.
func resetFlags() {
	historyTail = 0
	historyPlain = false
	configInitForce = false
	logsSessionID = ""
	logsComponent = ""
	logsTail = 50
	logsLevel = ""
	logsSince = ""
	logsGrep = ""
}

// testEnv isolates config and state directories and writes a config file.
type testEnv struct {
	dir         string
	configFile  string
	historyFile string
}

func newTestEnv(t *testing.T, configYAML string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	env := &testEnv{
		dir:         dir,
		configFile:  filepath.Join(dir, "config.yaml"),
		historyFile: filepath.Join(dir, "history"),
	}
	if configYAML == "" {
		configYAML = "history:\n  max_size: 1000\n"
	}
	if err := os.WriteFile(env.configFile, []byte(configYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	return env
}

// run executes rootCmd with the environment's config and history file.
func (e *testEnv) run(args ...string) (string, error) {
	full := append([]string{"--config", e.configFile, "--history-file", e.historyFile}, args...)
	return executeCommand(rootCmd, full...)
}

func (e *testEnv) writeHistory(t *testing.T, lines ...string) {
	t.Helper()
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(e.historyFile, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var st *statusError
	if errors.As(err, &st) {
		return st.code
	}
	return -1
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "pyc" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "pyc")
	}

	expectedCmds := []string{"run", "history", "config", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestRunCommand(t *testing.T) {
	requireCommand(t, "sh")
	env := newTestEnv(t, "aliases:\n  fail: sh -c 'exit 6'\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"success", []string{"run", "--", "sh", "-c", "exit 0"}, 0},
		{"failure", []string{"run", "--", "sh", "-c", "exit 3"}, 3},
		{"alias", []string{"run", "--", "fail"}, 6},
		{"unknown command", []string{"run", "--", "definitely-not-a-command-pyc"}, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			if got := exitCodeOf(err); got != tt.want {
				t.Errorf("exit code = %d (err %v), want %d", got, err, tt.want)
			}
		})
	}
}

func TestRunCommand_Output(t *testing.T) {
	requireCommand(t, "echo")
	env := newTestEnv(t, "")

	out, err := env.run("run", "--", "echo", "hello")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if out != "hello\n" {
		t.Errorf("output = %q, want %q", out, "hello\n")
	}
}

func TestRunCommand_RequiresArgs(t *testing.T) {
	env := newTestEnv(t, "")
	if _, err := env.run("run"); err == nil {
		t.Error("expected an error without a command")
	}
}

func TestHistoryList(t *testing.T) {
	env := newTestEnv(t, "")
	env.writeHistory(t, "ls", "pwd", "make test")

	out, err := env.run("history", "list", "--plain")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if want := "1\tls\n2\tpwd\n3\tmake test\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, err = env.run("history", "--plain", "-n", "1")
	if err != nil {
		t.Fatalf("history -n 1 error = %v", err)
	}
	if want := "3\tmake test\n"; out != want {
		t.Errorf("tail output = %q, want %q", out, want)
	}
}

func TestHistoryList_Table(t *testing.T) {
	env := newTestEnv(t, "")
	env.writeHistory(t, "ls", "git status")

	out, err := env.run("history", "list")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	for _, want := range []string{"#", "COMMAND", "ls", "git status"} {
		if !strings.Contains(out, want) {
			t.Errorf("table %q missing %q", out, want)
		}
	}
}

func TestHistoryList_Empty(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run("history", "list")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if !strings.Contains(out, "No history entries.") {
		t.Errorf("output = %q", out)
	}
}

func TestHistoryShow(t *testing.T) {
	env := newTestEnv(t, "")
	env.writeHistory(t, "ls", "pwd")

	out, err := env.run("history", "show", "2")
	if err != nil {
		t.Fatalf("history show error = %v", err)
	}
	if out != "pwd\n" {
		t.Errorf("output = %q, want %q", out, "pwd\n")
	}

	if _, err := env.run("history", "show", "9"); err == nil {
		t.Error("expected an error for a missing index")
	}
	if _, err := env.run("history", "show", "two"); err == nil {
		t.Error("expected an error for a non-numeric index")
	}
}

func TestHistoryClear(t *testing.T) {
	env := newTestEnv(t, "")
	env.writeHistory(t, "ls", "pwd")

	out, err := env.run("history", "clear")
	if err != nil {
		t.Fatalf("history clear error = %v", err)
	}
	if !strings.Contains(out, "Cleared 2 history entries.") {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(env.historyFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "2\t\n" {
		t.Errorf("history file = %q, want only the index marker", data)
	}

	out, err = env.run("history", "list")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if !strings.Contains(out, "No history entries.") {
		t.Errorf("list after clear = %q", out)
	}
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t, "history:\n  max_size: 42\n")

	out, err := env.run("config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "max_size: 42") {
		t.Errorf("output %q should contain the configured max_size", out)
	}
	if !strings.Contains(out, env.configFile) {
		t.Errorf("output %q should name the config file", out)
	}
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t, "")
	target := filepath.Join(env.dir, "new", "config.yaml")
	args := []string{"--config", target, "--history-file", env.historyFile, "config", "init"}

	out, err := executeCommand(rootCmd, args...)
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, target) {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "escape_timeout_ms: 50") {
		t.Errorf("config file should contain defaults, got:\n%s", data)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	if _, err := executeCommand(rootCmd, args...); err == nil {
		t.Error("expected an error when the config file exists")
	}
	if _, err := executeCommand(rootCmd, append(args, "--force")...); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run("config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if strings.TrimSpace(out) != env.configFile {
		t.Errorf("output = %q, want %q", out, env.configFile)
	}
}

func TestLogs(t *testing.T) {
	env := newTestEnv(t, "")
	stateDir := filepath.Join(env.dir, "state", "pyc")
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		t.Fatal(err)
	}
	lines := []string{
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"shell started","session_id":"s1","component":"shell"}`,
		`{"time":"2026-01-02T10:00:01Z","level":"WARN","msg":"history write failed","session_id":"s1","component":"history","path":"/tmp/h"}`,
		`{"time":"2026-01-02T10:00:02Z","level":"DEBUG","msg":"line dispatched","session_id":"s2","component":"shell"}`,
	}
	logPath := filepath.Join(stateDir, "pyc.log")
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{"all", []string{"logs"}, []string{"shell started", "history write failed", "line dispatched"}, nil},
		{"level", []string{"logs", "--level", "warn"}, []string{"history write failed", "path=/tmp/h"}, []string{"shell started"}},
		{"session", []string{"logs", "--session", "s2"}, []string{"line dispatched"}, []string{"shell started"}},
		{"component", []string{"logs", "--component", "history"}, []string{"[history]"}, []string{"[shell]"}},
		{"grep", []string{"logs", "--grep", "started"}, []string{"shell started"}, []string{"dispatched"}},
		{"tail", []string{"logs", "-n", "1"}, []string{"line dispatched"}, []string{"shell started"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(tt.args...)
			if err != nil {
				t.Fatalf("logs error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output %q should not contain %q", out, w)
				}
			}
		})
	}
}

func TestLogs_NoLog(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run("logs")
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	if !strings.Contains(out, "No logs found.") {
		t.Errorf("output = %q", out)
	}
}

func TestLogs_InvalidSince(t *testing.T) {
	env := newTestEnv(t, "")
	if _, err := env.run("logs", "--since", "yesterday"); err == nil {
		t.Error("expected an error for an invalid duration")
	}
}

func TestExecute_ExitStatus(t *testing.T) {
	requireCommand(t, "sh")
	env := newTestEnv(t, "")

	resetFlags()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"--config", env.configFile, "--history-file", env.historyFile, "run", "--", "sh", "-c", "exit 4"})

	if got := Execute(); got != 4 {
		t.Errorf("Execute() = %d, want 4", got)
	}
}
