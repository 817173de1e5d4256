package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasksync/internal/cache"
	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

// testFactory creates an engine factory over the given FakeGateway.
func testFactory(gw *testutil.FakeGateway) cli.EngineFactory {
	return func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
		return engine.New(gw, cache.New(cache.NewMemoryStore()), engine.WithLogger(logger)), func() {}, nil
	}
}

// configDir writes a minimal config.yaml for the rest backend.
func configDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := []byte("backend: rest\nserver_url: http://127.0.0.1:3000\n")
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), data, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return dir
}

func run(t *testing.T, gw *testutil.FakeGateway, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(gw))

	var outBuf, errBuf bytes.Buffer
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeGateway(), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeGateway(), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	t.Setenv("TASKSYNC_BACKEND", "bogus")
	stdout, stderr, code := run(t, nil, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected 'tasksync 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, nil, "list", "--status")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -status\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsLists(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask(service.Task{ID: "a1", Title: "Buy milk", Description: "2% organic", CreatedAt: testutil.T0})

	stdout, stderr, code := run(t, gw, "list", "--config", configDir(t))

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	expected := "   1  [ ] Buy milk (medium)\n          2% organic\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestDispatcher_AddThenDone(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dir := configDir(t)

	stdout, stderr, code := run(t, gw, "add", "--config", dir, "-d", "2% organic", "-p", "low", "Buy", "milk")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	_, stderr, code = run(t, gw, "toggle", "--config", dir, "--quiet", "1")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if task, _ := gw.Task("t1"); !task.Completed || task.Priority != service.PriorityLow {
		t.Errorf("unexpected task: %#v", task)
	}
}

func TestDispatcher_ConfigError(t *testing.T) {
	dir := t.TempDir() // no server_url

	_, stderr, code := run(t, testutil.NewFakeGateway(), "list", "--config", dir)

	if code != exitcode.ConfigError {
		t.Errorf("expected exit code %d, got %d", exitcode.ConfigError, code)
	}
	expected := "error: config error: server_url is required for the rest backend\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	gw := testutil.NewFakeGateway()

	_, stderr, code := run(t, gw, "sync", "--config", configDir(t), "--debug")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stderr, "level=DEBUG") || !strings.Contains(stderr, "command=sync") {
		t.Errorf("expected debug logs, got %q", stderr)
	}
}
