package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/projection"
)

func init() {
	Register(&SyncCmd{})
}

// SyncCmd implements the sync command: reload from the store and refresh
// the cache. Unlike list, a cache fallback is a failure here.
type SyncCmd struct{}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return nil }
func (c *SyncCmd) Synopsis() string  { return "Reload tasks from the store" }
func (c *SyncCmd) Usage() string     { return "tasksync sync" }
func (c *SyncCmd) NeedsEngine() bool { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, eng *engine.Engine, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if _, err := eng.Load(ctx); err != nil {
		var stale *engine.StaleError
		if errors.As(err, &stale) {
			output.FormatStale(errOut, stale.Count)
			fmt.Fprintf(errOut, "error: backend error: %v\n", stale.Err)
			return exitcode.BackendError
		}
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatSummary(out, projection.Project(eng.Snapshot(), projection.Filter{}))
	}
	return exitcode.Success
}
