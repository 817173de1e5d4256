package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsEngine() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, eng *engine.Engine, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                           List all tasks
  tasksync list [common flags] [--status <s>] [--priority <p>]
  tasksync add [common flags] -d <description> [-p <priority>] <title...>
  tasksync create [common flags] -d <description> [-p <priority>] <title...>
  tasksync done [common flags] <ref>                 Toggle completion (alias: toggle)
  tasksync rm [common flags] <ref>
  tasksync sync [common flags]                       Reload from the store
  tasksync help
  tasksync version

A <ref> is the number shown by list or a task id.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Settings are read from config.yaml in the config directory and can be
overridden with TASKSYNC_BACKEND, TASKSYNC_SERVER_URL, TASKSYNC_TIMEOUT,
TASKSYNC_TOKEN and TASKSYNC_CACHE.
`
