package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/projection"
	"tasksync/internal/service"
)

func init() {
	Register(&AddCmd{})
	Register(&CreateCmd{})
}

// taskFlags are the flags shared by add and create.
type taskFlags struct {
	description string
	priority    string
}

func (f *taskFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "")
	fs.StringVar(&f.description, "d", "", "")
	fs.StringVar(&f.priority, "priority", "", "")
	fs.StringVar(&f.priority, "p", "", "")
}

// AddCmd implements the add command.
type AddCmd struct {
	taskFlags
}

// SetFields sets the description and priority flags (for testing).
func (c *AddCmd) SetFields(description, priority string) {
	c.description = description
	c.priority = priority
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasksync add --description <text> [--priority low|medium|high] <title...>"
}
func (c *AddCmd) NeedsEngine() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) { c.register(fs) }

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, eng *engine.Engine, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, eng, c.taskFlags, args, out, errOut)
}

// CreateCmd is an alias for AddCmd.
type CreateCmd struct {
	taskFlags
}

func (c *CreateCmd) Name() string      { return "create" }
func (c *CreateCmd) Aliases() []string { return nil }
func (c *CreateCmd) Synopsis() string  { return "Create a task (alias for add)" }
func (c *CreateCmd) Usage() string {
	return "tasksync create --description <text> [--priority low|medium|high] <title...>"
}
func (c *CreateCmd) NeedsEngine() bool { return true }

func (c *CreateCmd) RegisterFlags(fs *flag.FlagSet) { c.register(fs) }

func (c *CreateCmd) Run(ctx context.Context, cfg *config.Config, eng *engine.Engine, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, eng, c.taskFlags, args, out, errOut)
}

// runAdd is the shared implementation for add and create commands.
func runAdd(ctx context.Context, cfg *config.Config, eng *engine.Engine, f taskFlags, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	// The list is loaded first so the snapshot written after the create
	// holds every task, not just the new one.
	if _, code, ok := loadView(ctx, eng, projection.Filter{}, errOut); !ok {
		return code
	}

	priority := service.Priority(strings.ToLower(strings.TrimSpace(f.priority)))
	if _, err := eng.Create(ctx, title, f.description, priority); err != nil {
		return reportError(errOut, err)
	}
	if code := settle(ctx, eng, errOut); code != exitcode.Success {
		return code
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
