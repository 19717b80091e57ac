package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/cli/repl"
	"github.com/yndnr/jobdesk-go/internal/core/domain"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start an interactive session",
		Action: shellAction,
	}
}

func isNested(c *cli.Context) bool {
	nested, _ := c.App.Metadata[metaNested].(bool)
	return nested
}

func shellAction(c *cli.Context) error {
	if isNested(c) {
		return domain.ErrInvalidArgument.WithDetails("already inside the shell")
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	rt.WatchConfig()

	history := repl.NewHistory(filepath.Join(rt.Config.DataDir, "history"))
	if err := history.Load(); err != nil {
		rt.Logger.Warn("shell history unavailable", "error", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			rt.Logger.Warn("save shell history", "error", err)
		}
	}()

	r := repl.New(repl.Config{
		Input:    c.App.Reader,
		Output:   c.App.Writer,
		Prompt:   rt.prompt,
		Exec:     rt.shellExec(c.App),
		Commands: commandNames(),
		History:  history,
	})

	rt.Printf("jobdesk %s, type 'help' to list commands\n", c.App.Version)
	err = r.Run(c.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// prompt shows where the session currently is and who is signed in.
func (rt *Runtime) prompt() string {
	name := "guest"
	if sess := rt.Manager.Session(); sess.IsAuthenticated() {
		name = sess.Identity.DisplayName()
	}
	return fmt.Sprintf("[%s] %s> ", rt.Nav.Current(context.Background()), name)
}

// shellExec runs each line as a command of a fresh app that shares this
// runtime, so the session survives between lines.
func (rt *Runtime) shellExec(parent *cli.App) repl.Executor {
	return func(ctx context.Context, args []string) error {
		app := App()
		app.Writer = parent.Writer
		app.ErrWriter = parent.ErrWriter
		app.Reader = parent.Reader
		app.Metadata[metaRuntime] = rt
		app.Metadata[metaNested] = true

		argv := append([]string{app.Name, "--config", rt.ConfigPath}, args...)
		if err := app.RunContext(ctx, argv); err != nil {
			return errors.New(Describe(err))
		}
		return nil
	}
}

// commandNames lists the shell's completion candidates.
func commandNames() []string {
	var names []string
	for _, cmd := range Commands() {
		if cmd.Name == "shell" {
			continue
		}
		names = append(names, cmd.Name)
		for _, sub := range cmd.Subcommands {
			names = append(names, cmd.Name+" "+sub.Name)
		}
	}
	return names
}
