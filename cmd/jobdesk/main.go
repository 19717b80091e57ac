// Package main provides the entry point for jobdesk.
//
// jobdesk is the job board client: it signs in with a role, keeps the
// session in local storage, and gates every view by role, either one
// command at a time, in an interactive shell, or behind the local portal.
package main

import (
	"context"
	"os"

	"github.com/yndnr/jobdesk-go/internal/cli/command"
	"github.com/yndnr/jobdesk-go/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.SignalContext(context.Background())
	defer stop()

	app := command.App()
	if err := app.RunContext(ctx, os.Args); err != nil {
		command.PrintError(err)
		stop()
		os.Exit(1)
	}
}
