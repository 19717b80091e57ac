package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/cli/config"
	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/infra/buildinfo"
)

const (
	metaRuntime = "runtime"
	metaNested  = "nested"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:     "jobdesk",
		Usage:    "job board client: sign in, navigate views by role, run the local portal",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Commands: Commands(),
		Metadata: map[string]any{},
		After: func(c *cli.Context) error {
			if nested, _ := c.App.Metadata[metaNested].(bool); nested {
				return nil
			}
			if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
				return rt.Close()
			}
			return nil
		},
		// Errors are printed by the caller; never os.Exit from inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app
}

// Commands returns every top-level command.
func Commands() []*cli.Command {
	return []*cli.Command{
		LoginCommand(),
		LogoutCommand(),
		WhoAmICommand(),
		OpenCommand(),
		WhereCommand(),
		RoutesCommand(),
		StatusCommand(),
		ConfigCommand(),
		ShellCommand(),
		PortalCommand(),
	}
}

// globalFlags returns the global CLI flags. Flags override the config
// file and JOBDESK_* environment variables.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file",
			EnvVars: []string{"JOBDESK_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "backend base URL (e.g., https://jobs.example.com)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "directory for local state",
		},
		&cli.StringFlag{
			Name:  "storage",
			Usage: "local storage engine: badger, redis, memory",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn, error",
		},
	}
}

// flagOverrides maps the set global flags onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	pairs := []struct{ flag, key string }{
		{"server", "server"},
		{"output", "output"},
		{"data-dir", "data_dir"},
		{"storage", "storage.engine"},
		{"log-level", "log.level"},
	}
	out := make(map[string]any)
	for _, p := range pairs {
		if c.IsSet(p.flag) {
			out[p.key] = c.String(p.flag)
		}
	}
	return out
}

// loadConfig loads the configuration selected by the global flags.
func loadConfig(c *cli.Context) (*config.CLIConfig, string, error) {
	path := c.String("config")
	cfg, err := config.Load(path, flagOverrides(c))
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// runtimeFrom returns the shared runtime, building it on first use.
func runtimeFrom(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}

	cfg, path, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	rt, err := NewRuntime(c.Context, RuntimeOptions{
		Config:     cfg,
		ConfigPath: path,
		Stdout:     c.App.Writer,
		Stderr:     c.App.ErrWriter,
	})
	if err != nil {
		return nil, err
	}
	c.App.Metadata[metaRuntime] = rt
	return rt, nil
}

// Describe renders err for the terminal. Domain errors show their
// user-facing message and details; anything else is shown as is.
func Describe(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Details != "" {
			return de.Message + ": " + de.Details
		}
		return de.Message
	}
	return err.Error()
}

// PrintError prints an error message to stderr.
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n", Describe(err))
}
