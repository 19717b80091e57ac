package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/cli/config"
	"github.com/yndnr/jobdesk-go/internal/cli/output"
	"github.com/yndnr/jobdesk-go/internal/core/domain"
)

// ConfigCommand returns the config subcommand group. These commands only
// read and write the config file; they never open local storage, so a
// broken storage setting can still be repaired.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "get",
				Usage:     "Print one configuration value",
				ArgsUsage: "KEY",
				Action:    configGet,
			},
			{
				Name:      "set",
				Usage:     "Change one value in the config file",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
		},
	}
}

func configFormat(cfg *config.CLIConfig) output.Formatter {
	f, err := output.ParseFormat(cfg.Output)
	if err != nil {
		f = output.FormatTable
	}
	return output.NewFormatter(f)
}

func configShow(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	flat, err := config.Flatten(cfg)
	if err != nil {
		return err
	}
	return configFormat(cfg).Format(c.App.Writer, flat)
}

func configGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrInvalidArgument.WithDetails("usage: config get KEY")
	}
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	v, err := config.Lookup(cfg, c.Args().First())
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	fmt.Fprintln(c.App.Writer, v)
	return nil
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return domain.ErrInvalidArgument.WithDetails("usage: config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)
	if _, err := config.Set(c.String("config"), key, value); err != nil {
		return domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	fmt.Fprintf(c.App.Writer, "%s updated\n", key)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, c.String("config"))
	return nil
}
