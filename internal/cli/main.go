package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sitekit-dev/sitekit/internal/config"
	"github.com/urfave/cli/v2"
)

var CmdVersion = cli.Command{
	Name:  "version",
	Usage: "Print the version of sitekit",
	Action: func(ctx *cli.Context) error {
		_, _ = fmt.Fprintln(ctx.App.Writer, "sitekit "+config.SitekitVersion)
		return nil
	},
}

var ConfigFlag = cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to a config file in YAML format",
}

// NewApp builds the command tree. Output of every command goes to out.
func NewApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "sitekit"
	app.Usage = "Maintenance tools for the personal site assets."
	app.HelpName = "sitekit"
	app.Writer = out
	app.ErrWriter = os.Stderr

	app.Commands = []*cli.Command{&CmdVersion, &CmdGists, &CmdAvatars}
	app.Flags = []cli.Flag{
		&ConfigFlag,
	}
	app.Before = Initialize
	app.OnUsageError = usageError
	return app
}

func App() error {
	return NewApp(os.Stdout).Run(os.Args)
}

func Initialize(ctx *cli.Context) error {
	if err := config.InitConfig(ctx.String("config"), ctx.App.ErrWriter); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	config.InitLog()
	return nil
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return cli.Exit("Usage error: "+err.Error(), 2)
}
