package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/sitekit-dev/sitekit/internal/config"
	"github.com/sitekit-dev/sitekit/internal/curated"
	"github.com/sitekit-dev/sitekit/internal/gist"
	"github.com/sitekit-dev/sitekit/internal/utils"
	"github.com/urfave/cli/v2"
)

var CmdGists = cli.Command{
	Name:      "gists",
	Usage:     "Synchronize the curated gists into the local JSON asset",
	ArgsUsage: "[gist-id...]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Re-fetch every gist even if it is already cached",
		},
		&cli.StringSliceFlag{
			Name:    "gist",
			Aliases: []string{"g"},
			Usage:   "Gist ID to fetch (repeatable, comma separated values allowed); always re-fetched",
		},
		&cli.BoolFlag{
			Name:    "delete",
			Aliases: []string{"d"},
			Usage:   "Remove the given gist IDs from the asset instead of fetching",
		},
		&cli.BoolFlag{
			Name:  "prune",
			Usage: "Drop cached gists that are not in the curated list",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Path of the JSON asset to write",
		},
	},
	OnUsageError: usageError,
	Action: func(ctx *cli.Context) error {
		output := config.C.GistsOutput
		if ctx.IsSet("output") {
			output = ctx.String("output")
		}
		if err := gist.CheckOutputPath(output); err != nil {
			return cli.Exit("Refusing to write: "+err.Error(), 2)
		}

		explicit := utils.UniqueNonEmpty(append(
			utils.SplitComma(ctx.StringSlice("gist")),
			utils.SplitComma(ctx.Args().Slice())...,
		))
		v := utils.NewValidator()
		for _, id := range explicit {
			if !v.IsGistID(id) {
				return cli.Exit(fmt.Sprintf("Invalid gist ID %q (flags must come before gist IDs)", id), 2)
			}
		}

		opts := gist.SyncOptions{
			Output:   output,
			Explicit: explicit,
			Force:    ctx.Bool("force"),
			Delete:   ctx.Bool("delete"),
			Prune:    ctx.Bool("prune"),
		}
		if !opts.Delete {
			opts.Curated = curated.Resolve(curated.Sources{
				YAMLFile: config.C.GistsCuratedFile,
				HTMLFile: config.C.GistsCuratedHTML,
				Marker:   config.C.GistsCuratedMarker,
				TextFile: config.C.GistsCuratedText,
			})
		}

		client := gist.NewClient(gist.ClientOptions{
			BaseURL: config.C.GistsApiUrl,
			Token:   config.C.GithubToken,
			Timeout: config.C.GistsRequestTimeout,
			Delay:   config.C.GistsRequestDelay,
		})

		sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
		defer stop()

		res, err := gist.NewSynchronizer(client, ctx.App.Writer).Run(sigCtx, opts)
		switch {
		case errors.Is(err, gist.ErrNoIdentifiers):
			return cli.Exit(fmt.Sprintf("No gist IDs provided (pass IDs on the command line or list them in %s).", config.C.GistsCuratedFile), 1)
		case errors.Is(err, gist.ErrDeleteWithoutIdentifiers), errors.Is(err, gist.ErrDisallowedOutput):
			return cli.Exit(err.Error(), 2)
		case err != nil:
			return cli.Exit(err.Error(), 1)
		}

		if len(res.Failed) > 0 {
			log.Warn().Strs("gists", res.Failed).Msg("Some gists could not be fetched")
		}
		return nil
	},
}
