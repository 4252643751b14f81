package cli

import (
	"github.com/sitekit-dev/sitekit/internal/avatar"
	"github.com/sitekit-dev/sitekit/internal/config"
	"github.com/urfave/cli/v2"
)

var CmdAvatars = cli.Command{
	Name:  "avatars",
	Usage: "Resize avatar images into WebP variants",
	Action: func(ctx *cli.Context) error {
		o := avatar.NewOptimizer(avatar.Options{
			SourceDir: config.C.AvatarsSourceDir,
			OutputDir: config.C.AvatarsOutputDir,
			Match:     config.C.AvatarsMatch,
			Sizes:     config.C.AvatarsSizes,
			Quality:   config.C.AvatarsQuality,
		}, ctx.App.Writer)

		if _, err := o.Run(); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	},
}
