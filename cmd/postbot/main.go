package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"postbot/internal/config"
)

var version = "dev"

var (
	cfgPath      string
	mediaListOvr string
	extraCaption string
	dataDirOvr   string
	headlessFlag bool
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "path to the config file (YAML or JSON)",
		Value:       "config/postbot.yml",
		EnvVar:      "POSTBOT_CONFIG",
		Destination: &cfgPath,
	},
	cli.StringFlag{
		Name:        "media-list",
		Usage:       "override the media-list CSV path",
		Destination: &mediaListOvr,
	},
	cli.StringFlag{
		Name:        "extra-caption",
		Usage:       "override the caption suffix appended to every post",
		Destination: &extraCaption,
	},
	cli.StringFlag{
		Name:        "data-dir",
		Usage:       "override the data directory (lock token + task store)",
		Destination: &dataDirOvr,
	},
	cli.BoolFlag{
		Name:        "headless",
		Usage:       "run the upload command with --headless",
		Destination: &headlessFlag,
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "postbot"
	app.Usage = "window-based media posting scheduler"
	app.Version = version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:   "scheduler",
			Usage:  "run the scheduler daemon",
			Action: runScheduler,
			Flags:  globalFlags,
		},
		{
			Name:   "upload",
			Usage:  "upload a single file immediately, bypassing the schedule",
			Action: runUpload,
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "file, f", Usage: "media file to upload"},
				cli.StringFlag{Name: "caption", Usage: "caption text (generated when omitted)"},
			}, globalFlags...),
		},
		{
			Name:      "caption",
			Usage:     "generate captions for a file or directory and write a media list",
			ArgsUsage: "<file-or-directory>",
			Action:    runCaption,
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "out, o", Usage: "output CSV path (defaults to the configured media list)"},
			}, globalFlags...),
		},
	}
	app.Action = runScheduler

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "postbot: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies CLI overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	config.LoadEnv()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if mediaListOvr != "" {
		cfg.MediaList = mediaListOvr
	}
	if extraCaption != "" {
		cfg.ExtraCaption = extraCaption
	}
	if dataDirOvr != "" {
		cfg.DataDir = dataDirOvr
	}
	if ctx.IsSet("headless") || ctx.GlobalIsSet("headless") {
		cfg.Headless = headlessFlag
	}
	return cfg, nil
}
