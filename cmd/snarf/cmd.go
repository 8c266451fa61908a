package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (default: searched in the config dir and .)",
	}
}

// syncCommand downloads everything new from the catalog.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Download new photos, tag them and record them in the ledger",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "output_dir"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show verbose output",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "List and normalize without downloading",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Include photos that are not public",
			},
			&cli.BoolFlag{
				Name:  "no-notify",
				Usage: "Do not show a desktop notification at the end",
			},
		},
		Action: r.Sync,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Verify an access token and store it as the credential (prompts when omitted)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "token"},
		},
		Flags:  []cli.Flag{configFlag()},
		Action: r.Login,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the credential and ledger in use",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Status,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a configuration file with default values",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}
