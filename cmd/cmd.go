// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand handles local configuration and database setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and initialize the reference server database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example configuration file",
				Action: r.SetupConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
			{
				Name:   "database",
				Usage:  "Run pending database migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles sign-in state
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign up and manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Account email (prompted when empty)",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when empty)",
						Sources: cli.EnvVars("MOVLI_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Account email (prompted when empty)",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when empty)",
						Sources: cli.EnvVars("MOVLI_PASSWORD"),
					},
					&cli.StringFlag{
						Name:  "confirm",
						Usage: "Repeat the password (prompted when empty)",
					},
				},
				Action: r.AuthSignup,
			},
			{
				Name:   "google",
				Usage:  "Sign in with Google in the browser",
				Action: r.AuthGoogle,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "token",
				Usage:  "Print a fresh ID token for API calls",
				Action: r.AuthToken,
			},
		},
	}
}

// searchCommand queries the movie catalog
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the movie catalog",
		ArgsUsage: "<query>",
		Flags: append(jsonFlags(),
			&cli.IntFlag{
				Name:  "save",
				Usage: "Save the Nth result (1-based) to the watchlist",
			},
		),
		Action: r.Search,
	}
}

// watchlistCommand handles the signed-in user's watchlist
func watchlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watchlist",
		Aliases: []string{"wl"},
		Usage:   "List, update, import and export the watchlist",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved movies, unwatched first",
				Flags:  jsonFlags(),
				Action: r.WatchlistList,
			},
			{
				Name:      "toggle",
				Usage:     "Flip the watched flag of a movie",
				ArgsUsage: "<id|index>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "item"},
				},
				Action: r.WatchlistToggle,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Remove a movie from the watchlist",
				ArgsUsage: "<id|index>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "item"},
				},
				Action: r.WatchlistDelete,
			},
			{
				Name:      "import",
				Usage:     "Search and save every title in a file",
				ArgsUsage: "<file>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags: append(jsonFlags(),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent searches",
						Value: 3,
					},
					&cli.Float64Flag{
						Name:  "rate",
						Usage: "Catalog requests per second",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Match titles without saving",
					},
				),
				Action: r.WatchlistImport,
			},
			{
				Name:  "export",
				Usage: "Export the watchlist as JSON, CSV, Markdown or text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, base path (csv) or directory (markdown)",
					},
					&cli.BoolFlag{
						Name:  "posters",
						Usage: "Download posters next to the Markdown export",
					},
				},
				Action: r.WatchlistExport,
			},
		},
	}
}

// chatCommand talks to the movie assistant
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask the movie assistant, or start an interactive session without a prompt",
		ArgsUsage: "[prompt]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "history", Usage: "Print your earlier messages and exit"},
		}, jsonFlags()...),
		Action: r.Chat,
	}
}

// serveCommand runs the reference backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the reference watchlist API server",
		Action: r.Serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Run pending migrations before serving",
				Value: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "Issue a signed development token for the reference server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "uid",
						Usage:    "User ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "User email",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: time.Hour,
					},
				},
				Action: r.ServeToken,
			},
		},
	}
}

// tuiCommand launches the interactive interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal interface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the interface owns the terminal",
				Value: "./tmp/movli-tui.log",
			},
		},
		Action: r.TUI,
	}
}
