// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/acs/internal/formatter"
	"github.com/desertthunder/acs/internal/models"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func formatFlag(value string) cli.Flag {
	names := []string{}
	for _, f := range formatter.Formats() {
		names = append(names, string(f))
	}
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (" + strings.Join(names, ", ") + ")",
		Value:   value,
	}
}

func contentTypeUsage() string {
	names := []string{}
	for _, t := range models.ContentTypes() {
		names = append(names, string(t))
	}
	return "Content type (" + strings.Join(names, ", ") + ")"
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.SetupDatabase,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write config.toml from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON instead of TOML",
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	passwordFlag := &cli.StringFlag{
		Name:     "password",
		Aliases:  []string{"p"},
		Usage:    "Account password",
		Sources:  cli.EnvVars("ACS_PASSWORD"),
		Required: true,
	}
	emailFlag := &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email",
		Sources:  cli.EnvVars("ACS_EMAIL"),
		Required: true,
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and inspect the stored session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with email and password",
				Flags:  []cli.Flag{emailFlag, passwordFlag},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Display name",
						Required: true,
					},
					emailFlag,
					passwordFlag,
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Discard stored credentials and cached data",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in account and token expiry",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

func threadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "threads",
		Aliases: []string{"t"},
		Usage:   "Browse and export content threads",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List threads",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Threads per page",
						Value: 5,
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Match titles containing this text",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: contentTypeUsage(),
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Latest generation status (pending, processing, completed, failed)",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Read from the local cache without calling the API",
					},
				}, jsonFlags()...),
				Action: r.ThreadsList,
			},
			{
				Name:   "summary",
				Usage:  "Show thread counts by type and status",
				Flags:  jsonFlags(),
				Action: r.ThreadsSummary,
			},
			{
				Name:      "show",
				Usage:     "Print a thread with all of its generations",
				ArgsUsage: "<thread-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags:  []cli.Flag{formatFlag(string(formatter.Text))},
				Action: r.ThreadsShow,
			},
			{
				Name:      "export",
				Usage:     "Write one or more threads to disk",
				ArgsUsage: "<thread-id>...",
				Flags: []cli.Flag{
					formatFlag(string(formatter.Markdown)),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory",
					},
					&cli.BoolFlag{
						Name:  "bulk",
						Usage: "Use the bulk exporter and write a manifest even for one thread",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent writers for bulk export (max 8)",
						Value:   4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Thread fetches per second",
						Value: 5,
					},
				},
				Action: r.ThreadsExport,
			},
			{
				Name:      "open",
				Usage:     "Open a thread in the web app",
				ArgsUsage: "[thread-id]",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "print",
						Usage: "Print the URL instead of opening a browser",
					},
				},
				Action: r.ThreadsOpen,
			},
		},
	}
}

func contentCommand(r *Runner) *cli.Command {
	timeoutFlag := &cli.IntFlag{
		Name:  "timeout",
		Usage: "Seconds to wait for the generation to settle (0 waits until interrupted)",
	}

	return &cli.Command{
		Name:    "content",
		Aliases: []string{"c"},
		Usage:   "Generate content and record feedback",
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Aliases:   []string{"gen"},
				Usage:     "Submit a prompt and follow it until it completes",
				ArgsUsage: "[prompt]",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "prompt",
					},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "prompt",
						Aliases: []string{"p"},
						Usage:   "Prompt text",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: contentTypeUsage(),
						Value: string(models.BlogPost),
					},
					&cli.StringFlag{
						Name:  "thread",
						Usage: "Add to an existing thread instead of starting one",
					},
					&cli.BoolFlag{
						Name:  "no-follow",
						Usage: "Return after submitting without waiting for live updates",
					},
					timeoutFlag,
				}, jsonFlags()...),
				Action: r.ContentGenerate,
			},
			{
				Name:      "sentiment",
				Usage:     "Mark a content record positive, neutral or negative",
				ArgsUsage: "<content-id> <sentiment>",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
					&cli.StringArg{
						Name: "sentiment",
					},
				},
				Flags:  jsonFlags(),
				Action: r.ContentSentiment,
			},
			{
				Name:      "feedback",
				Usage:     "Give feedback on a thread's latest generation",
				ArgsUsage: "<thread-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "thread",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "text",
						Aliases:  []string{"m"},
						Usage:    "A sentiment word or free-text feedback",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content",
						Usage: "Content id, defaults to the latest generation",
					},
					&cli.BoolFlag{
						Name:  "regenerate",
						Usage: "Regenerate when the feedback is negative",
					},
					timeoutFlag,
				},
				Action: r.ContentFeedback,
			},
		},
	}
}

func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Print live generation updates for the signed-in account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "thread",
				Usage: "Only show updates for this thread",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output one JSON object per event",
			},
		},
		Action: r.Stream,
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Interactive view of a thread with live updates",
		ArgsUsage: "<thread-id>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "thread",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Do not connect to live updates",
			},
		},
		Action: r.Watch,
	}
}
