// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// serveCommand starts the HTTP API server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the collection API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind to (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// collectCommand submits a collection task from the command line.
func collectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Submit a collection task",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "locator"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Source kind: api, web or file",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-items",
				Usage: "Maximum number of items to collect",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Task timeout in seconds",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers for crawling sources",
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Usage: "Requests per second against the source",
			},
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Content filter to apply (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "option",
				Aliases: []string{"o"},
				Usage:   "Source option as key=value (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Collect,
	}
}

// statusCommand reads one task's snapshot.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the status of a collection task",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "task-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Status,
	}
}

// tasksCommand lists stored tasks with pagination.
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List collection tasks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page number",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Tasks per page",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (pending, running, completed, failed)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Tasks,
	}
}

// exportCommand writes a task's collected items to disk.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a task's collected items to a file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "task-id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, jsonl, csv or txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Base output path (default: task id)",
			},
		},
		Action: r.Export,
	}
}

// monitorCommand returns the top-level TUI command for watching tasks.
func monitorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "monitor",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch interactive TUI for watching collection tasks",
		Action:  r.Monitor,
	}
}
