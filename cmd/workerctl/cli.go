package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hookdeck/workerctl/internal/app"
	"github.com/hookdeck/workerctl/internal/client"
	"github.com/hookdeck/workerctl/internal/config"
	"github.com/hookdeck/workerctl/internal/messagerouter"
	"github.com/hookdeck/workerctl/internal/version"
	"github.com/hookdeck/workerctl/internal/worker"
	"github.com/urfave/cli/v3"
)

const defaultAddr = "http://localhost:3333"

// NewCommand builds the workerctl command tree. Client subcommands print to out.
func NewCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "workerctl",
		Usage:   "Start, stop and message background workers",
		Version: version.Version(),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Base URL of the workerctl server",
				Value:   defaultAddr,
				Sources: cli.EnvVars("WORKERCTL_ADDR"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent as a bearer token",
				Sources: cli.EnvVars("WORKERCTL_API_KEY"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the workerctl server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to config file",
						Sources: cli.EnvVars("CONFIG"),
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Parse(config.Flags{Config: c.String("config")})
					if err != nil {
						return err
					}
					return app.New(cfg).Run(ctx)
				},
			},
			{
				Name:  "start",
				Usage: "Start a new worker",
				Action: withClient(func(ctx context.Context, c *cli.Command, api *client.Client) error {
					info, err := api.CreateWorker(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Started %s\n", info.Name)
					return nil
				}),
			},
			{
				Name:      "stop",
				Usage:     "Stop a worker by name, or the most recently started one",
				ArgsUsage: "[name]",
				Action: withClient(func(ctx context.Context, c *cli.Command, api *client.Client) error {
					if name := c.Args().First(); name != "" {
						if err := api.StopWorker(ctx, name); err != nil {
							return err
						}
						fmt.Fprintf(out, "Stopping %s\n", name)
						return nil
					}

					name, ok, err := api.StopLatest(ctx)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "No running workers")
						return nil
					}
					fmt.Fprintf(out, "Stopping %s\n", name)
					return nil
				}),
			},
			{
				Name:  "stop-all",
				Usage: "Stop every worker",
				Action: withClient(func(ctx context.Context, c *cli.Command, api *client.Client) error {
					count, err := api.StopAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Stopping %d workers\n", count)
					return nil
				}),
			},
			{
				Name:  "send",
				Usage: "Send a message to one worker or to all of them",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Usage: `Worker name, or "all"`,
						Value: messagerouter.TargetAll,
					},
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Message text",
						Required: true,
					},
				},
				Action: withClient(func(ctx context.Context, c *cli.Command, api *client.Client) error {
					result, err := api.Send(ctx, c.String("to"), c.String("message"))
					if err != nil {
						return err
					}
					if len(result.Delivered) == 0 {
						fmt.Fprintln(out, "No workers to deliver to")
						return nil
					}
					fmt.Fprintf(out, "Delivered to %s\n", strings.Join(result.Delivered, ", "))
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Show active and recently stopped workers",
				Action: withClient(func(ctx context.Context, c *cli.Command, api *client.Client) error {
					report, err := api.ListWorkers(ctx)
					if err != nil {
						return err
					}
					return printStatus(out, report.Active, report.Workers, report.Stopped)
				}),
			},
			{
				Name:      "log",
				Usage:     "Print a worker's log",
				ArgsUsage: "<name>",
				Action: withClient(func(ctx context.Context, c *cli.Command, api *client.Client) error {
					name := c.Args().First()
					if name == "" {
						return errors.New("worker name is required")
					}
					lines, err := api.Log(ctx, name)
					if err != nil {
						return err
					}
					for _, line := range lines {
						fmt.Fprintln(out, line)
					}
					return nil
				}),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return cli.ShowAppHelp(c)
		},
	}
}

func withClient(fn func(context.Context, *cli.Command, *client.Client) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		return fn(ctx, c, client.New(c.String("addr"), c.String("api-key")))
	}
}

func printStatus(out io.Writer, active []string, workers, stopped []worker.Info) error {
	if len(active) == 0 {
		fmt.Fprintln(out, "Active Threads: none")
	} else {
		fmt.Fprintf(out, "Active Threads: %s\n", strings.Join(active, ", "))
	}
	if len(workers) == 0 && len(stopped) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tSTARTED\tSTOPPED")
	for _, infos := range [][]worker.Info{workers, stopped} {
		for _, info := range infos {
			stoppedAt := "-"
			if info.StoppedAt != nil {
				stoppedAt = info.StoppedAt.Format(time.ANSIC)
			}
			status := worker.StatusStopped
			if info.Running {
				status = worker.StatusRunning
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, status, info.StartedAt.Format(time.ANSIC), stoppedAt)
		}
	}
	return tw.Flush()
}
