// Command pfem computes and settles rewards offline from campaign and record files.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pfem",
		Usage:   "fair engagement reward engine",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "compute",
				Usage:     "compute the reward of one snapshot",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "campaign config file (yaml or json)", Required: true},
					&cli.StringFlag{Name: "snapshot", Aliases: []string{"s"}, Usage: "engagement snapshot file (yaml or json)", Required: true},
				},
				Action: computeAction,
			},
			{
				Name:  "settle",
				Usage: "settle a batch of records",
				Description: "Configs come from --campaigns, or from the store in --data-dir when it is set.\n" +
					"With --data-dir the results are also recorded in the store.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "records", Aliases: []string{"r"}, Usage: "batch file (yaml or json)", Required: true},
					&cli.StringFlag{Name: "campaigns", Usage: "campaign configs file (yaml or json)"},
					&cli.StringFlag{Name: "data-dir", Usage: "settle against and record into this store", EnvVars: []string{"DATA_DIR"}},
					&cli.StringFlag{Name: "batch-id", Usage: "overrides the batch file's batch_id"},
					&cli.IntFlag{Name: "workers", Value: settlement.DefaultWorkers, EnvVars: []string{"SETTLEMENT_WORKERS"}},
					&cli.Float64Flag{Name: "review-threshold", Usage: "duration multiplier above which records need review, 0 disables", Value: 13, EnvVars: []string{"DURATION_REVIEW_THRESHOLD"}},
					&cli.BoolFlag{Name: "strict", Usage: "exit with status 3 when any record is rejected"},
				},
				Action: settleAction,
			},
			{
				Name:  "publish",
				Usage: "store a campaign config as its next version",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "data-dir", Value: "./data", EnvVars: []string{"DATA_DIR"}},
					&cli.StringFlag{Name: "campaign-id", Required: true},
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "campaign config file (yaml or json)", Required: true},
				},
				Action: publishAction,
			},
			{
				Name:  "token",
				Usage: "issue an operator token for the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "operator", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
				},
				Action: tokenAction,
			},
		},
	}
}
