// The atrium admin CLI covers the operational chores around the gateway:
// seeding the database, merging and auditing translation catalogs, and
// moving blobs between containers.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"atrium/internal/platform/config"
)

// Runner carries the config and logger into every command action.
type Runner struct {
	cfg    config.Config
	logger *log.Logger
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load configuration", "error", err)
	}
	r := &Runner{cfg: cfg, logger: logger}

	app := &cli.Command{
		Name:  "admin",
		Usage: "Operational tooling for the atrium gateway",
		Commands: []*cli.Command{
			seedCommand(r),
			localeCommand(r),
			blobCommand(r),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
