package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"atrium/internal/email"
	"atrium/internal/identity"
	"atrium/internal/oauthstate"
	"atrium/internal/platform/postgres"
	"atrium/internal/seed"
	"atrium/internal/site"
)

func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Populate the database with the site, template, and demo user fixtures",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "report what would change without writing"},
			&cli.BoolFlag{Name: "reset", Usage: "additionally sweep expired login states"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := postgres.Open(r.cfg.Postgres)
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("seed requires ATRIUM_POSTGRES_DSN to be set")
			}
			defer db.Close()
			if err := postgres.Migrate(db); err != nil {
				return err
			}

			seeder := seed.New(
				site.NewPostgresStore(db),
				email.NewPostgresStore(db),
				identity.NewPostgresStore(db),
				oauthstate.NewPostgresStore(db),
				slog.New(r.logger),
			)
			report, err := seeder.Run(ctx, seed.Options{
				DryRun: c.Bool("dry-run"),
				Reset:  c.Bool("reset"),
			})
			if err != nil {
				return err
			}
			r.logger.Info("seed complete",
				"sites", report.Sites,
				"templates", report.Templates,
				"users", report.Users,
				"states_swept", report.StatesSwept,
				"dry_run", c.Bool("dry-run"))
			return nil
		},
	}
}
