package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"atrium/internal/blob"
)

func blobCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "blob",
		Usage: "Manage the per-site blob storage containers",
		Commands: []*cli.Command{
			blobMigrateCommand(r),
			blobAuditCommand(r),
		},
	}
}

func blobMigrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Copy every blob from one container into another",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "source container", Required: true},
			&cli.StringFlag{Name: "to", Usage: "target container", Required: true},
			&cli.BoolFlag{Name: "overwrite", Usage: "re-copy blobs that already exist in the target"},
			&cli.IntFlag{Name: "concurrency", Usage: "parallel copies", Value: 8},
			&cli.BoolFlag{Name: "dry-run", Usage: "report what would be copied without writing"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := blob.NewAzureStore(r.cfg.Blob.ConnectionString)
			if err != nil {
				return err
			}
			report, err := blob.Migrate(ctx, store, c.String("from"), c.String("to"), blob.MigrateOptions{
				Overwrite:   c.Bool("overwrite"),
				Concurrency: c.Int("concurrency"),
				DryRun:      c.Bool("dry-run"),
			}, slog.New(r.logger))
			if err != nil {
				return err
			}
			r.logger.Info("migration complete",
				"from", c.String("from"),
				"to", c.String("to"),
				"copied", report.Copied,
				"skipped", report.Skipped,
				"total", report.Total,
				"dry_run", c.Bool("dry-run"))
			return nil
		},
	}
}

func blobAuditCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "List blobs living outside the known top-level prefixes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "container", Usage: "container to scan", Required: true},
			&cli.StringSliceFlag{Name: "prefix", Usage: "known top-level prefix, repeatable", Value: []string{"avatars", "uploads", "exports"}},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := blob.NewAzureStore(r.cfg.Blob.ConnectionString)
			if err != nil {
				return err
			}
			report, err := blob.Audit(ctx, store, c.String("container"), c.StringSlice("prefix"))
			if err != nil {
				return err
			}
			r.logger.Info("audit complete",
				"container", report.Container,
				"total", report.Total,
				"orphans", len(report.Orphans))
			for _, o := range report.Orphans {
				r.logger.Warn("orphan blob", "name", o.Name, "size", o.Size, "modified", o.LastModified)
			}
			return nil
		},
	}
}
