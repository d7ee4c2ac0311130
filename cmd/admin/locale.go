package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"atrium/internal/locale"
)

func localeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "locale",
		Usage: "Work with gettext .po translation catalogs",
		Commands: []*cli.Command{
			localeMergeCommand(r),
			localeStatsCommand(r),
		},
	}
}

func localeMergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Union two catalogs into one, keeping untranslated entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base", Usage: "base catalog, wins on conflicts", Required: true},
			&cli.StringFlag{Name: "extra", Usage: "catalog merged into the base", Required: true},
			&cli.StringFlag{Name: "out", Usage: "path for the merged catalog", Required: true},
			&cli.BoolFlag{Name: "prefer-extra", Usage: "let the extra catalog win on conflicts"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			result, err := locale.Merge(c.String("base"), c.String("extra"), c.String("out"), locale.MergeOptions{
				PreferExtra: c.Bool("prefer-extra"),
			})
			if err != nil {
				return err
			}
			r.logger.Info("catalogs merged",
				"out", c.String("out"),
				"entries", result.Entries,
				"added", result.Added,
				"conflicts", result.Conflicts)
			return nil
		},
	}
}

func localeStatsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Count translated, untranslated, and fuzzy entries per catalog",
		ArgsUsage: "<catalog.po> [catalog.po ...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("no catalogs given")
			}
			for _, path := range paths {
				stats, err := locale.ReadStats(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				r.logger.Info("catalog",
					"path", path,
					"total", stats.Total(),
					"translated", stats.Translated,
					"untranslated", stats.Untranslated,
					"fuzzy", stats.Fuzzy)
			}
			return nil
		},
	}
}
