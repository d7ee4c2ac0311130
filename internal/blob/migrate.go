package blob

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MigrateOptions tunes a container-to-container copy.
type MigrateOptions struct {
	// Overwrite re-copies blobs that already exist in the target.
	Overwrite bool
	// Concurrency bounds parallel copies. Zero means 8.
	Concurrency int
	// DryRun reports what would be copied without writing anything.
	DryRun bool
}

// MigrateReport sums up one migration run.
type MigrateReport struct {
	Copied  int
	Skipped int
	Total   int
}

// Migrate copies every blob from one container into another. Re-running is
// safe: blobs already present in the target are skipped unless Overwrite.
func Migrate(ctx context.Context, store Store, from, to string, opts MigrateOptions, logger *slog.Logger) (MigrateReport, error) {
	if from == to {
		return MigrateReport{}, fmt.Errorf("source and target container are both %q", from)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	objects, err := store.List(ctx, from, "")
	if err != nil {
		return MigrateReport{}, fmt.Errorf("list source container: %w", err)
	}
	if !opts.DryRun {
		if err := store.EnsureContainer(ctx, to); err != nil {
			return MigrateReport{}, err
		}
	}

	var copied, skipped atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, obj := range objects {
		g.Go(func() error {
			if !opts.Overwrite {
				exists, err := store.Exists(ctx, to, obj.Name)
				if err != nil {
					return err
				}
				if exists {
					skipped.Add(1)
					return nil
				}
			}
			if opts.DryRun {
				logger.InfoContext(ctx, "would copy blob", "name", obj.Name, "bytes", obj.Size)
				copied.Add(1)
				return nil
			}

			r, err := store.Download(ctx, from, obj.Name)
			if err != nil {
				return fmt.Errorf("download %s: %w", obj.Name, err)
			}
			defer r.Close()
			if err := store.Upload(ctx, to, obj.Name, r); err != nil {
				return fmt.Errorf("upload %s: %w", obj.Name, err)
			}
			copied.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MigrateReport{}, err
	}

	return MigrateReport{
		Copied:  int(copied.Load()),
		Skipped: int(skipped.Load()),
		Total:   len(objects),
	}, nil
}

// AuditReport lists the blobs in one container that live outside the known
// prefixes. Nothing is deleted; the report is for a human.
type AuditReport struct {
	Container string
	Total     int
	Orphans   []Object
}

// Audit scans a container for blobs outside the known top-level prefixes.
func Audit(ctx context.Context, store Store, container string, knownPrefixes []string) (AuditReport, error) {
	objects, err := store.List(ctx, container, "")
	if err != nil {
		return AuditReport{}, fmt.Errorf("list container %s: %w", container, err)
	}

	report := AuditReport{Container: container, Total: len(objects)}
	for _, obj := range objects {
		if !hasKnownPrefix(obj.Name, knownPrefixes) {
			report.Orphans = append(report.Orphans, obj)
		}
	}
	return report, nil
}

func hasKnownPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
