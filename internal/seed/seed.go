// Package seed loads the five product sites and their fixtures into the
// stores. Everything is an upsert; running it twice is a no-op.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"atrium/internal/email"
	"atrium/internal/identity"
	"atrium/internal/oauthstate"
	"atrium/internal/site"
)

// Options tunes one seeding run.
type Options struct {
	// DryRun logs what would change without writing.
	DryRun bool
	// Reset additionally sweeps expired OAuth states.
	Reset bool
}

// Report sums up a run.
type Report struct {
	Sites       int
	Templates   int
	Users       int
	StatesSwept int
}

// Seeder writes the fixture data through the same stores the gateway uses.
type Seeder struct {
	sites      site.Store
	templates  email.Store
	identities identity.Store
	states     oauthstate.Store
	logger     *slog.Logger
}

func New(sites site.Store, templates email.Store, identities identity.Store, states oauthstate.Store, logger *slog.Logger) *Seeder {
	return &Seeder{
		sites:      sites,
		templates:  templates,
		identities: identities,
		states:     states,
		logger:     logger,
	}
}

// Run seeds sites, templates, and demo users.
func (s *Seeder) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report

	for _, st := range Sites() {
		if opts.DryRun {
			s.logger.InfoContext(ctx, "would seed site", "site", st.Key, "host", st.PrimaryHost)
		} else if err := s.sites.Upsert(ctx, st); err != nil {
			return report, fmt.Errorf("seed site %s: %w", st.Key, err)
		}
		report.Sites++
	}

	for _, t := range Templates() {
		if opts.DryRun {
			s.logger.InfoContext(ctx, "would seed template", "key", t.Key, "site", t.SiteKey, "locale", t.Locale)
		} else if err := s.templates.Upsert(ctx, t); err != nil {
			return report, fmt.Errorf("seed template %s/%s/%s: %w", t.SiteKey, t.Key, t.Locale, err)
		}
		report.Templates++
	}

	for _, du := range DemoUsers() {
		if opts.DryRun {
			s.logger.InfoContext(ctx, "would seed demo user", "email", du.Profile.Email, "site", du.SiteKey)
			report.Users++
			continue
		}
		_, _, created, err := s.identities.FindOrCreateBySocial(ctx, du.Profile, du.SiteKey)
		if err != nil {
			return report, fmt.Errorf("seed demo user %s: %w", du.Profile.Email, err)
		}
		if created {
			report.Users++
		}
	}

	if opts.Reset && !opts.DryRun {
		swept, err := s.states.DeleteExpired(ctx, time.Now())
		if err != nil {
			return report, fmt.Errorf("sweep expired states: %w", err)
		}
		report.StatesSwept = swept
	}

	return report, nil
}
