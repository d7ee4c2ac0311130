package consent

import (
	"context"

	id "atrium/pkg/domain"
)

// Store persists consent decisions. Put overwrites any earlier decision for
// the same (subject, site, category).
type Store interface {
	Put(ctx context.Context, records []Record) error
	List(ctx context.Context, subject string, siteKey id.SiteKey) ([]Record, error)
	Delete(ctx context.Context, subject string, siteKey id.SiteKey) error
}
