package email

import (
	"context"

	id "atrium/pkg/domain"
)

// Store persists mail templates.
type Store interface {
	Get(ctx context.Context, key string, siteKey id.SiteKey, locale string) (Template, error)
	Upsert(ctx context.Context, t Template) error
	List(ctx context.Context, siteKey id.SiteKey) ([]Template, error)
}
