package site

import (
	"context"

	id "atrium/pkg/domain"
)

// Store loads and persists site records. The gateway reads the full list once
// at boot; Upsert exists for the seed command.
type Store interface {
	List(ctx context.Context) ([]Site, error)
	Get(ctx context.Context, key id.SiteKey) (Site, error)
	Upsert(ctx context.Context, s Site) error
}
