package consent

import (
	"context"
	"sort"

	"atrium/internal/site"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/requestcontext"
)

// Status is what the banner renders: the active policy version, every
// optional category with its effective decision, and whether the subject
// still needs to be asked.
type Status struct {
	PolicyVersion string            `json:"policy_version"`
	Decisions     map[Category]bool `json:"decisions"`
	Pending       bool              `json:"pending"`
}

// Service applies the per-site consent policy over a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Decide records the subject's choices against the site's current policy
// version. Unknown categories and attempts to deny the necessary category
// are rejected.
func (s *Service) Decide(ctx context.Context, st *site.Site, subject string, decisions map[Category]bool) error {
	if subject == "" {
		return dErrors.New(dErrors.CodeBadRequest, "consent subject is required")
	}
	if len(decisions) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one consent decision is required")
	}

	now := requestcontext.Now(ctx)
	records := make([]Record, 0, len(decisions))
	for category, granted := range decisions {
		if !category.Valid() {
			return dErrors.Newf(dErrors.CodeBadRequest, "unknown consent category %q", category)
		}
		if category == CategoryNecessary && !granted {
			return dErrors.New(dErrors.CodeBadRequest, "necessary cookies cannot be refused")
		}
		records = append(records, Record{
			Subject:       subject,
			SiteKey:       st.Key,
			Category:      category,
			Granted:       granted,
			PolicyVersion: st.ConsentVersion,
			DecidedAt:     now,
		})
	}
	// Map iteration order is random; keep writes deterministic.
	sort.Slice(records, func(i, j int) bool { return records[i].Category < records[j].Category })

	if err := s.store.Put(ctx, records); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not save consent")
	}
	return nil
}

// Status resolves the subject's effective decisions. Categories never
// decided, or decided under an older policy version, count as denied and
// flip Pending.
func (s *Service) Status(ctx context.Context, st *site.Site, subject string) (Status, error) {
	status := Status{
		PolicyVersion: st.ConsentVersion,
		Decisions:     map[Category]bool{CategoryNecessary: true},
	}

	var records []Record
	if subject != "" {
		var err error
		records, err = s.store.List(ctx, subject, st.Key)
		if err != nil {
			return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not load consent")
		}
	}

	byCategory := make(map[Category]Record, len(records))
	for _, r := range records {
		byCategory[r.Category] = r
	}
	for _, category := range Optional() {
		r, decided := byCategory[category]
		if !decided || !r.Current(st.ConsentVersion) {
			status.Decisions[category] = false
			status.Pending = true
			continue
		}
		status.Decisions[category] = r.Granted
	}
	return status, nil
}

// Revoke forgets every decision the subject made on the site. The next
// Status call reports Pending again.
func (s *Service) Revoke(ctx context.Context, st *site.Site, subject string) error {
	if subject == "" {
		return dErrors.New(dErrors.CodeBadRequest, "consent subject is required")
	}
	if err := s.store.Delete(ctx, subject, st.Key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not revoke consent")
	}
	return nil
}

// Granted reports whether the subject currently allows the category on the
// site. Callers gating analytics snippets use this.
func (s *Service) Granted(ctx context.Context, st *site.Site, subject string, category Category) (bool, error) {
	if category == CategoryNecessary {
		return true, nil
	}
	status, err := s.Status(ctx, st, subject)
	if err != nil {
		return false, err
	}
	return status.Decisions[category], nil
}

// Subject derives the consent subject from the request context: the user ID
// when logged in, else the anonymous visitor ID. Empty when neither exists.
func Subject(ctx context.Context) string {
	if userID := requestcontext.UserID(ctx); !userID.IsZero() {
		return "user:" + userID.String()
	}
	if visitorID := requestcontext.VisitorID(ctx); !visitorID.IsZero() {
		return "visitor:" + visitorID.String()
	}
	return ""
}
