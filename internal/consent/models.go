package consent

import (
	"time"

	id "atrium/pkg/domain"
)

// Category labels what a consent decision covers. Necessary is implied and
// never asked for; the other categories default to denied until the subject
// decides.
type Category string

const (
	CategoryNecessary Category = "necessary"
	CategoryAnalytics Category = "analytics"
	CategoryMarketing Category = "marketing"
)

// Optional lists the categories a subject actually decides on.
func Optional() []Category {
	return []Category{CategoryAnalytics, CategoryMarketing}
}

// Valid reports whether the category is one the platform knows.
func (c Category) Valid() bool {
	switch c {
	case CategoryNecessary, CategoryAnalytics, CategoryMarketing:
		return true
	}
	return false
}

// Record is one subject's decision for one category on one site. Subject is
// either a logged-in user or an anonymous visitor cookie; the prefix in the
// subject string tells them apart.
type Record struct {
	Subject       string
	SiteKey       id.SiteKey
	Category      Category
	Granted       bool
	PolicyVersion string
	DecidedAt     time.Time
}

// Current reports whether the decision was made against the site's active
// policy version. A stale decision means the banner comes back.
func (r Record) Current(policyVersion string) bool {
	return r.PolicyVersion == policyVersion
}
