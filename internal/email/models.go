// Package email keeps per-site, per-locale mail template metadata and a
// small best-effort sender used for the first-signup welcome mail.
package email

import (
	"time"

	id "atrium/pkg/domain"
)

// Template is one renderable message, keyed by (key, site, locale).
type Template struct {
	Key       string
	SiteKey   id.SiteKey
	Locale    string
	Subject   string
	Body      string
	UpdatedAt time.Time
}

// Message is a rendered mail ready for a Sender.
type Message struct {
	To      string
	Subject string
	Body    string
	SiteKey id.SiteKey
}
