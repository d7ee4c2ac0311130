// Package site owns the host route table: which product domain a request
// belongs to and everything configured per domain (locales, OAuth providers,
// blob container, CSP, cookie names). The table is immutable after startup;
// changing it means restarting the process.
package site

import (
	"fmt"
	"strings"
	"time"

	id "atrium/pkg/domain"
)

// Status gates whether a site serves traffic.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// CSPPolicy lists allowed origins per directive. Rendered once into a header
// value when the registry is built.
type CSPPolicy struct {
	ScriptSrc      []string
	StyleSrc       []string
	ImgSrc         []string
	ConnectSrc     []string
	FrameAncestors []string
}

// Render produces the Content-Security-Policy header value. default-src
// 'self' is always present; empty directives are omitted.
func (p CSPPolicy) Render() string {
	var b strings.Builder
	b.WriteString("default-src 'self'")
	appendDirective(&b, "script-src", p.ScriptSrc)
	appendDirective(&b, "style-src", p.StyleSrc)
	appendDirective(&b, "img-src", p.ImgSrc)
	appendDirective(&b, "connect-src", p.ConnectSrc)
	appendDirective(&b, "frame-ancestors", p.FrameAncestors)
	return b.String()
}

func appendDirective(b *strings.Builder, name string, sources []string) {
	if len(sources) == 0 {
		return
	}
	b.WriteString("; ")
	b.WriteString(name)
	for _, src := range sources {
		b.WriteString(" ")
		b.WriteString(src)
	}
}

// Site is one routed product domain.
type Site struct {
	Key            id.SiteKey
	DisplayName    string
	PrimaryHost    string
	AliasHosts     []string
	DefaultLocale  string
	Locales        []string
	Providers      []string
	BlobContainer  string
	SessionCookie  string
	Status         Status
	CSP            CSPPolicy
	ConsentVersion string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Hosts returns the primary host followed by all aliases.
func (s Site) Hosts() []string {
	return append([]string{s.PrimaryHost}, s.AliasHosts...)
}

// ProviderEnabled reports whether the named OAuth provider is offered on this
// site.
func (s Site) ProviderEnabled(provider string) bool {
	for _, p := range s.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// SupportsLocale reports whether the site serves the given locale tag.
func (s Site) SupportsLocale(locale string) bool {
	for _, l := range s.Locales {
		if strings.EqualFold(l, locale) {
			return true
		}
	}
	return false
}

// Validate checks the fields the registry depends on.
func (s Site) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("site key is required")
	}
	if s.PrimaryHost == "" {
		return fmt.Errorf("site %s: primary host is required", s.Key)
	}
	if s.BlobContainer == "" {
		return fmt.Errorf("site %s: blob container is required", s.Key)
	}
	if s.SessionCookie == "" {
		return fmt.Errorf("site %s: session cookie name is required", s.Key)
	}
	if s.Status != StatusActive && s.Status != StatusDisabled {
		return fmt.Errorf("site %s: unknown status %q", s.Key, s.Status)
	}
	return nil
}
