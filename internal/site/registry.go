package site

import (
	"fmt"
	"net"
	"strings"

	id "atrium/pkg/domain"
	platformstrings "atrium/pkg/platform/strings"
)

// Registry is the immutable host route table. Built once at startup from the
// site store; Lookup never misses, unknown hosts fall back to the default
// site.
type Registry struct {
	byHost      map[string]*Site
	byKey       map[id.SiteKey]*Site
	defaultSite *Site
	headers     map[id.SiteKey]Headers
}

// Headers is the pre-rendered per-site security header set.
type Headers struct {
	CSP            string
	ReferrerPolicy string
	ContentType    string
	FrameOptions   string
}

// NewRegistry builds the route table. Duplicate host claims and a missing
// default site are startup errors.
func NewRegistry(sites []Site, defaultKey id.SiteKey) (*Registry, error) {
	r := &Registry{
		byHost:  make(map[string]*Site),
		byKey:   make(map[id.SiteKey]*Site),
		headers: make(map[id.SiteKey]Headers),
	}

	for i := range sites {
		s := &sites[i]
		// Hand-edited rows arrive with stray casing and duplicates; clean
		// the list fields before they become route and lookup keys.
		s.AliasHosts = platformstrings.DedupeAndTrimLower(s.AliasHosts)
		s.Providers = platformstrings.DedupeAndTrimLower(s.Providers)
		s.Locales = platformstrings.DedupeAndTrim(s.Locales)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byKey[s.Key]; dup {
			return nil, fmt.Errorf("duplicate site key %q", s.Key)
		}
		r.byKey[s.Key] = s

		for _, host := range s.Hosts() {
			normalized := NormalizeHost(host)
			if claimed, dup := r.byHost[normalized]; dup {
				return nil, fmt.Errorf("host %q claimed by both %s and %s", normalized, claimed.Key, s.Key)
			}
			r.byHost[normalized] = s
		}

		r.headers[s.Key] = Headers{
			CSP:            s.CSP.Render(),
			ReferrerPolicy: "strict-origin-when-cross-origin",
			ContentType:    "nosniff",
			FrameOptions:   "DENY",
		}
	}

	def, ok := r.byKey[defaultKey]
	if !ok {
		return nil, fmt.Errorf("default site %q is not configured", defaultKey)
	}
	r.defaultSite = def

	return r, nil
}

// Lookup resolves a request host to its site. Port and case are ignored;
// unknown hosts get the default site.
func (r *Registry) Lookup(host string) *Site {
	if s, ok := r.byHost[NormalizeHost(host)]; ok {
		return s
	}
	return r.defaultSite
}

// ByKey returns the site with the given key, or nil.
func (r *Registry) ByKey(key id.SiteKey) *Site {
	return r.byKey[key]
}

// Default returns the fallback site.
func (r *Registry) Default() *Site {
	return r.defaultSite
}

// All returns every configured site in no particular order.
func (r *Registry) All() []*Site {
	out := make([]*Site, 0, len(r.byKey))
	for _, s := range r.byKey {
		out = append(out, s)
	}
	return out
}

// SecurityHeaders returns the pre-rendered header set for a site.
func (r *Registry) SecurityHeaders(key id.SiteKey) Headers {
	return r.headers[key]
}

// NormalizeHost lowercases a host and strips any port.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
