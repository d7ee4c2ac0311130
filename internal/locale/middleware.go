package locale

import (
	"net/http"

	"golang.org/x/text/language"

	"atrium/internal/site"
	"atrium/pkg/requestcontext"
)

// Negotiator resolves the request locale against one site's supported list.
// Built once per site at startup; matching is allocation-light.
type Negotiator struct {
	matcher language.Matcher
	locales []string
	def     string
}

// NewNegotiator builds a matcher over the site's locales. Unparseable tags
// are skipped; an empty list degrades to always answering the default.
func NewNegotiator(st *site.Site) *Negotiator {
	var tags []language.Tag
	var locales []string
	for _, loc := range st.Locales {
		tag, err := language.Parse(loc)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		locales = append(locales, loc)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
		locales = []string{st.DefaultLocale}
	}
	return &Negotiator{
		matcher: language.NewMatcher(tags),
		locales: locales,
		def:     st.DefaultLocale,
	}
}

// Resolve picks the best supported locale for an Accept-Language header.
// Malformed headers and no-confidence matches both answer the default.
func (n *Negotiator) Resolve(acceptLanguage string) string {
	if acceptLanguage == "" {
		return n.def
	}
	wanted, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(wanted) == 0 {
		return n.def
	}
	_, index, conf := n.matcher.Match(wanted...)
	if conf == language.No {
		return n.def
	}
	return n.locales[index]
}

// Middleware stores the negotiated locale in the request context.
func (n *Negotiator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := n.Resolve(r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(requestcontext.WithLocale(r.Context(), locale)))
	})
}
