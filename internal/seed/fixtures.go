package seed

import (
	"time"

	"atrium/internal/email"
	"atrium/internal/identity"
	"atrium/internal/site"
	id "atrium/pkg/domain"
)

var seededAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Sites returns the five product sites the platform serves. corp is the
// default site and catches unknown hosts.
func Sites() []site.Site {
	return []site.Site{
		{
			Key:           "amore",
			DisplayName:   "Amore",
			PrimaryHost:   "amore.example",
			AliasHosts:    []string{"www.amore.example"},
			DefaultLocale: "it",
			Locales:       []string{"it", "en"},
			Providers:     []string{"google", "facebook"},
			BlobContainer: "amore-media",
			SessionCookie: "amore_session",
			Status:        site.StatusActive,
			CSP: site.CSPPolicy{
				ScriptSrc:  []string{"'self'", "https://connect.facebook.net"},
				ImgSrc:     []string{"'self'", "data:", "https:"},
				ConnectSrc: []string{"'self'"},
			},
			ConsentVersion: "2026-01",
			CreatedAt:      seededAt,
			UpdatedAt:      seededAt,
		},
		{
			Key:           "bizlink",
			DisplayName:   "BizLink",
			PrimaryHost:   "bizlink.example",
			AliasHosts:    []string{"www.bizlink.example"},
			DefaultLocale: "en",
			Locales:       []string{"en", "de", "fr"},
			Providers:     []string{"google", "microsoft", "linkedin"},
			BlobContainer: "bizlink-media",
			SessionCookie: "bizlink_session",
			Status:        site.StatusActive,
			CSP: site.CSPPolicy{
				ScriptSrc:  []string{"'self'", "https://platform.linkedin.com"},
				ImgSrc:     []string{"'self'", "data:", "https:"},
				ConnectSrc: []string{"'self'", "https://api.linkedin.com"},
			},
			ConsentVersion: "2026-01",
			CreatedAt:      seededAt,
			UpdatedAt:      seededAt,
		},
		{
			Key:           "vinadopt",
			DisplayName:   "VinAdopt",
			PrimaryHost:   "vinadopt.example",
			AliasHosts:    []string{"www.vinadopt.example"},
			DefaultLocale: "fr",
			Locales:       []string{"fr", "en"},
			Providers:     []string{"google", "facebook"},
			BlobContainer: "vinadopt-media",
			SessionCookie: "vinadopt_session",
			Status:        site.StatusActive,
			CSP: site.CSPPolicy{
				ScriptSrc: []string{"'self'"},
				ImgSrc:    []string{"'self'", "data:", "https:"},
			},
			ConsentVersion: "2026-01",
			CreatedAt:      seededAt,
			UpdatedAt:      seededAt,
		},
		{
			Key:           "corp",
			DisplayName:   "Atrium Group",
			PrimaryHost:   "corp.example",
			AliasHosts:    []string{"www.corp.example"},
			DefaultLocale: "en",
			Locales:       []string{"en"},
			Providers:     []string{"google", "microsoft"},
			BlobContainer: "corp-media",
			SessionCookie: "corp_session",
			Status:        site.StatusActive,
			CSP: site.CSPPolicy{
				ScriptSrc:      []string{"'self'"},
				StyleSrc:       []string{"'self'", "'unsafe-inline'"},
				FrameAncestors: []string{"'none'"},
			},
			ConsentVersion: "2026-01",
			CreatedAt:      seededAt,
			UpdatedAt:      seededAt,
		},
		{
			Key:           "delega",
			DisplayName:   "Delega",
			PrimaryHost:   "delega.example",
			DefaultLocale: "it",
			Locales:       []string{"it"},
			Providers:     []string{"google", "microsoft"},
			BlobContainer: "delega-media",
			SessionCookie: "delega_session",
			Status:        site.StatusActive,
			CSP: site.CSPPolicy{
				ScriptSrc:      []string{"'self'"},
				FrameAncestors: []string{"'none'"},
			},
			ConsentVersion: "2026-01",
			CreatedAt:      seededAt,
			UpdatedAt:      seededAt,
		},
	}
}

// Templates returns the welcome mail for every site in its default locale,
// plus English fallbacks where the default differs.
func Templates() []email.Template {
	type tpl struct {
		siteKey id.SiteKey
		locale  string
		subject string
		body    string
	}
	all := []tpl{
		{"amore", "it", "Benvenuto su {{.SiteName}}", "Ciao {{.DisplayName}},\n\nil tuo profilo su {{.SiteName}} è pronto.\n"},
		{"amore", "en", "Welcome to {{.SiteName}}", "Hi {{.DisplayName}},\n\nyour {{.SiteName}} profile is ready.\n"},
		{"bizlink", "en", "Welcome to {{.SiteName}}", "Hi {{.DisplayName}},\n\nstart growing your network on {{.SiteName}}.\n"},
		{"vinadopt", "fr", "Bienvenue sur {{.SiteName}}", "Bonjour {{.DisplayName}},\n\nvotre vigne vous attend sur {{.SiteName}}.\n"},
		{"vinadopt", "en", "Welcome to {{.SiteName}}", "Hi {{.DisplayName}},\n\nyour vines await you on {{.SiteName}}.\n"},
		{"corp", "en", "Welcome to {{.SiteName}}", "Hi {{.DisplayName}},\n\nyour {{.SiteName}} account is active.\n"},
		{"delega", "it", "Benvenuto su {{.SiteName}}", "Ciao {{.DisplayName}},\n\nil tuo account {{.SiteName}} è attivo.\n"},
	}

	out := make([]email.Template, 0, len(all))
	for _, t := range all {
		out = append(out, email.Template{
			Key:       email.WelcomeTemplateKey,
			SiteKey:   t.siteKey,
			Locale:    t.locale,
			Subject:   t.subject,
			Body:      t.body,
			UpdatedAt: seededAt,
		})
	}
	return out
}

// DemoUser ties a fake-provider profile to the site it signs up on.
type DemoUser struct {
	Profile identity.Profile
	SiteKey id.SiteKey
}

// DemoUsers returns accounts for local development, backed by the fake
// provider so they can log in without real OAuth credentials.
func DemoUsers() []DemoUser {
	return []DemoUser{
		{
			Profile: identity.Profile{
				Provider:    "fake",
				Subject:     "demo-ada",
				Email:       "ada@atrium.example",
				DisplayName: "Ada Rossi",
			},
			SiteKey: "amore",
		},
		{
			Profile: identity.Profile{
				Provider:    "fake",
				Subject:     "demo-bruno",
				Email:       "bruno@atrium.example",
				DisplayName: "Bruno Keller",
			},
			SiteKey: "bizlink",
		},
		{
			Profile: identity.Profile{
				Provider:    "fake",
				Subject:     "demo-claire",
				Email:       "claire@atrium.example",
				DisplayName: "Claire Dubois",
			},
			SiteKey: "vinadopt",
		},
	}
}
