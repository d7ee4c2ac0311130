package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "atrium/pkg/domain"
)

func testSite(key, host string) Site {
	return Site{
		Key:           id.SiteKey(key),
		DisplayName:   key,
		PrimaryHost:   host,
		BlobContainer: key + "-media",
		SessionCookie: key + "_session",
		Status:        StatusActive,
	}
}

func TestRegistryLookup(t *testing.T) {
	amore := testSite("amore", "amore.example")
	amore.AliasHosts = []string{"www.amore.example", "dating.example"}
	corp := testSite("corp", "corp.example")

	registry, err := NewRegistry([]Site{amore, corp}, "corp")
	require.NoError(t, err)

	t.Run("primary host", func(t *testing.T) {
		assert.Equal(t, id.SiteKey("amore"), registry.Lookup("amore.example").Key)
	})

	t.Run("alias host", func(t *testing.T) {
		assert.Equal(t, id.SiteKey("amore"), registry.Lookup("dating.example").Key)
	})

	t.Run("host with port", func(t *testing.T) {
		assert.Equal(t, id.SiteKey("amore"), registry.Lookup("amore.example:8080").Key)
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, id.SiteKey("amore"), registry.Lookup("AMORE.Example").Key)
	})

	t.Run("unknown host falls back to default", func(t *testing.T) {
		assert.Equal(t, id.SiteKey("corp"), registry.Lookup("nobody.example").Key)
	})
}

func TestRegistryStartupErrors(t *testing.T) {
	t.Run("duplicate host claim", func(t *testing.T) {
		a := testSite("a", "shared.example")
		b := testSite("b", "b.example")
		b.AliasHosts = []string{"Shared.Example"}

		_, err := NewRegistry([]Site{a, b}, "a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shared.example")
	})

	t.Run("missing default site", func(t *testing.T) {
		_, err := NewRegistry([]Site{testSite("a", "a.example")}, "nope")
		require.Error(t, err)
	})

	t.Run("invalid site rejected", func(t *testing.T) {
		bad := testSite("bad", "bad.example")
		bad.SessionCookie = ""
		_, err := NewRegistry([]Site{bad}, "bad")
		require.Error(t, err)
	})
}

func TestCSPRender(t *testing.T) {
	policy := CSPPolicy{
		ScriptSrc:      []string{"'self'", "https://cdn.example"},
		FrameAncestors: []string{"'none'"},
	}

	rendered := policy.Render()
	assert.Equal(t, "default-src 'self'; script-src 'self' https://cdn.example; frame-ancestors 'none'", rendered)
}

func TestCSPRenderEmpty(t *testing.T) {
	assert.Equal(t, "default-src 'self'", CSPPolicy{}.Render())
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "amore.example", NormalizeHost("AMORE.example:443"))
	assert.Equal(t, "amore.example", NormalizeHost("  amore.example "))
	assert.Equal(t, "localhost", NormalizeHost("localhost:8080"))
}
