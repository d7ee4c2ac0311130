package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "atrium/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})

	t.Run("session and visitor IDs share the invariant", func(t *testing.T) {
		_, err := ParseSessionID("nope")
		require.Error(t, err)
		_, err = ParseVisitorID(uuid.Nil.String())
		require.Error(t, err)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	sessionID := SessionID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = sessionID   // compile error
	// var _ SessionID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(sessionID))
}

func TestParseSiteKey(t *testing.T) {
	t.Run("accepts lowercase slugs", func(t *testing.T) {
		for _, raw := range []string{"amore", "bizlink", "vinadopt", "corp-site", "delega2"} {
			key, err := ParseSiteKey(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, key.String())
		}
	})

	t.Run("rejects everything else", func(t *testing.T) {
		for _, raw := range []string{"", "A", "Amore", "1site", "-lead", "has space", "x", "trailing_"} {
			_, err := ParseSiteKey(raw)
			require.Error(t, err, "%q should be rejected", raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
