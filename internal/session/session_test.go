package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/platform/config"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/requestcontext"
)

func testManager() *Manager {
	return NewManager(config.Session{
		SigningKey: "test-signing-key",
		TTL:        time.Hour,
		Secure:     false,
	})
}

func TestIssueAndValidate(t *testing.T) {
	manager := testManager()
	userID := id.NewUserID()
	now := time.Now()

	token, sessionID, err := manager.Issue(userID, "amore", now)
	require.NoError(t, err)
	require.False(t, sessionID.IsZero())

	sess, err := manager.Validate(token, "amore")
	require.NoError(t, err)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, sessionID, sess.SessionID)
	assert.WithinDuration(t, now.Add(time.Hour), sess.ExpiresAt, time.Second)
}

func TestValidateRejectsCrossSiteToken(t *testing.T) {
	manager := testManager()
	token, _, err := manager.Issue(id.NewUserID(), "amore", time.Now())
	require.NoError(t, err)

	_, err = manager.Validate(token, "bizlink")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	manager := testManager()
	token, _, err := manager.Issue(id.NewUserID(), "amore", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = manager.Validate(token, "amore")
	require.Error(t, err)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	manager := testManager()
	other := NewManager(config.Session{SigningKey: "other-key", TTL: time.Hour})

	token, _, err := other.Issue(id.NewUserID(), "amore", time.Now())
	require.NoError(t, err)

	_, err = manager.Validate(token, "amore")
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	manager := testManager()
	userID := id.NewUserID()
	token, _, err := manager.Issue(userID, "amore", time.Now())
	require.NoError(t, err)

	var gotUser id.UserID
	handler := Middleware(manager, "amore_session", "amore")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser = requestcontext.UserID(r.Context())
		}))

	t.Run("valid cookie authenticates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "amore_session", Value: token})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, userID, gotUser)
	})

	t.Run("missing cookie stays anonymous", func(t *testing.T) {
		gotUser = id.UserID{}
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.True(t, gotUser.IsZero())
	})

	t.Run("garbage cookie stays anonymous", func(t *testing.T) {
		gotUser = id.UserID{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "amore_session", Value: "garbage"})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.True(t, gotUser.IsZero())
	})
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithUserID(req.Context(), id.NewUserID()))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
