package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeConflict, "state already consumed")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("wrapped chain preserves inner codes", func(t *testing.T) {
		inner := New(CodeNotFound, "state not found")
		outer := Wrap(inner, CodeUnauthorized, "login could not be completed")
		assert.True(t, HasCode(outer, CodeUnauthorized))
		assert.True(t, HasCode(outer, CodeNotFound))
		assert.False(t, HasCode(outer, CodeConflict))
	})

	t.Run("non-domain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("chain survives fmt wrapping", func(t *testing.T) {
		err := New(CodeUnauthorized, "state expired")
		wrapped := fmt.Errorf("callback: %w", err)
		assert.True(t, HasCode(wrapped, CodeUnauthorized))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "x")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "state expired", MessageOf(New(CodeUnauthorized, "state expired")))
	assert.Equal(t, "internal error", MessageOf(errors.New("database on fire")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeDuplicateInFlight, http.StatusConflict},
		{CodeInvariantViolation, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToHTTPStatus(tc.code), "code %s", tc.code)
	}
}
