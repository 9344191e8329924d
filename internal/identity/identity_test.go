package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tasksync-backend/internal/apperr"
)

var testSecret = []byte("test-secret")

func serviceWithToken(t *testing.T, tokenID, secret string) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return New(testSecret, map[string]string{tokenID: string(hash)})
}

func TestResolveAnonymous(t *testing.T) {
	s := New(testSecret, nil)

	first, err := s.Resolve(context.Background(), "")
	require.NoError(t, err)
	second, err := s.Resolve(context.Background(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	// Anonymous identities are re-issued per session, never repeated.
	assert.NotEqual(t, first, second)
}

func TestResolveDurableToken(t *testing.T) {
	s := serviceWithToken(t, "device-a", "hunter2")

	id, err := s.Resolve(context.Background(), "device-a.hunter2")
	require.NoError(t, err)
	assert.Equal(t, "user-device-a", id)

	// Same token, same subject across sessions.
	again, err := s.Resolve(context.Background(), "device-a.hunter2")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	s := serviceWithToken(t, "device-a", "hunter2")

	for name, token := range map[string]string{
		"malformed":    "no-separator",
		"unknown id":   "device-b.hunter2",
		"wrong secret": "device-a.letmein",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Resolve(context.Background(), token)
			assert.True(t, errors.Is(err, apperr.ErrAuthentication), "got %v", err)
		})
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	s := New(testSecret, nil)

	token, err := s.SessionToken("anon-123")
	require.NoError(t, err)

	id, err := s.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "anon-123", id)
}

func TestParseSessionRejectsForgedToken(t *testing.T) {
	s := New(testSecret, nil)
	other := New([]byte("other-secret"), nil)

	forged, err := other.SessionToken("anon-123")
	require.NoError(t, err)

	_, err = s.ParseSession(forged)
	assert.True(t, errors.Is(err, apperr.ErrAuthentication))
}

func TestWrapInjectsIdentity(t *testing.T) {
	s := New(testSecret, nil)
	token, err := s.SessionToken("anon-123")
	require.NoError(t, err)

	var got string
	handler := s.Wrap(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		got = id
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon-123", got)
}

func TestWrapRejectsMissingAndInvalidTokens(t *testing.T) {
	s := New(testSecret, nil)
	handler := s.Wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	})

	for name, header := range map[string]string{
		"missing": "",
		"garbage": "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
