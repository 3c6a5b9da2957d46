package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionContext_InfoFromToken(t *testing.T) {
	key := rsaKey(t)
	exp := time.Now().Add(time.Hour)
	s := NewSessionContext(NewMemoryTokenStore(), NewTokenInspector(&key.PublicKey), zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, "", s.Token(ctx))
	assert.False(t, s.Info(ctx).Authenticated)

	require.NoError(t, s.Set(ctx, signRS256(t, key, claimsFor("ops@bank", exp))))
	info := s.Info(ctx)
	assert.True(t, info.Authenticated)
	assert.Equal(t, "ops@bank", info.Subject)
	require.NotNil(t, info.ExpiresAt)
	assert.Equal(t, exp.UTC().Truncate(time.Second), *info.ExpiresAt)

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.Info(ctx).Authenticated)
}

func TestSessionContext_ExpiredTokenIsDropped(t *testing.T) {
	key := rsaKey(t)
	store := NewMemoryTokenStore()
	inspector := NewTokenInspector(&key.PublicKey)
	s := NewSessionContext(store, inspector, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, signRS256(t, key, claimsFor("ops", time.Now().Add(time.Minute)))))
	inspector.now = func() time.Time { return time.Now().Add(time.Hour) }

	assert.Empty(t, s.Token(ctx))
	stored, _ := store.Load(ctx)
	assert.Empty(t, stored)
}

func TestSessionContext_OpaqueTokenStillSent(t *testing.T) {
	s := NewSessionContext(NewMemoryTokenStore(), NewTokenInspector(nil), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "opaque-token"))
	assert.Equal(t, "opaque-token", s.Token(ctx))
	info := s.Info(ctx)
	assert.True(t, info.Authenticated)
	assert.Empty(t, info.Subject)
}

func TestMiddleware_PutsOperatorIntoContext(t *testing.T) {
	key := rsaKey(t)
	s := NewSessionContext(NewMemoryTokenStore(), NewTokenInspector(&key.PublicKey), zap.NewNop())

	var got string
	h := NewMiddleware(s, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Operator(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "anonymous", got)

	require.NoError(t, s.Set(context.Background(), signRS256(t, key, claimsFor("ops@bank", time.Now().Add(time.Hour)))))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "ops@bank", got)

	require.NoError(t, s.Set(context.Background(), "opaque"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "operator", got)
}
