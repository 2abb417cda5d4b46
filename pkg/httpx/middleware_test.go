package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenancy/pkg/jwtx"
)

func protectedEcho(t *testing.T, scopes ...string) http.Handler {
	t.Helper()

	v := jwtx.Verifier{Secret: []byte("middleware-test-secret"), Issuer: "test-issuer"}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromCtx(r.Context())))
	})

	mw := []Middleware{AuthnMiddleware(v)}
	if len(scopes) > 0 {
		mw = append(mw, RequireAnyScope(scopes...))
	}
	return Chain(h, mw...)
}

func signTestToken(t *testing.T, subject string, scopes []string) string {
	t.Helper()

	signer := jwtx.Signer{
		Secret: []byte("middleware-test-secret"),
		Issuer: "test-issuer",
		TTL:    time.Minute,
	}
	token, err := signer.Sign(subject, subject+"@example.com", scopes)
	require.NoError(t, err)
	return token
}

func TestAuthnMiddleware(t *testing.T) {
	handler := protectedEcho(t)

	t.Run("rejects missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("injects verified identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user-1", nil))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})
}

func TestRequireAnyScope(t *testing.T) {
	handler := protectedEcho(t, "tenancy.admin", "tenancy.ops")

	t.Run("admits matching scope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization",
			"Bearer "+signTestToken(t, "user-1", []string{"profile", "tenancy.ops"}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing scope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization",
			"Bearer "+signTestToken(t, "user-1", []string{"profile"}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})
}
