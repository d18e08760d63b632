package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func capture(t *testing.T, opts Options, path, authz string) (Identity, bool) {
	t.Helper()
	var (
		got Identity
		ok  bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "http://example"+path, nil)
	if authz != "" {
		r.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	Middleware(opts)(next).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, "auth middleware never rejects")
	return got, ok
}

func TestMiddleware_ValidTokenSetsIdentity(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub":   "u1",
		"email": "u1@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	id, ok := capture(t, Options{Secret: secret}, "/api/transactions", "Bearer "+tok)
	require.True(t, ok)
	assert.Equal(t, Identity{Subject: "u1", Email: "u1@example.com"}, id)
}

func TestMiddleware_AnonymousCases(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u1"})

	tests := []struct {
		name  string
		opts  Options
		path  string
		authz string
	}{
		{name: "no header", opts: Options{Secret: secret}, path: "/api/x"},
		{name: "not bearer", opts: Options{Secret: secret}, path: "/api/x", authz: "Basic abc"},
		{name: "wrong secret", opts: Options{Secret: []byte("other")}, path: "/api/x", authz: "Bearer " + valid},
		{name: "garbage token", opts: Options{Secret: secret}, path: "/api/x", authz: "Bearer not-a-jwt"},
		{name: "expired", opts: Options{Secret: secret}, path: "/api/x",
			authz: "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})},
		{name: "no subject", opts: Options{Secret: secret}, path: "/api/x",
			authz: "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"email": "a@b.c"})},
		{name: "algorithm not allowed", opts: Options{Secret: secret, Algorithm: "HS512"}, path: "/api/x", authz: "Bearer " + valid},
		{name: "public path", opts: Options{Secret: secret}, path: "/api/auth/login", authz: "Bearer " + valid},
		{name: "no secret configured", opts: Options{}, path: "/api/x", authz: "Bearer " + valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := capture(t, tt.opts, tt.path, tt.authz)
			assert.False(t, ok)
		})
	}
}

func TestVerifier_HS512(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{"sub": "u2"})

	id, err := NewVerifier(secret, "HS512").Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u2", id.Subject)

	_, err = NewVerifier(secret, "").Verify(tok)
	assert.Error(t, err, "default verifier only accepts HS256")
}

func TestSubjectFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	_, ok := SubjectFromRequest(r)
	assert.False(t, ok)

	r = r.WithContext(WithIdentity(r.Context(), Identity{Subject: "u1"}))
	sub, ok := SubjectFromRequest(r)
	assert.True(t, ok)
	assert.Equal(t, "u1", sub)
}
