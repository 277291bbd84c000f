package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func serve(h http.Handler, req *http.Request) int {
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res.Code
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{"query": {RequestsPerMinute: 1, Burst: 1}}, nil)
	handler := limiter.Middleware("query")(ok)

	req := httptest.NewRequest(http.MethodGet, "/v1/token", nil)
	if code := serve(handler, req); code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", code)
	}
	if code := serve(handler, req); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", code)
	}

	other := httptest.NewRequest(http.MethodGet, "/v1/token", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	if code := serve(handler, other); code != http.StatusOK {
		t.Fatalf("expected a different client to pass, got %d", code)
	}
}

func TestRateLimiterSeparatesGroupsAndEvicts(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"query": {RequestsPerMinute: 1, Burst: 1},
		"admin": {RequestsPerMinute: 1, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, serve(limiter.Middleware("query")(ok), req))
	require.Equal(t, http.StatusOK, serve(limiter.Middleware("admin")(ok), req))
	require.Equal(t, http.StatusOK, serve(limiter.Middleware("unlimited")(ok), req))
	require.Equal(t, http.StatusTooManyRequests, serve(limiter.Middleware("query")(ok), req))

	now = now.Add(10 * time.Minute)
	require.Equal(t, http.StatusOK, serve(limiter.Middleware("query")(ok), req))
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthenticatorScopes(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: "secret", Issuer: "posi-ops"}, nil)
	var subject any
	handler := auth.Middleware("ledger:admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = r.Context().Value(ContextKeySubject)
		w.WriteHeader(http.StatusOK)
	}))
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signed(t, "other", jwt.MapClaims{"scope": "ledger:admin", "iss": "posi-ops", "exp": exp}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signed(t, "secret", jwt.MapClaims{"scope": "ledger:admin", "iss": "else", "exp": exp}), http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, "secret", jwt.MapClaims{"scope": "ledger:admin", "iss": "posi-ops", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"no expiry", "Bearer " + signed(t, "secret", jwt.MapClaims{"scope": "ledger:admin", "iss": "posi-ops"}), http.StatusUnauthorized},
		{"missing scope", "Bearer " + signed(t, "secret", jwt.MapClaims{"scope": "ledger:read", "iss": "posi-ops", "exp": exp}), http.StatusForbidden},
		{"valid", "Bearer " + signed(t, "secret", jwt.MapClaims{"scope": "ledger:read ledger:admin", "iss": "posi-ops", "exp": exp, "sub": "ops"}), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/advance", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if code := serve(handler, req); code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, code)
		}
	}
	require.Equal(t, "ops", subject)
}

func TestAuthenticatorWithoutSecretRejects(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "x", jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}))
	require.Equal(t, http.StatusUnauthorized, serve(auth.Middleware()(ok), req))
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{})(ok)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodOptions, "/v1/token", nil))
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEchoesListedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://a.example", "https://b.example"}})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/v1/token", nil)
	req.Header.Set("Origin", "https://b.example")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://b.example", res.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", res.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/v1/token", nil)
	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

func TestObservabilityCountsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs := NewObservability("test", registry, nil)
	handler := obs.Middleware("query")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	serve(handler, httptest.NewRequest(http.MethodGet, "/v1/token", nil))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.requests.WithLabelValues("query", http.MethodGet, "418")))
}
