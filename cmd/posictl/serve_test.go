package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"posichain/gateway/routes"
)

const gatewaySecret = "gateway-test-secret"

func openTestSession(t *testing.T, path string) *session {
	t.Helper()
	s, err := openSession(path, "", defaultPassEnv)
	require.NoError(t, err)
	return s
}

func TestGatewayServesLedger(t *testing.T) {
	path, operator := newWorkspace(t)
	t.Setenv("POSI_GATEWAY_JWT_SECRET", "")
	_, stderr, code := runCLI(t, path, "init")
	require.Equal(t, 0, code, stderr)

	s := openTestSession(t, path)
	defer s.close()
	h, err := newGateway(s, prometheus.NewRegistry())
	require.NoError(t, err)

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/balance/"+operator.String(), nil))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var balance map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &balance))
	require.Equal(t, "10000000000000000000000000", balance["balance"])

	res = httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/events?limit=5", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "token.transfer")

	res = httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/admin/advance", strings.NewReader(`{"units":1}`)))
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestGatewayAdminAdvancePersists(t *testing.T) {
	path, _ := newWorkspace(t)
	t.Setenv("POSI_GATEWAY_JWT_SECRET", gatewaySecret)
	_, stderr, code := runCLI(t, path, "init")
	require.Equal(t, 0, code, stderr)

	s := openTestSession(t, path)
	h, err := newGateway(s, prometheus.NewRegistry())
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": routes.AdminScope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(gatewaySecret))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/advance", strings.NewReader(`{"units":3}`))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	s.close()

	reopened := openTestSession(t, path)
	defer reopened.close()
	require.Equal(t, uint64(3), reopened.ledger.Height())
}
