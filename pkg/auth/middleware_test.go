package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testKey = "integration-key-0123456789"

func newTestGuard(devMode bool) *Guard {
	policy := NewPolicy([]string{testKey}, devMode)
	return NewGuard(policy, []string{"/", "/health", "/metrics"}, discardLogger())
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard_OpenPathsBypassAuth(t *testing.T) {
	handler := newTestGuard(false).Wrap(okHandler())

	for _, path := range []string{"/", "/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestGuard_ProtectedPathRequiresKey(t *testing.T) {
	handler := newTestGuard(false).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AUTHN_FAILED", body["code"])

	// The denial must not reveal anything about the registered keys.
	assert.NotContains(t, rec.Body.String(), testKey)
}

func TestGuard_ValidKeyAdmitted(t *testing.T) {
	handler := newTestGuard(false).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	req.Header.Set(APIKeyHeader, testKey)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_InvalidKeyRejected(t *testing.T) {
	handler := newTestGuard(false).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	req.Header.Set(APIKeyHeader, "wrong-key-0123456789")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuard_DevelopmentModeAdmitsWithoutKey(t *testing.T) {
	handler := newTestGuard(true).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_NonMemberNeverAdmittedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.StringMatching(`key-[a-z0-9]{20}`), 1, 8).Draw(t, "keys")
		candidate := rapid.StringMatching(`probe-[a-z0-9]{20}`).Draw(t, "candidate")

		guard := NewGuard(NewPolicy(keys, false), nil, discardLogger())
		handler := guard.Wrap(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/convert", nil)
		req.Header.Set(APIKeyHeader, candidate)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("unregistered candidate admitted, status %d", rec.Code)
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.10:51234",
			want:       "192.0.2.10",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "forwarded for wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "real ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
