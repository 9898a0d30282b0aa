package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/receive-q", nil)
	r.RemoteAddr = "10.0.0.9:54321"
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 70.41.3.18")
	require.Equal(t, "203.0.113.5", clientIP(r))
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/receive-q", nil)
	r.RemoteAddr = "192.168.1.7:12345"
	require.Equal(t, "192.168.1.7", clientIP(r))
}

func TestRequestIsFromTrustedIP(t *testing.T) {
	trusted := NewTrustedPeers([]string{"203.0.113.5", "192.168.1.7"})

	r := httptest.NewRequest(http.MethodPost, "/api/receive-q", nil)
	r.RemoteAddr = "203.0.113.5:1"
	require.True(t, trusted.requestIsFromTrustedIP(r))

	r = httptest.NewRequest(http.MethodPost, "/api/receive-q", nil)
	r.RemoteAddr = "198.51.100.2:1"
	require.False(t, trusted.requestIsFromTrustedIP(r))
}

func TestRequirePeerGating(t *testing.T) {
	srv := &Server{Trusted: NewTrustedPeers([]string{"203.0.113.5"})}
	called := false
	h := srv.requirePeer(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodPost, "/api/receive-q", nil)
	r.RemoteAddr = "198.51.100.2:1"
	w := httptest.NewRecorder()
	h(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, called)

	r = httptest.NewRequest(http.MethodPost, "/api/receive-q", nil)
	r.RemoteAddr = "203.0.113.5:1"
	w = httptest.NewRecorder()
	h(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, called)
}
