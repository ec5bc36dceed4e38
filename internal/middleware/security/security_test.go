package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Cache-Control":           "no-store",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	res, err := NewResolver("203.0.113.0/24")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "198.51.100.7:5000", want: "198.51.100.7"},
		{name: "untrusted peer spoofing", remote: "198.51.100.7:5000", xff: "1.2.3.4", want: "198.51.100.7"},
		{name: "private proxy", remote: "10.0.0.2:80", xff: "1.2.3.4, 10.0.0.9", want: "1.2.3.4"},
		{name: "extra trusted proxy", remote: "203.0.113.5:80", xri: "5.6.7.8", want: "5.6.7.8"},
		{name: "garbage forwarded", remote: "127.0.0.1:80", xff: "not-an-ip", want: "127.0.0.1"},
		{name: "unparseable remote", remote: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := res.ClientIP(req); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
	if res.SpoofAttempts() != 1 {
		t.Fatalf("SpoofAttempts = %d, want 1", res.SpoofAttempts())
	}
}

func TestNewResolverRejectsBadCIDR(t *testing.T) {
	if _, err := NewResolver("10.0.0.0/99"); err == nil {
		t.Fatal("expected error")
	}
}
