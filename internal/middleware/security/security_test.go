package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		target string
		agent  string
		method string
		want   bool
	}{
		{"drill-down partial", "/ui/categories?age=Total&path=Food", "Mozilla/5.0", http.MethodGet, false},
		{"path traversal", "/static/../../etc/passwd", "Mozilla/5.0", http.MethodGet, true},
		{"dotenv probe", "/.env", "Mozilla/5.0", http.MethodGet, true},
		{"sql injection in query", "/api/categories?parent=x%27%20union%20select%201", "Mozilla/5.0", http.MethodGet, true},
		{"scanner agent", "/", "sqlmap/1.7", http.MethodGet, true},
		{"trace method", "/", "Mozilla/5.0", "TRACE", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "http://example.com"+tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
	if d.GetMetrics().SuspiciousRequests != 5 {
		t.Errorf("SuspiciousRequests = %d, want 5", d.GetMetrics().SuspiciousRequests)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.7:5555", "", "", "203.0.113.7"},
		{"untrusted proxy header ignored", "203.0.113.7:5555", "1.1.1.1", "", "203.0.113.7"},
		{"trusted proxy xff", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"garbage forwarded", "10.0.0.2:80", "not-an-ip", "", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
	if d.GetMetrics().InvalidIPAttempts != 1 {
		t.Errorf("InvalidIPAttempts = %d, want 1", d.GetMetrics().InvalidIPAttempts)
	}
	if err := d.AddTrustedProxy("nonsense"); err == nil {
		t.Error("expected invalid CIDR error")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "https://unpkg.com") {
		t.Error("CSP must allow the htmx CDN")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !strings.HasPrefix(rr.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Errorf("unexpected HSTS %q", rr.Header().Get("Strict-Transport-Security"))
	}
}

func TestStaticAssetMiddleware(t *testing.T) {
	h := StaticAssetMiddleware(3600)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHeadersMiddlewareLivePaths(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		path    string
		noStore bool
	}{
		{"/ui/categories", true},
		{"/api/age-totals", true},
		{"/categories", false},
		{"/static/app.css", false},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		got := rr.Header().Get("Cache-Control") == "no-store"
		if got != tt.noStore {
			t.Errorf("%s: no-store = %v, want %v", tt.path, got, tt.noStore)
		}
		if tt.noStore && rr.Header().Get("Vary") != "HX-Request" {
			t.Errorf("%s: Vary = %q", tt.path, rr.Header().Get("Vary"))
		}
	}
}

func TestContentSecurityPolicy(t *testing.T) {
	csp := HeadersConfig{ScriptSources: []string{"https://cdn.example"}}.ContentSecurityPolicy()
	if !strings.Contains(csp, "script-src 'self' https://cdn.example;") {
		t.Errorf("script-src missing: %s", csp)
	}
	if !strings.Contains(csp, "object-src 'none'") {
		t.Errorf("object-src missing: %s", csp)
	}
}
