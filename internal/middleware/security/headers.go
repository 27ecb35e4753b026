package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// Extra origins allowed to serve scripts, e.g. the htmx CDN
	ScriptSources []string

	// HSTS, sent on TLS requests only
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginEmbedder string
	CrossOriginResource string

	// Path prefixes whose responses depend on the current dataset snapshot.
	// They are marked no-store and vary on HX-Request.
	LivePrefixes []string
}

// DefaultHeadersConfig returns the policy for the dashboard.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ScriptSources:         []string{"https://unpkg.com"},
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		// credentialless lets the CDN script load without CORP headers
		CrossOriginEmbedder: "credentialless",
		CrossOriginResource: "same-origin",
		LivePrefixes:        []string{"/ui/", "/api/"},
	}
}

// ContentSecurityPolicy renders the CSP. Inline styles are allowed for the
// bar widths set by the templates.
func (c HeadersConfig) ContentSecurityPolicy() string {
	scripts := append([]string{"'self'"}, c.ScriptSources...)
	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(scripts, " "),
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"connect-src 'self'",
		"object-src 'none'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
	csp    string
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{
		config: config,
		csp:    config.ContentSecurityPolicy(),
	}
	if config.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Content-Security-Policy", h.csp)
		headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
		headers.Set("Permissions-Policy", h.config.PermissionsPolicy)
		headers.Set("Cross-Origin-Opener-Policy", h.config.CrossOriginOpener)
		headers.Set("Cross-Origin-Embedder-Policy", h.config.CrossOriginEmbedder)
		headers.Set("Cross-Origin-Resource-Policy", h.config.CrossOriginResource)

		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		if h.isLive(r.URL.Path) {
			headers.Set("Cache-Control", "no-store")
			headers.Add("Vary", "HX-Request")
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) isLive(path string) bool {
	for _, prefix := range h.config.LivePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// StaticAssetMiddleware marks embedded assets cacheable for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
