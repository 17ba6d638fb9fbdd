package middleware

import (
	"net/http"
	"strings"
)

var cdnSources = []string{
	"https://cdn.jsdelivr.net",
	"https://unpkg.com",
	"https://cdnjs.cloudflare.com",
}

// ContentSecurityPolicy allows the editor page to load from this origin and
// the script CDNs it uses.
var ContentSecurityPolicy = strings.Join([]string{
	"default-src 'self' " + strings.Join(cdnSources, " "),
	"script-src 'self' " + strings.Join(cdnSources, " "),
	"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://cdnjs.cloudflare.com",
	"img-src 'self' data:",
	"base-uri 'self'",
	"font-src 'self' https: data:",
	"form-action 'self'",
	"frame-ancestors 'self'",
	"object-src 'none'",
	"script-src-attr 'none'",
	"upgrade-insecure-requests",
}, ";")

var securityHeaders = map[string]string{
	"Content-Security-Policy":           ContentSecurityPolicy,
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Origin-Agent-Cluster":              "?1",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"X-Content-Type-Options":            "nosniff",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
}

// SecurityHeaders sets the browser hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}
