package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the caller's address for rate limiting and audit
// logging. Proxy headers are consulted first, so this is only trustworthy
// behind an ingress that strips client-supplied values.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
