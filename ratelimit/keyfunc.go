package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownKey identifies callers with no usable address.
const UnknownKey = "unknown"

// KeyFunc derives the rate-limit identity of a request.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc prefers the first X-Forwarded-For address, then X-Real-IP,
// then the host of RemoteAddr, and finally UnknownKey.
func DefaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return UnknownKey
}
