package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are trusted
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// ClientInfo is what a request reveals about the caller's device
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ExtractClient returns the caller's IP and user agent.
func ExtractClient(r *http.Request, config *IPConfig) ClientInfo {
	return ClientInfo{
		IP:        ExtractClientIP(r, config),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// ExtractClientIP returns the client address. Forwarding headers are honored only when
// the direct peer is a trusted proxy, otherwise they could be spoofed.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)
	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}
