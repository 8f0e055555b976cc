package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	trusted := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "not-a-cidr", "2001:db8::/32"}}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		want       string
	}{
		{"direct client ignores spoofed headers", "203.0.113.10:54321", "1.2.3.4", "192.168.1.1", trusted, "203.0.113.10"},
		{"trusted proxy uses first forwarded ip", "10.0.0.5:443", "203.0.113.42, 10.0.0.5", "", trusted, "203.0.113.42"},
		{"trusted proxy skips garbage entries", "10.0.0.5:443", "garbage, 198.51.100.7", "", trusted, "198.51.100.7"},
		{"trusted proxy falls back to real ip header", "10.0.0.5:443", "", "198.51.100.9", trusted, "198.51.100.9"},
		{"ipv6 trusted proxy", "[2001:db8::1]:443", "203.0.113.5", "", trusted, "203.0.113.5"},
		{"nil config never trusts headers", "203.0.113.10:1", "1.2.3.4", "", nil, "203.0.113.10"},
		{"remote addr without port", "203.0.113.11", "", "", nil, "203.0.113.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}

func TestExtractClient_IncludesUserAgent(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("User-Agent", "Mozilla/5.0")

	info := pkghttp.ExtractClient(req, nil)

	assert.Equal(t, "203.0.113.10", info.IP)
	assert.Equal(t, "Mozilla/5.0", info.UserAgent)
}
