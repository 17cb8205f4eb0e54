package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		trustXFF bool
		remote   string
		xff      string
		want     string
	}{
		{name: "remote addr host", remote: "10.0.0.9:5555", want: "10.0.0.9"},
		{name: "mapped ipv6 remote", remote: "[::ffff:10.0.0.9]:5555", want: "10.0.0.9"},
		{name: "ipv6 remote", remote: "[2001:DB8::1]:443", want: "2001:db8::1"},
		{name: "xff ignored when untrusted", remote: "10.0.0.9:5555", xff: "1.2.3.4", want: "10.0.0.9"},
		{name: "first xff when trusted", trustXFF: true, remote: "10.0.0.9:5555", xff: "1.2.3.4, 5.6.7.8", want: "1.2.3.4"},
		{name: "garbage xff falls back", trustXFF: true, remote: "10.0.0.9:5555", xff: "unknown, 5.6.7.8", want: "10.0.0.9"},
		{name: "remote without port", remote: "10.0.0.9", want: "10.0.0.9"},
		{name: "unparseable remote kept raw", remote: "pipe", want: "pipe"},
		{name: "empty remote", remote: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(tt.trustXFF)(r))
		})
	}
}
