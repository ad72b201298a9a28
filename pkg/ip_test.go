package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadUserIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{name: "remote addr", remoteAddr: "83.12.53.65:2145", expected: "83.12.53.65"},
		{name: "real ip", remoteAddr: "172.20.0.1:60102", headers: map[string]string{"X-Real-Ip": "111.12.56.65"}, expected: "111.12.56.65"},
		{name: "forwarded for", remoteAddr: "172.20.0.1:60102", headers: map[string]string{"X-Forwarded-For": "10.0.0.7, 172.20.0.1"}, expected: "10.0.0.7"},
		{name: "ipv6", remoteAddr: "[::1]:8080", expected: "::1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, ReadUserIP(req))
		})
	}
}
