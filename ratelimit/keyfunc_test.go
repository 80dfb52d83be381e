package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "first forwarded address",
			remoteAddr: "10.0.0.9:5555",
			headers:    map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8", "X-Real-IP": "9.9.9.9"},
			want:       "1.2.3.4",
		},
		{
			name:       "real ip when no forwarded header",
			remoteAddr: "10.0.0.9:5555",
			headers:    map[string]string{"X-Real-IP": "9.9.9.9"},
			want:       "9.9.9.9",
		},
		{
			name:       "remote host fallback",
			remoteAddr: "10.0.0.9:5555",
			want:       "10.0.0.9",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "10.0.0.9",
			want:       "10.0.0.9",
		},
		{
			name: "sentinel",
			want: UnknownKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example/api/invoices", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := DefaultKeyFunc(r); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
