package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

func TestMiddlewareIP(t *testing.T) {
	tests := []struct {
		name    string
		trust   string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:   "remote addr without proxy headers",
			trust:  "false",
			remote: "10.0.0.7:5123",
			want:   "10.0.0.7",
		},
		{
			name:    "untrusted forwarded header is ignored",
			trust:   "false",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4"},
			remote:  "10.0.0.7:5123",
			want:    "10.0.0.7",
		},
		{
			name:    "trusted forwarded header takes first hop",
			trust:   "true",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"},
			remote:  "10.0.0.7:5123",
			want:    "1.2.3.4",
		},
		{
			name:    "trusted real ip wins over forwarded",
			trust:   "true",
			headers: map[string]string{"X-Real-IP": "5.6.7.8", "X-Forwarded-For": "1.2.3.4"},
			remote:  "10.0.0.7:5123",
			want:    "5.6.7.8",
		},
		{
			name:    "trusted garbage falls back to remote",
			trust:   "true",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			remote:  "10.0.0.7:5123",
			want:    "10.0.0.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  server:\n    trust_proxy_headers: "+tt.trust+"\n"))
			if err != nil {
				t.Fatalf("config: %v", err)
			}
			var got string
			h := middlewareIP(cfg)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = (&Request{Request: r}).ClientIP()
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			// Act
			h.ServeHTTP(httptest.NewRecorder(), req)

			// Assert
			if got != tt.want {
				t.Fatalf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
