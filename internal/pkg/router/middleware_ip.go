package router

import (
	"net"
	"net/http"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

// middlewareIP rewrites RemoteAddr to the caller's address. Proxy headers are
// only honored when app.server.trust_proxy_headers is set, otherwise a client
// could pick the address that ends up in logs.
func middlewareIP(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trust := cfg != nil && cfg.GetBool("app.server.trust_proxy_headers")
			if ip := clientIP(r, trust); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trustHeaders bool) string {
	if trustHeaders {
		for _, h := range []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"} {
			v, _, _ := strings.Cut(r.Header.Get(h), ",")
			if ip := strings.TrimSpace(v); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return ""
}

// ClientIP is the caller address resolved by the router.
func (r *Request) ClientIP() string {
	if ip := net.ParseIP(r.RemoteAddr); ip != nil {
		return ip.String()
	}
	return clientIP(r.Request, false)
}
