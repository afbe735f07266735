package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type endpointSet map[string]map[string]struct{}

func (s endpointSet) add(method, path string) {
	if s[method] == nil {
		s[method] = make(map[string]struct{})
	}
	s[method][path] = struct{}{}
}

func (s endpointSet) has(method, path string) bool {
	_, ok := s[method][path]
	return ok
}

func bearerToken(r *http.Request) (string, bool) {
	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) != 2 || !strings.EqualFold(p[0], jwt.TokenTypeBearer) {
		return "", false
	}
	return p[1], true
}

func middlewareAuthentication(verifier jwt.JWT, public endpointSet) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.has(r.Method, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
