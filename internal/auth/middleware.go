package auth

import (
	"net/http"
	"strings"
)

// Skipper marks requests that bypass authentication entirely, such as health
// checks and the metrics scrape endpoint.
type Skipper func(r *http.Request) bool

// Middleware guards the read API: it validates the bearer token, enforces a
// required scope when one is set, and stores the claims on the request
// context for the handlers.
type Middleware struct {
	cfg           Config
	requiredScope string
	skipper       Skipper
}

// NewMiddleware constructs a middleware. An empty requiredScope skips the
// scope gate; a nil skipper authenticates every request.
func NewMiddleware(cfg Config, requiredScope string, skipper Skipper) Middleware {
	return Middleware{cfg: cfg, requiredScope: requiredScope, skipper: skipper}
}

// Wrap wraps an http.Handler with authentication and the scope gate.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper != nil && m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := Parse(token, m.cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		if m.requiredScope != "" && !claims.HasScope(m.requiredScope) {
			http.Error(w, "scope "+m.requiredScope+" required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(header[len("bearer "):]), nil
}
