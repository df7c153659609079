package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Skipper lets requests bypass authentication.
type Skipper func(r *http.Request) bool

// SkipPaths returns a Skipper matching the given exact paths.
func SkipPaths(paths ...string) Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	}
}

// Middleware validates bearer tokens.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap rejects requests without valid claims with 401 and otherwise stores the claims on
// the request context.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, ErrMissingToken) {
				code = "missing_token"
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="babylog"`)
			writeProblem(w, http.StatusUnauthorized, code, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil, ErrInvalidToken
	}
	return Parse(header[len(prefix):], m.Config)
}

// RequireScope responds 403 unless the request's claims carry scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "missing_token", ErrMissingToken.Error())
				return
			}
			if !claims.HasScope(scope) {
				writeProblem(w, http.StatusForbidden, "insufficient_scope", "missing scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
