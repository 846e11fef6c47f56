package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/venlock/authkit"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by [Authenticate]. The
// second return is false on requests that never passed through the guard.
func IdentityFromContext(ctx context.Context) (authkit.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(authkit.Identity)
	return identity, ok
}

// Authenticate returns middleware that verifies the Authorization bearer
// token on every request and stores the resulting identity in the request
// context. The client IP is recorded alongside for audit trails. Failures are
// written as JSON envelopes and never reach the wrapped handler.
func Authenticate(manager *authkit.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Access token is required")
				return
			}

			ctx := authkit.WithClientIP(r.Context(), clientIP(r))
			identity, err := manager.Authenticate(ctx, raw)
			if err != nil {
				switch {
				case errors.Is(err, authkit.ErrTokenExpired):
					writeError(w, http.StatusUnauthorized, "Access token has expired")
				default:
					writeError(w, http.StatusUnauthorized, "Invalid access token")
				}
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin identities. It must
// run inside [Authenticate]; a request with no identity is rejected as
// unauthenticated rather than forbidden.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Access token is required")
				return
			}
			if !identity.Admin {
				writeError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return strings.TrimSpace(forwarded)
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: message,
	})
}
