package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/jhofrandev/donations-manager/pkg/httpx"
)

type ctxKey int

const identityKey ctxKey = iota

// TokenVerifier validates an access token. Satisfied by authn.TokenIssuer.
type TokenVerifier interface {
	VerifyAccess(token string) (authn.Identity, error)
}

func IdentityFrom(r *http.Request) (authn.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(authn.Identity)
	return id, ok
}

// RequireAuth resolves the bearer token into an identity or rejects with 401.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := parseBearer(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(w, 401, "UNAUTHORIZED", "bearer token required", nil)
				return
			}
			id, err := verifier.VerifyAccess(token)
			if err != nil {
				httpx.WriteError(w, 401, "UNAUTHORIZED", "invalid or expired token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

// RequirePermission evaluates the capability table for the resource, with the
// operation class derived from the HTTP verb.
func RequirePermission(resource authn.Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r)
			if !ok {
				httpx.WriteError(w, 401, "UNAUTHORIZED", "bearer token required", nil)
				return
			}
			op := authn.OpWrite
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				op = authn.OpRead
			}
			if !authn.Allowed(id.Role, resource, op) {
				httpx.WriteError(w, 403, "FORBIDDEN", "role lacks permission for this resource", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseBearer(authorization string) (string, bool) {
	const prefix = "Bearer "
	authorization = strings.TrimSpace(authorization)
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if tok == "" {
		return "", false
	}
	return tok, true
}

// clientIP resolves the caller's address. X-Forwarded-For is honored only
// when trustProxy is set; a directly exposed service must not let callers
// pick their own rate-limit bucket.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			parts := strings.Split(xff, ",")
			if v := strings.TrimSpace(parts[0]); v != "" {
				return v
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}
	return strings.TrimSpace(r.RemoteAddr)
}
