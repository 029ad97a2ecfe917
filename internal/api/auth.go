package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/jhofrandev/donations-manager/internal/ratelimit"
	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/pkg/httpx"
)

// AuthService is the registration/login surface of authn.Service.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (store.User, error)
	Login(ctx context.Context, email, password string) (store.User, authn.Role, error)
	ResolveRole(ctx context.Context, userID string) (authn.Role, error)
}

// TokenMinter issues token pairs. Satisfied by authn.TokenIssuer.
type TokenMinter interface {
	Issue(id authn.Identity, now time.Time) (access, refresh string, err error)
	VerifyRefresh(token string) (authn.Identity, error)
}

type AuthHandler struct {
	Service AuthService
	Tokens  TokenMinter
	Limiter *ratelimit.FixedWindow

	// TrustProxy lets the rate limiter key on X-Forwarded-For. Leave unset
	// unless a trusted reverse proxy sets the header.
	TrustProxy bool
}

func (h *AuthHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.Limiter.Allow(clientIP(r, h.TrustProxy), time.Now().UTC()) {
		return true
	}
	httpx.WriteError(w, 429, "RATE_LIMITED", "rate limit exceeded", nil)
	return false
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if _, err := h.Service.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, authn.ErrEmailTaken), errors.Is(err, authn.ErrUsernameTaken):
			httpx.WriteError(w, 400, "DUPLICATE_EMAIL", err.Error(), nil)
		case errors.Is(err, authn.ErrEmailRequired), errors.Is(err, authn.ErrPasswordTooShort):
			httpx.WriteError(w, 400, "VALIDATION", err.Error(), nil)
		default:
			httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		}
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"message": "User registered successfully."})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	u, role, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authn.ErrUnknownEmail),
			errors.Is(err, authn.ErrInactiveAccount),
			errors.Is(err, authn.ErrNoPassword),
			errors.Is(err, authn.ErrBadPassword):
			httpx.WriteError(w, 401, "UNAUTHORIZED", err.Error(), nil)
		default:
			httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		}
		return
	}
	id := authn.Identity{UserID: u.UserID, Username: u.Username, Email: u.Email, Role: role}
	access, refresh, err := h.Tokens.Issue(id, time.Now().UTC())
	if err != nil {
		httpx.WriteError(w, 500, "TOKEN_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"access":   access,
		"refresh":  refresh,
		"user_id":  u.UserID,
		"email":    u.Email,
		"username": u.Username,
		"role":     role,
	})
}

// HandleRefresh trades a refresh token for a fresh pair. The role is looked
// up again so a grant or revocation since login lands in the new tokens.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	id, err := h.Tokens.VerifyRefresh(req.Refresh)
	if err != nil {
		httpx.WriteError(w, 401, "UNAUTHORIZED", "invalid or expired refresh token", nil)
		return
	}
	role, err := h.Service.ResolveRole(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		return
	}
	id.Role = role
	access, refresh, err := h.Tokens.Issue(id, time.Now().UTC())
	if err != nil {
		httpx.WriteError(w, 500, "TOKEN_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"access": access, "refresh": refresh})
}
