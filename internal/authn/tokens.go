package authn

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller as carried in the session token.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     Role
}

type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue returns an access/refresh token pair for the identity.
func (ti TokenIssuer) Issue(id Identity, now time.Time) (access, refresh string, err error) {
	access, err = ti.sign(id, "access", now, ti.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = ti.sign(id, "refresh", now, ti.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (ti TokenIssuer) sign(id Identity, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    id.UserID,
		Username:  id.Username,
		Email:     id.Email,
		Role:      string(id.Role),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.Secret)
}

// VerifyAccess validates an access token and returns the embedded identity.
// Refresh tokens are rejected here; they are only good for re-issuance.
func (ti TokenIssuer) VerifyAccess(token string) (Identity, error) {
	return ti.verify(token, "access")
}

// VerifyRefresh validates a refresh token for the re-issuance flow.
func (ti TokenIssuer) VerifyRefresh(token string) (Identity, error) {
	return ti.verify(token, "refresh")
}

func (ti TokenIssuer) verify(token, wantType string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return Identity{}, ErrInvalidToken
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
	}, nil
}
