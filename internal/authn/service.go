package authn

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/jhofrandev/donations-manager/internal/store"
)

// Registration and login failures. The login set is deliberately distinct
// per failure mode; each maps to its own user-facing message.
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailTaken       = errors.New("a user with this email already exists")
	ErrUsernameTaken    = errors.New("a user with this username already exists")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	ErrUnknownEmail    = errors.New("no account found with this email")
	ErrInactiveAccount = errors.New("this account is inactive")
	ErrNoPassword      = errors.New("this account has no usable password")
	ErrBadPassword     = errors.New("incorrect password")
)

// UserStore is the slice of the store the auth service needs.
type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, u store.User) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetRole(ctx context.Context, userID string) (string, error)
}

type Service struct {
	Store UserStore
}

// Register creates a user with no role row. An omitted username is derived
// from the email local-part, suffixed 2, 3, ... until unique.
func (s *Service) Register(ctx context.Context, username, email, password string) (store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, ErrEmailRequired
	}
	if len(password) < 8 {
		return store.User{}, ErrPasswordTooShort
	}
	taken, err := s.Store.EmailExists(ctx, email)
	if err != nil {
		return store.User{}, err
	}
	if taken {
		return store.User{}, ErrEmailTaken
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username, err = s.deriveUsername(ctx, email)
		if err != nil {
			return store.User{}, err
		}
	} else {
		taken, err := s.Store.UsernameExists(ctx, username)
		if err != nil {
			return store.User{}, err
		}
		if taken {
			return store.User{}, ErrUsernameTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, err
	}
	u := store.User{
		UserID:       "usr_" + uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		// A racing insert can still trip a unique constraint after the
		// existence checks; the constraint name picks the right error.
		if store.IsUniqueViolation(err) {
			if strings.Contains(store.ConstraintName(err), "username") {
				return store.User{}, ErrUsernameTaken
			}
			return store.User{}, ErrEmailTaken
		}
		return store.User{}, err
	}
	return u, nil
}

func (s *Service) deriveUsername(ctx context.Context, email string) (string, error) {
	base := email[:strings.Index(email, "@")]
	if base == "" {
		base = "user"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := s.Store.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

// Login checks the credential and resolves the caller's role. A user with
// no role row logs in as a beneficiary; the default is never persisted.
func (s *Service) Login(ctx context.Context, email, password string) (store.User, Role, error) {
	u, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, RoleNone, ErrUnknownEmail
	}
	if err != nil {
		return store.User{}, RoleNone, err
	}
	if !u.IsActive {
		return store.User{}, RoleNone, ErrInactiveAccount
	}
	if u.PasswordHash == "" {
		return store.User{}, RoleNone, ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return store.User{}, RoleNone, ErrBadPassword
	}

	role, err := s.ResolveRole(ctx, u.UserID)
	if err != nil {
		return store.User{}, RoleNone, err
	}
	return u, role, nil
}

// ResolveRole looks up the user's current role. A user without a role row is
// a beneficiary; the default is never persisted.
func (s *Service) ResolveRole(ctx context.Context, userID string) (Role, error) {
	raw, err := s.Store.GetRole(ctx, userID)
	if err != nil {
		return RoleNone, err
	}
	role, ok := ParseRole(raw)
	if !ok {
		role = RoleBeneficiary
	}
	return role, nil
}
