package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO users(user_id,username,email,password_hash,is_active)
VALUES($1,$2,lower($3),$4,$5)
`, u.UserID, u.Username, u.Email, u.PasswordHash, u.IsActive)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
SELECT user_id,username,email,password_hash,is_active,created_at
FROM users
WHERE email=lower($1)
`, email).Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email=lower($1))`, email).Scan(&exists)
	return exists, err
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username).Scan(&exists)
	return exists, err
}

// GetRole returns the user's role, or "" when no role row exists.
func (s *Store) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.DB.QueryRow(ctx, `SELECT role FROM roles WHERE user_id=$1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return role, err
}

func (s *Store) SetRole(ctx context.Context, userID, role string) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO roles(user_id,role)
VALUES($1,$2)
ON CONFLICT (user_id) DO UPDATE SET role=EXCLUDED.role
`, userID, role)
	return err
}

// AdminEmails lists the email address of every user holding the admin role.
func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
SELECT u.email
FROM roles r
JOIN users u ON u.user_id=r.user_id
WHERE r.role='admin'
ORDER BY u.email
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}
