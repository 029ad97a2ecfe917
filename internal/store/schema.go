package store

import "context"

// EnsureSchema creates the tables on startup. Production deployments run
// real migrations; this keeps a fresh database usable out of the box.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			user_id TEXT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
			role TEXT NOT NULL CHECK (role IN ('admin','beneficiary'))
		)`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			campaign_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS beneficiaries (
			beneficiary_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES users(user_id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			campaign_id TEXT NOT NULL REFERENCES campaigns(campaign_id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			beneficiary_id TEXT NOT NULL REFERENCES beneficiaries(beneficiary_id) ON DELETE CASCADE,
			campaign_id TEXT NOT NULL REFERENCES campaigns(campaign_id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			due_date DATE
		)`,
		`CREATE TABLE IF NOT EXISTS task_events (
			event_id BIGSERIAL PRIMARY KEY,
			task_id TEXT NOT NULL,
			actor_user_id TEXT,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS idempotency_records (
			scope TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			idempotency_key TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			response_status INT NOT NULL,
			response_body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (scope, actor_id, idempotency_key, endpoint)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
