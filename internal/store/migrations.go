package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrations returns the ordered schema history. New entries append
// with the next id; existing entries never change.
func Migrations() []Migration {
	return []Migration{
		{
			ID:        0,
			Name:      "create-schema",
			ShouldRun: tableMissing("logins"),
			Run: func(ctx context.Context, db *sql.DB) error {
				_, err := db.ExecContext(ctx, createSchema)
				return err
			},
		},
		{
			ID:        1,
			Name:      "add-initiated-date",
			ShouldRun: columnMissing("initiatives", "initiated_date"),
			Run: func(ctx context.Context, db *sql.DB) error {
				_, err := db.ExecContext(ctx, `ALTER TABLE initiatives ADD COLUMN initiated_date DATE`)
				return err
			},
		},
		{
			ID:        2,
			Name:      "index-session-expiry",
			ShouldRun: tableMissing("sessions_expires_idx"),
			Run: func(ctx context.Context, db *sql.DB) error {
				_, err := db.ExecContext(ctx, `CREATE INDEX sessions_expires_idx ON sessions (expires)`)
				return err
			},
		},
	}
}

// tableMissing also works for indexes; to_regclass resolves any relation.
func tableMissing(relation string) func(context.Context, *sql.DB) (bool, error) {
	return func(ctx context.Context, db *sql.DB) (bool, error) {
		var name *string
		err := db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, relation).Scan(&name)
		if err != nil {
			return false, fmt.Errorf("check relation %s: %w", relation, err)
		}
		return name == nil, nil
	}
}

func columnMissing(table, column string) func(context.Context, *sql.DB) (bool, error) {
	return func(ctx context.Context, db *sql.DB) (bool, error) {
		var exists bool
		err := db.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM information_schema.columns
				WHERE table_name = $1 AND column_name = $2
			)
		`, table, column).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
		}
		return !exists, nil
	}
}

const createSchema = `
CREATE TABLE logins (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX logins_username_lower_idx ON logins (LOWER(username));

CREATE TABLE sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES logins(id) ON DELETE CASCADE,
	expires TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE people (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL,
	name TEXT NOT NULL,
	owner TEXT NOT NULL REFERENCES logins(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (owner, slug)
);

CREATE TABLE organisations (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	website TEXT,
	image TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE initiatives (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	short_name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	website TEXT,
	pdf TEXT NOT NULL,
	image TEXT,
	deadline DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE signatures (
	person_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	initiative_id TEXT NOT NULL REFERENCES initiatives(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (person_id, initiative_id)
);

CREATE TABLE initiative_organisations (
	initiative_id TEXT NOT NULL REFERENCES initiatives(id) ON DELETE CASCADE,
	organisation_id TEXT NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (initiative_id, organisation_id)
);
`
