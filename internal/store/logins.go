package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *PostgresStore) InsertLogin(ctx context.Context, login *Login) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO logins (id, username, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, login.ID, login.Username, login.PasswordHash, login.IsAdmin).
		Scan(&login.CreatedAt, &login.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert login: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLoginByUsername(ctx context.Context, username string) (*Login, error) {
	var login Login
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, updated_at
		FROM logins
		WHERE LOWER(username) = LOWER($1)
	`, username).Scan(&login.ID, &login.Username, &login.PasswordHash, &login.IsAdmin, &login.CreatedAt, &login.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login by username: %w", err)
	}
	return &login, nil
}

func (s *PostgresStore) GetLoginByID(ctx context.Context, id string) (*Login, error) {
	var login Login
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, updated_at
		FROM logins
		WHERE id = $1
	`, id).Scan(&login.ID, &login.Username, &login.PasswordHash, &login.IsAdmin, &login.CreatedAt, &login.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login: %w", err)
	}
	return &login, nil
}

// DeleteLogin removes the row; sessions and people owned by the login
// go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteLogin(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM logins WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete login: %w", err)
	}
	return nil
}
