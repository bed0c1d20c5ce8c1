package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/melusc/initiative-tracker/internal/store"
	"github.com/melusc/initiative-tracker/internal/util"
)

// Login is an account. Deleting a login cascades to its sessions and
// its people at the store level.
type Login struct {
	d   *deps
	row store.Login
}

type LoginRepo struct {
	d *deps
}

// Create registers a new login. Usernames are unique
// case-insensitively; the password is stored only as a bcrypt hash and
// never logged.
func (r *LoginRepo) Create(ctx context.Context, username, password string, isAdmin bool) (*Login, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, Validationf("username is required")
	}
	if len(password) < 8 {
		return nil, Validationf("password must be at least 8 characters")
	}

	existing, err := r.d.store.GetLoginByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Conflictf("username %q is already taken", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := store.Login{
		ID:           util.NewID("lg"),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	if err := r.d.store.InsertLogin(ctx, &row); err != nil {
		// Lost a race against a concurrent create of the same name.
		if store.IsUniqueViolation(err) {
			return nil, Conflictf("username %q is already taken", username)
		}
		return nil, err
	}
	return &Login{d: r.d, row: row}, nil
}

// FromCredentials returns the login matching username (compared
// case-insensitively) and password, or nil on any mismatch. Timing
// between the unknown-user and wrong-password paths is not equalized.
func (r *LoginRepo) FromCredentials(ctx context.Context, username, password string) (*Login, error) {
	row, err := r.d.store.GetLoginByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return &Login{d: r.d, row: *row}, nil
}

func (r *LoginRepo) FromID(ctx context.Context, id string) (*Login, error) {
	row, err := r.d.store.GetLoginByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &Login{d: r.d, row: *row}, nil
}

func (l *Login) ID() string           { return l.row.ID }
func (l *Login) Username() string     { return l.row.Username }
func (l *Login) IsAdmin() bool        { return l.row.IsAdmin }
func (l *Login) CreatedAt() time.Time { return l.row.CreatedAt }

// Remove deletes the login. Owned sessions and people go with it.
func (l *Login) Remove(ctx context.Context) error {
	return l.d.store.DeleteLogin(ctx, l.row.ID)
}

func (l *Login) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":        l.row.ID,
		"username":  l.row.Username,
		"isAdmin":   l.row.IsAdmin,
		"createdAt": l.row.CreatedAt,
		"updatedAt": l.row.UpdatedAt,
	})
}
