package domain

import (
	"context"
	"time"

	"github.com/melusc/initiative-tracker/internal/store"
	"github.com/melusc/initiative-tracker/internal/util"
)

// Session is a cookie-backed authentication window with a fixed TTL.
type Session struct {
	d   *deps
	row store.Session
}

type SessionRepo struct {
	d *deps
}

func (r *SessionRepo) Create(ctx context.Context, login *Login) (*Session, error) {
	row := store.Session{
		ID:      util.NewToken(32),
		UserID:  login.ID(),
		Expires: time.Now().Add(r.d.sessionTTL),
	}
	if err := r.d.store.InsertSession(ctx, &row); err != nil {
		return nil, err
	}
	return &Session{d: r.d, row: row}, nil
}

func (r *SessionRepo) FromID(ctx context.Context, id string) (*Session, error) {
	row, err := r.d.store.GetSession(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &Session{d: r.d, row: *row}, nil
}

// RemoveExpired sweeps sessions past expiry. Run once at startup.
func (r *SessionRepo) RemoveExpired(ctx context.Context) (int64, error) {
	return r.d.store.DeleteExpiredSessions(ctx)
}

func (s *Session) ID() string         { return s.row.ID }
func (s *Session) UserID() string     { return s.row.UserID }
func (s *Session) Expires() time.Time { return s.row.Expires }

func (s *Session) Expired() bool {
	return !time.Now().Before(s.row.Expires)
}

// ShouldRenew reports whether more than half the TTL window has
// elapsed on a session that is still valid.
func (s *Session) ShouldRenew() bool {
	if s.Expired() {
		return false
	}
	return time.Until(s.row.Expires) < s.d.sessionTTL/2
}

// Renew issues a fresh session for the same login, or nil if this one
// has already expired. The old session is left alone; invalidating it
// is the caller's job.
func (s *Session) Renew(ctx context.Context) (*Session, error) {
	if s.Expired() {
		return nil, nil
	}
	row := store.Session{
		ID:      util.NewToken(32),
		UserID:  s.row.UserID,
		Expires: time.Now().Add(s.d.sessionTTL),
	}
	if err := s.d.store.InsertSession(ctx, &row); err != nil {
		return nil, err
	}
	return &Session{d: s.d, row: row}, nil
}

func (s *Session) Remove(ctx context.Context) error {
	return s.d.store.DeleteSession(ctx, s.row.ID)
}

// Login loads the owning account, or nil if it has been deleted.
func (s *Session) Login(ctx context.Context) (*Login, error) {
	row, err := s.d.store.GetLoginByID(ctx, s.row.UserID)
	if err != nil || row == nil {
		return nil, err
	}
	return &Login{d: s.d, row: *row}, nil
}
