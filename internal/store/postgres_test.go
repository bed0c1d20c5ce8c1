package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewPostgresStore(db), mock
}

func TestGetLoginByUsernameIsCaseInsensitive(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`LOWER(username) = LOWER($1)`)).
		WithArgs("ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at", "updated_at"}).
			AddRow("lg_1", "admin", "$2a$10$hash", true, now, now))

	login, err := s.GetLoginByUsername(context.Background(), "ADMIN")
	if err != nil {
		t.Fatalf("GetLoginByUsername: %v", err)
	}
	if login == nil || login.Username != "admin" || !login.IsAdmin {
		t.Errorf("login = %+v", login)
	}
}

func TestGetLoginByIDNotFoundIsNil(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM logins`).
		WithArgs("lg_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at", "updated_at"}))

	login, err := s.GetLoginByID(context.Background(), "lg_missing")
	if err != nil {
		t.Fatalf("GetLoginByID: %v", err)
	}
	if login != nil {
		t.Errorf("login = %+v, want nil", login)
	}
}

func TestAddSignatureMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO signatures`).
		WithArgs("pe_1", "in_1").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "signatures_pkey"})

	err := s.AddSignature(context.Background(), "pe_1", "in_1")
	if !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("err = %v, want ErrAlreadyLinked", err)
	}
}

func TestAddSignaturePropagatesOtherFailures(t *testing.T) {
	// A foreign-key violation must not be mistaken for a duplicate.
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO signatures`).
		WithArgs("pe_1", "in_gone").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "signatures_initiative_id_fkey"})

	err := s.AddSignature(context.Background(), "pe_1", "in_gone")
	if err == nil || errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("err = %v, want a propagated fk violation", err)
	}
}

func TestDeleteExpiredSessionsReturnsCount(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE expires`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.DeleteExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 4 {
		t.Errorf("n = %d, want 4", n)
	}
}
