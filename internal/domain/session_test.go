package domain

import (
	"context"
	"testing"
	"time"

	"github.com/melusc/initiative-tracker/internal/store"
)

// agedSession builds a session whose expiry lies the given duration in
// the future (or past, when negative), bypassing the repository so
// tests can control the clock.
func agedSession(repos *Repositories, login *Login, untilExpiry time.Duration) *Session {
	return &Session{d: repos.Sessions.d, row: store.Session{
		ID:      "stale",
		UserID:  login.ID(),
		Expires: time.Now().Add(untilExpiry),
	}}
}

func TestSessionLifecycle(t *testing.T) {
	repos, _, _ := newTestRepos(t)
	ctx := context.Background()

	login, err := repos.Logins.Create(ctx, "alice", "correct horse battery", false)
	if err != nil {
		t.Fatalf("Create login: %v", err)
	}
	session, err := repos.Sessions.Create(ctx, login)
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}

	if session.Expired() {
		t.Error("fresh session reports expired")
	}
	if session.ShouldRenew() {
		t.Error("fresh session wants renewal")
	}
	if got := time.Until(session.Expires()); got < 6*24*time.Hour {
		t.Errorf("expiry only %v away, want close to a week", got)
	}

	loaded, err := repos.Sessions.FromID(ctx, session.ID())
	if err != nil {
		t.Fatalf("FromID: %v", err)
	}
	if loaded == nil || loaded.UserID() != login.ID() {
		t.Fatalf("got %v, want session for %s", loaded, login.ID())
	}

	owner, err := loaded.Login(ctx)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if owner == nil || owner.ID() != login.ID() {
		t.Fatalf("got %v, want login %s", owner, login.ID())
	}

	if err := session.Remove(ctx); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, err := repos.Sessions.FromID(ctx, session.ID()); err != nil || got != nil {
		t.Errorf("session survived removal: %v, %v", got, err)
	}
}

func TestSessionShouldRenew(t *testing.T) {
	repos, _, _ := newTestRepos(t)
	ctx := context.Background()

	login, err := repos.Logins.Create(ctx, "alice", "correct horse battery", false)
	if err != nil {
		t.Fatalf("Create login: %v", err)
	}

	// Past the halfway point of the week-long TTL.
	aged := agedSession(repos, login, 2*24*time.Hour)
	if aged.Expired() {
		t.Error("aged session is not yet expired")
	}
	if !aged.ShouldRenew() {
		t.Error("aged session should want renewal")
	}

	expired := agedSession(repos, login, -time.Minute)
	if !expired.Expired() {
		t.Error("past-expiry session reports alive")
	}
	if expired.ShouldRenew() {
		t.Error("expired session must not be renewed")
	}
}

func TestSessionRenew(t *testing.T) {
	repos, st, _ := newTestRepos(t)
	ctx := context.Background()

	login, err := repos.Logins.Create(ctx, "alice", "correct horse battery", false)
	if err != nil {
		t.Fatalf("Create login: %v", err)
	}
	old, err := repos.Sessions.Create(ctx, login)
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}

	fresh, err := old.Renew(ctx)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if fresh == nil || fresh.ID() == old.ID() {
		t.Fatalf("renewal must issue a new session, got %v", fresh)
	}
	if fresh.UserID() != login.ID() {
		t.Errorf("renewed session belongs to %q, want %q", fresh.UserID(), login.ID())
	}
	// Renew does not invalidate the old session itself.
	if _, ok := st.sessions[old.ID()]; !ok {
		t.Error("old session deleted by renewal")
	}

	expired := agedSession(repos, login, -time.Minute)
	got, err := expired.Renew(ctx)
	if err != nil {
		t.Fatalf("Renew expired: %v", err)
	}
	if got != nil {
		t.Error("expired session must not renew")
	}
}

func TestSessionRemoveExpired(t *testing.T) {
	repos, st, _ := newTestRepos(t)
	ctx := context.Background()

	login, err := repos.Logins.Create(ctx, "alice", "correct horse battery", false)
	if err != nil {
		t.Fatalf("Create login: %v", err)
	}
	alive, err := repos.Sessions.Create(ctx, login)
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	st.sessions["dead-1"] = store.Session{ID: "dead-1", UserID: login.ID(), Expires: time.Now().Add(-time.Hour)}
	st.sessions["dead-2"] = store.Session{ID: "dead-2", UserID: login.ID(), Expires: time.Now().Add(-time.Minute)}

	n, err := repos.Sessions.RemoveExpired(ctx)
	if err != nil {
		t.Fatalf("RemoveExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("swept %d sessions, want 2", n)
	}
	if _, ok := st.sessions[alive.ID()]; !ok {
		t.Error("live session swept")
	}
}
