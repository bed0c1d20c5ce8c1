package app

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/melusc/initiative-tracker/internal/domain"
)

type ctxKey int

const loginKey ctxKey = iota

// requireSession authenticates the request from the session cookie.
// Sessions past the halfway point of their lifetime are transparently
// replaced; the old row is removed once the new cookie is out.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
			return
		}

		session, err := s.repos.Sessions.FromID(r.Context(), cookie.Value)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if session == nil || session.Expired() {
			if session != nil {
				if err := session.Remove(r.Context()); err != nil {
					log.Warn().Err(err).Msg("expired session cleanup failed")
				}
			}
			s.clearSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session expired")
			return
		}

		if session.ShouldRenew() {
			fresh, err := session.Renew(r.Context())
			if err != nil {
				log.Warn().Err(err).Msg("session renewal failed")
			} else if fresh != nil {
				s.setSessionCookie(w, fresh.ID(), fresh.Expires())
				if err := session.Remove(r.Context()); err != nil {
					log.Warn().Err(err).Msg("stale session cleanup failed")
				}
				session = fresh
			}
		}

		login, err := session.Login(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if login == nil {
			s.clearSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Account no longer exists")
			return
		}

		ctx := context.WithValue(r.Context(), loginKey, login)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentLogin(r).IsAdmin() {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentLogin is only valid below requireSession.
func currentLogin(r *http.Request) *domain.Login {
	return r.Context().Value(loginKey).(*domain.Login)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
