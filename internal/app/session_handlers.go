package app

import (
	"net/http"
)

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	login, err := s.repos.Logins.FromCredentials(r.Context(), body.Username, body.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if login == nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		return
	}

	session, err := s.repos.Sessions.Create(r.Context(), login)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.setSessionCookie(w, session.ID(), session.Expires())
	writeJSON(w, http.StatusCreated, login)
}

func (s *Server) handleSessionCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentLogin(r))
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cfg.CookieName); err == nil && cookie.Value != "" {
		session, err := s.repos.Sessions.FromID(r.Context(), cookie.Value)
		if err == nil && session != nil {
			_ = session.Remove(r.Context())
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
