package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/melusc/initiative-tracker/internal/domain"
)

// People are private to the login that created them; every handler
// here resolves slugs within the caller's own scope.

func (s *Server) handlePeopleList(w http.ResponseWriter, r *http.Request) {
	people, err := s.repos.People.AllByOwner(r.Context(), currentLogin(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": people})
}

func (s *Server) handlePersonCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	person, err := s.repos.People.Create(r.Context(), currentLogin(r), body.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, person)
}

func (s *Server) lookupPerson(w http.ResponseWriter, r *http.Request) *domain.Person {
	person, err := s.repos.People.FromSlug(r.Context(), currentLogin(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No such person")
		return nil
	}
	return person
}

func (s *Server) handlePersonGet(w http.ResponseWriter, r *http.Request) {
	person := s.lookupPerson(w, r)
	if person == nil {
		return
	}
	if err := person.ResolveSignatures(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (s *Server) handlePersonUpdate(w http.ResponseWriter, r *http.Request) {
	person := s.lookupPerson(w, r)
	if person == nil {
		return
	}
	var body struct {
		Name *string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if body.Name != nil {
		if err := person.UpdateName(r.Context(), *body.Name); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, person)
}

func (s *Server) handlePersonDelete(w http.ResponseWriter, r *http.Request) {
	person := s.lookupPerson(w, r)
	if person == nil {
		return
	}
	if err := person.Remove(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
