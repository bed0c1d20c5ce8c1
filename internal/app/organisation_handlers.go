package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/domain"
)

func (s *Server) handleOrganisationsList(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.repos.Organisations.All(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organisations": orgs})
}

func (s *Server) handleOrganisationCreate(w http.ResponseWriter, r *http.Request) {
	var name, website, imageURL string
	var image *assets.Asset
	var err error

	if isMultipart(r) {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body")
			return
		}
		name = r.FormValue("name")
		website = r.FormValue("website")
		image, err = s.multipartAsset(r, "image", assets.Image())
	} else {
		var body struct {
			Name     string `json:"name"`
			Website  string `json:"website"`
			ImageURL string `json:"imageUrl"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		name, website, imageURL = body.Name, body.Website, body.ImageURL
		image, err = s.urlAsset(r, imageURL, assets.Image())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	org, err := s.repos.Organisations.Create(r.Context(), name, optionalString(website), image)
	if err != nil {
		discard(image)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (s *Server) lookupOrganisation(w http.ResponseWriter, r *http.Request, param string) *domain.Organisation {
	org, err := s.repos.Organisations.FromSlug(r.Context(), chi.URLParam(r, param))
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if org == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No such organisation")
		return nil
	}
	return org
}

func (s *Server) handleOrganisationGet(w http.ResponseWriter, r *http.Request) {
	org := s.lookupOrganisation(w, r, "slug")
	if org == nil {
		return
	}
	if err := org.ResolveInitiatives(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleOrganisationUpdate(w http.ResponseWriter, r *http.Request) {
	org := s.lookupOrganisation(w, r, "slug")
	if org == nil {
		return
	}
	var body struct {
		Name     *string `json:"name"`
		Website  *string `json:"website"`
		ImageURL *string `json:"imageUrl"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if body.Name != nil {
		if err := org.UpdateName(r.Context(), *body.Name); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.Website != nil {
		if err := org.UpdateWebsite(r.Context(), optionalString(*body.Website)); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.ImageURL != nil {
		image, err := s.urlAsset(r, *body.ImageURL, assets.Image())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := org.UpdateImage(r.Context(), image); err != nil {
			discard(image)
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleOrganisationDelete(w http.ResponseWriter, r *http.Request) {
	org := s.lookupOrganisation(w, r, "slug")
	if org == nil {
		return
	}
	if err := org.Remove(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
