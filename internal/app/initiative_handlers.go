package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/domain"
)

func (s *Server) handleInitiativesList(w http.ResponseWriter, r *http.Request) {
	initiatives, err := s.repos.Initiatives.All(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"initiatives": initiatives})
}

type initiativeInput struct {
	shortName     string
	fullName      string
	website       string
	deadline      *time.Time
	initiatedDate *time.Time
	pdf           *assets.Asset
	image         *assets.Asset
}

func (s *Server) decodeInitiativeInput(w http.ResponseWriter, r *http.Request) (initiativeInput, bool) {
	var in initiativeInput
	var rawDeadline, rawInitiated string
	var err error

	if isMultipart(r) {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body")
			return in, false
		}
		in.shortName = r.FormValue("shortName")
		in.fullName = r.FormValue("fullName")
		in.website = r.FormValue("website")
		rawDeadline = r.FormValue("deadline")
		rawInitiated = r.FormValue("initiatedDate")

		if in.pdf, err = s.multipartAsset(r, "pdf", assets.PDF()); err != nil {
			writeDomainError(w, err)
			return in, false
		}
		if in.image, err = s.multipartAsset(r, "image", assets.Image()); err != nil {
			discard(in.pdf)
			writeDomainError(w, err)
			return in, false
		}
	} else {
		var body struct {
			ShortName     string `json:"shortName"`
			FullName      string `json:"fullName"`
			Website       string `json:"website"`
			Deadline      string `json:"deadline"`
			InitiatedDate string `json:"initiatedDate"`
			PDFURL        string `json:"pdfUrl"`
			ImageURL      string `json:"imageUrl"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return in, false
		}
		in.shortName = body.ShortName
		in.fullName = body.FullName
		in.website = body.Website
		rawDeadline = body.Deadline
		rawInitiated = body.InitiatedDate

		if in.pdf, err = s.urlAsset(r, body.PDFURL, assets.PDF()); err != nil {
			writeDomainError(w, err)
			return in, false
		}
		if in.image, err = s.urlAsset(r, body.ImageURL, assets.Image()); err != nil {
			discard(in.pdf)
			writeDomainError(w, err)
			return in, false
		}
	}

	if in.deadline, err = parseDate(rawDeadline); err != nil {
		discard(in.pdf, in.image)
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return in, false
	}
	if in.initiatedDate, err = parseDate(rawInitiated); err != nil {
		discard(in.pdf, in.image)
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return in, false
	}
	return in, true
}

func (s *Server) handleInitiativeCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInitiativeInput(w, r)
	if !ok {
		return
	}
	initiative, err := s.repos.Initiatives.Create(
		r.Context(),
		in.shortName, in.fullName,
		optionalString(in.website),
		in.pdf, in.image,
		in.deadline, in.initiatedDate,
	)
	if err != nil {
		discard(in.pdf, in.image)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, initiative)
}

func (s *Server) lookupInitiative(w http.ResponseWriter, r *http.Request) *domain.Initiative {
	initiative, err := s.repos.Initiatives.FromSlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if initiative == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No such initiative")
		return nil
	}
	return initiative
}

func (s *Server) handleInitiativeGet(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	if err := initiative.ResolveSignatures(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := initiative.ResolveOrganisations(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiative)
}

func (s *Server) handleInitiativeUpdate(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	var body struct {
		ShortName     *string `json:"shortName"`
		FullName      *string `json:"fullName"`
		Website       *string `json:"website"`
		Deadline      *string `json:"deadline"`
		InitiatedDate *string `json:"initiatedDate"`
		PDFURL        *string `json:"pdfUrl"`
		ImageURL      *string `json:"imageUrl"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if body.ShortName != nil {
		if err := initiative.UpdateShortName(r.Context(), *body.ShortName); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.FullName != nil {
		if err := initiative.UpdateFullName(r.Context(), *body.FullName); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.Website != nil {
		if err := initiative.UpdateWebsite(r.Context(), optionalString(*body.Website)); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.Deadline != nil {
		deadline, err := parseDate(*body.Deadline)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		if err := initiative.UpdateDeadline(r.Context(), deadline); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.InitiatedDate != nil {
		initiated, err := parseDate(*body.InitiatedDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		if err := initiative.UpdateInitiatedDate(r.Context(), initiated); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.PDFURL != nil {
		pdf, err := s.urlAsset(r, *body.PDFURL, assets.PDF())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := initiative.UpdatePDF(r.Context(), pdf); err != nil {
			discard(pdf)
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
		if err := initiative.UpdateImage(r.Context(), image); err != nil {
			discard(image)
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, initiative)
}

func (s *Server) handleInitiativeDelete(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	if err := initiative.Remove(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Signature routes link the caller's own people to an initiative.

func (s *Server) handleSignatureAdd(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	person, err := s.repos.People.FromSlug(r.Context(), currentLogin(r), chi.URLParam(r, "personSlug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No such person")
		return
	}
	if err := initiative.ResolveSignatures(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := initiative.AddSignature(r.Context(), person); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSignatureRemove(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	person, err := s.repos.People.FromSlug(r.Context(), currentLogin(r), chi.URLParam(r, "personSlug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No such person")
		return
	}
	if err := initiative.ResolveSignatures(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := initiative.RemoveSignature(r.Context(), person); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBackingAdd(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	org := s.lookupOrganisation(w, r, "orgSlug")
	if org == nil {
		return
	}
	if err := initiative.ResolveOrganisations(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := initiative.AddOrganisation(r.Context(), org); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBackingRemove(w http.ResponseWriter, r *http.Request) {
	initiative := s.lookupInitiative(w, r)
	if initiative == nil {
		return
	}
	org := s.lookupOrganisation(w, r, "orgSlug")
	if org == nil {
		return
	}
	if err := initiative.ResolveOrganisations(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := initiative.RemoveOrganisation(r.Context(), org); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
