package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/config"
	"github.com/melusc/initiative-tracker/internal/domain"
	"github.com/melusc/initiative-tracker/internal/obs"
)

// Pinger reports database connectivity for the readiness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	repos *domain.Repositories
	files *assets.Store
	db    Pinger
	cfg   config.Config
}

func NewServer(repos *domain.Repositories, files *assets.Store, db Pinger, cfg config.Config) *Server {
	return &Server{repos: repos, files: files, db: db, cfg: cfg}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(requestLogger)
	r.Use(obs.Instrument)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", obs.Handler())
	r.Get("/assets/{name}", s.handleAsset)

	r.Post("/api/session", s.handleSessionCreate)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/api/session", s.handleSessionCurrent)
		r.Delete("/api/session", s.handleSessionDelete)

		r.Route("/api/people", func(r chi.Router) {
			r.Get("/", s.handlePeopleList)
			r.Post("/", s.handlePersonCreate)
			r.Get("/{slug}", s.handlePersonGet)
			r.Patch("/{slug}", s.handlePersonUpdate)
			r.Delete("/{slug}", s.handlePersonDelete)
		})

		r.Route("/api/organisations", func(r chi.Router) {
			r.Get("/", s.handleOrganisationsList)
			r.Get("/{slug}", s.handleOrganisationGet)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleOrganisationCreate)
				r.Patch("/{slug}", s.handleOrganisationUpdate)
				r.Delete("/{slug}", s.handleOrganisationDelete)
			})
		})

		r.Route("/api/initiatives", func(r chi.Router) {
			r.Get("/", s.handleInitiativesList)
			r.Get("/{slug}", s.handleInitiativeGet)

			// Everyone links their own people; the rows live under the
			// caller's login.
			r.Put("/{slug}/signatures/{personSlug}", s.handleSignatureAdd)
			r.Delete("/{slug}/signatures/{personSlug}", s.handleSignatureRemove)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleInitiativeCreate)
				r.Patch("/{slug}", s.handleInitiativeUpdate)
				r.Delete("/{slug}", s.handleInitiativeDelete)
				r.Put("/{slug}/organisations/{orgSlug}", s.handleBackingAdd)
				r.Delete("/{slug}/organisations/{orgSlug}", s.handleBackingRemove)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":     false,
			"checks": map[string]any{"database": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"checks": map[string]any{"database": "ok"},
	})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.files.FromName(chi.URLParam(r, "name"))
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No such asset")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, asset.Path())
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// writeDomainError is the common tail of handlers: translate and send.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, code, message)
}

func decodeBody(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

var errBadDate = errors.New("dates must be formatted YYYY-MM-DD")

// parseDate accepts the wire form of an optional date: absent pointer
// means "leave alone" upstream, an empty string clears the value.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errBadDate
	}
	return &t, nil
}

// optionalString maps the empty string to nil so handlers can offer
// "send empty to clear" semantics for optional text fields.
func optionalString(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}
