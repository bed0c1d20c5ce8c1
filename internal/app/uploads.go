package app

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/melusc/initiative-tracker/internal/assets"
)

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// multipartAsset stores an uploaded file field, or returns nil when the
// field is absent. Size and content-type checks happen in the asset
// store, which trusts the bytes over any client-declared type.
func (s *Server) multipartAsset(r *http.Request, field string, kind assets.Kind) (*assets.Asset, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return s.files.CreateFromBuffer(r.Context(), kind, data)
}

// urlAsset fetches a remote file, or returns nil for an empty URL.
func (s *Server) urlAsset(r *http.Request, rawURL string, kind assets.Kind) (*assets.Asset, error) {
	if rawURL == "" {
		return nil, nil
	}
	return s.files.CreateFromURL(r.Context(), kind, rawURL)
}

// discard removes assets that were stored before a later step failed.
func discard(stored ...*assets.Asset) {
	for _, asset := range stored {
		if asset != nil {
			_ = asset.Remove()
		}
	}
}
