// Package assets stores uploaded and fetched files under random opaque
// names. The stored name (random token + sniffed extension) is the only
// identifier rows persist; there is no asset table.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrInvalidType = errors.New("unsupported file type")
	ErrTooLarge    = errors.New("file exceeds size limit")
	ErrInvalidURL  = errors.New("invalid url")
	ErrFetch       = errors.New("fetch failed")
)

type Store struct {
	root         string
	maxBytes     int64
	fetchTimeout time.Duration
	// allowPrivateHosts disables the private-address fetch guard.
	// Only tests set this.
	allowPrivateHosts bool
}

func NewStore(root string, maxBytes int64, fetchTimeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create asset root: %w", err)
	}
	return &Store{root: root, maxBytes: maxBytes, fetchTimeout: fetchTimeout}, nil
}

// CreateFromBuffer validates data against kind by sniffing the real
// content type, applies the kind's post-processing and writes the result
// under a fresh random name.
func (s *Store) CreateFromBuffer(ctx context.Context, kind Kind, data []byte) (*Asset, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%d bytes over limit %d: %w", len(data), s.maxBytes, ErrTooLarge)
	}
	detected := mimetype.Detect(data)
	ext, ok := kind.extensionFor(detected)
	if !ok {
		return nil, fmt.Errorf("%s is not an accepted %s type: %w", detected.String(), kind.Label, ErrInvalidType)
	}

	if kind.postProcess != nil {
		data = kind.postProcess(ctx, detected, data)
	}

	name := uuid.NewString() + "." + ext
	if err := os.WriteFile(filepath.Join(s.root, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("write asset %s: %w", name, err)
	}
	return &Asset{store: s, name: name}, nil
}

// FromName sanitizes name to its basename and returns the asset if the
// file exists, nil otherwise. The sanitization is the path-traversal
// defense for names arriving from URLs and database rows.
func (s *Store) FromName(name string) (*Asset, error) {
	clean := filepath.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return nil, nil
	}
	if _, err := os.Stat(filepath.Join(s.root, clean)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat asset %s: %w", clean, err)
	}
	return &Asset{store: s, name: clean}, nil
}

// Asset is a stored file. Instances come only from the Store factories,
// so a non-nil Asset always pointed at a real file when produced.
type Asset struct {
	store *Store
	name  string
}

func (a *Asset) Name() string { return a.name }

func (a *Asset) Path() string { return filepath.Join(a.store.root, a.name) }

func (a *Asset) Read() ([]byte, error) {
	data, err := os.ReadFile(a.Path())
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", a.name, err)
	}
	return data, nil
}

// Remove deletes the file. Callers treat this as best-effort; the owning
// row is the source of truth and an orphaned file is recoverable later.
func (a *Asset) Remove() error {
	if err := os.Remove(a.Path()); err != nil {
		return fmt.Errorf("remove asset %s: %w", a.name, err)
	}
	return nil
}
