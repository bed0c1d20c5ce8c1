package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Migration is one ordered, idempotently-authored schema upgrade.
// ShouldRun exists so a migration is safe against a store that is
// already in the target shape (fresh installs); it is not a retry
// mechanism. Once a migration's id is behind the marker it never runs
// again, whatever ShouldRun returned.
type Migration struct {
	ID        int
	Name      string
	ShouldRun func(ctx context.Context, db *sql.DB) (bool, error)
	Run       func(ctx context.Context, db *sql.DB) error
}

// markerFile persists the last-applied migration id as decimal text.
// Its absence means no migration has ever been applied.
const markerFile = "migration-state"

var migrationName = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ApplyMigrations runs every registered migration with an id greater
// than the persisted marker, in ascending id order, advancing the
// marker after each one regardless of its ShouldRun outcome.
func ApplyMigrations(ctx context.Context, db *sql.DB, stateDir string, migrations []Migration) error {
	ordered, err := validateMigrations(migrations)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lastApplied, err := readMarker(stateDir)
	if err != nil {
		return err
	}

	for _, m := range ordered {
		if m.ID <= lastApplied {
			continue
		}
		run, err := m.ShouldRun(ctx, db)
		if err != nil {
			return fmt.Errorf("migration %d-%s: shouldRun: %w", m.ID, m.Name, err)
		}
		if run {
			if err := m.Run(ctx, db); err != nil {
				return fmt.Errorf("migration %d-%s: %w", m.ID, m.Name, err)
			}
		}
		if err := writeMarker(stateDir, m.ID); err != nil {
			return fmt.Errorf("migration %d-%s: %w", m.ID, m.Name, err)
		}
		lastApplied = m.ID
	}
	return nil
}

func validateMigrations(migrations []Migration) ([]Migration, error) {
	seen := make(map[int]string, len(migrations))
	ordered := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if m.ID < 0 {
			return nil, fmt.Errorf("migration %q: negative id %d", m.Name, m.ID)
		}
		if !migrationName.MatchString(m.Name) {
			return nil, fmt.Errorf("migration %d: malformed name %q", m.ID, m.Name)
		}
		if m.ShouldRun == nil || m.Run == nil {
			return nil, fmt.Errorf("migration %d-%s: missing shouldRun or run", m.ID, m.Name)
		}
		if other, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("duplicate migration id %d (%q and %q)", m.ID, other, m.Name)
		}
		seen[m.ID] = m.Name
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return ordered, nil
}

func readMarker(stateDir string) (int, error) {
	raw, err := os.ReadFile(filepath.Join(stateDir, markerFile))
	if errors.Is(err, fs.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration marker: %w", err)
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse migration marker %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return id, nil
}

func writeMarker(stateDir string, id int) error {
	path := filepath.Join(stateDir, markerFile)
	if err := os.WriteFile(path, []byte(strconv.Itoa(id)), 0o644); err != nil {
		return fmt.Errorf("write migration marker: %w", err)
	}
	return nil
}
