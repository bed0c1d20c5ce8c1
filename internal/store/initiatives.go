package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const initiativeColumns = `id, slug, short_name, full_name, website, pdf, image, deadline, initiated_date, created_at, updated_at`

// Qualified variant for join queries where created_at would otherwise
// be ambiguous with the join table's own created_at.
const initiativeColumnsQualified = `initiatives.id, initiatives.slug, initiatives.short_name,
	initiatives.full_name, initiatives.website, initiatives.pdf, initiatives.image,
	initiatives.deadline, initiatives.initiated_date, initiatives.created_at, initiatives.updated_at`

func (s *PostgresStore) InsertInitiative(ctx context.Context, initiative *Initiative) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO initiatives (id, slug, short_name, full_name, website, pdf, image, deadline, initiated_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, initiative.ID, initiative.Slug, initiative.ShortName, initiative.FullName,
		initiative.Website, initiative.PDF, initiative.Image, initiative.Deadline, initiative.InitiatedDate).
		Scan(&initiative.CreatedAt, &initiative.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert initiative: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInitiativeByID(ctx context.Context, id string) (*Initiative, error) {
	return scanInitiativeRow(s.db.QueryRowContext(ctx,
		`SELECT `+initiativeColumns+` FROM initiatives WHERE id = $1`, id))
}

func (s *PostgresStore) GetInitiativeBySlug(ctx context.Context, slug string) (*Initiative, error) {
	return scanInitiativeRow(s.db.QueryRowContext(ctx,
		`SELECT `+initiativeColumns+` FROM initiatives WHERE slug = $1`, slug))
}

func scanInitiativeRow(row *sql.Row) (*Initiative, error) {
	var item Initiative
	err := row.Scan(&item.ID, &item.Slug, &item.ShortName, &item.FullName, &item.Website,
		&item.PDF, &item.Image, &item.Deadline, &item.InitiatedDate, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get initiative: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListInitiatives(ctx context.Context) ([]Initiative, error) {
	return s.listInitiatives(ctx, `SELECT `+initiativeColumns+` FROM initiatives`)
}

func (s *PostgresStore) listInitiatives(ctx context.Context, query string, args ...any) ([]Initiative, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list initiatives: %w", err)
	}
	defer rows.Close()

	items := make([]Initiative, 0)
	for rows.Next() {
		var item Initiative
		if err := rows.Scan(&item.ID, &item.Slug, &item.ShortName, &item.FullName, &item.Website,
			&item.PDF, &item.Image, &item.Deadline, &item.InitiatedDate, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan initiative: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate initiatives: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateInitiativeShortName(ctx context.Context, id, shortName, slug string) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET short_name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, shortName, slug)
}

func (s *PostgresStore) UpdateInitiativeFullName(ctx context.Context, id, fullName string) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET full_name = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, fullName)
}

func (s *PostgresStore) UpdateInitiativeWebsite(ctx context.Context, id string, website *string) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET website = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, website)
}

func (s *PostgresStore) UpdateInitiativeDeadline(ctx context.Context, id string, deadline *time.Time) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET deadline = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, deadline)
}

func (s *PostgresStore) UpdateInitiativeInitiatedDate(ctx context.Context, id string, initiatedDate *time.Time) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET initiated_date = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, initiatedDate)
}

func (s *PostgresStore) UpdateInitiativePDF(ctx context.Context, id, pdf string) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET pdf = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, pdf)
}

func (s *PostgresStore) UpdateInitiativeImage(ctx context.Context, id string, image *string) (time.Time, error) {
	return s.updateInitiative(ctx, `
		UPDATE initiatives SET image = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, image)
}

func (s *PostgresStore) updateInitiative(ctx context.Context, query string, args ...any) (time.Time, error) {
	var updatedAt time.Time
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("update initiative: %w", err)
	}
	return updatedAt, nil
}

func (s *PostgresStore) DeleteInitiative(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM initiatives WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete initiative: %w", err)
	}
	return nil
}

func (s *PostgresStore) InitiativeSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM initiatives WHERE slug = $1 AND id <> $2)
	`, slug, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check initiative slug: %w", err)
	}
	return taken, nil
}
