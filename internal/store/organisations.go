package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *PostgresStore) InsertOrganisation(ctx context.Context, org *Organisation) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organisations (id, slug, name, website, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, org.ID, org.Slug, org.Name, org.Website, org.Image).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert organisation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrganisationByID(ctx context.Context, id string) (*Organisation, error) {
	return s.scanOrganisation(s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, website, image, created_at, updated_at
		FROM organisations
		WHERE id = $1
	`, id))
}

func (s *PostgresStore) GetOrganisationBySlug(ctx context.Context, slug string) (*Organisation, error) {
	return s.scanOrganisation(s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, website, image, created_at, updated_at
		FROM organisations
		WHERE slug = $1
	`, slug))
}

func (s *PostgresStore) scanOrganisation(row *sql.Row) (*Organisation, error) {
	var org Organisation
	err := row.Scan(&org.ID, &org.Slug, &org.Name, &org.Website, &org.Image, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organisation: %w", err)
	}
	return &org, nil
}

func (s *PostgresStore) ListOrganisations(ctx context.Context) ([]Organisation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name, website, image, created_at, updated_at
		FROM organisations
	`)
	if err != nil {
		return nil, fmt.Errorf("list organisations: %w", err)
	}
	defer rows.Close()

	items := make([]Organisation, 0)
	for rows.Next() {
		var item Organisation
		if err := rows.Scan(&item.ID, &item.Slug, &item.Name, &item.Website, &item.Image, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organisation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organisations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateOrganisationName(ctx context.Context, id, name, slug string) (time.Time, error) {
	return s.updateOrganisation(ctx, `
		UPDATE organisations SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, name, slug)
}

func (s *PostgresStore) UpdateOrganisationWebsite(ctx context.Context, id string, website *string) (time.Time, error) {
	return s.updateOrganisation(ctx, `
		UPDATE organisations SET website = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, website)
}

func (s *PostgresStore) UpdateOrganisationImage(ctx context.Context, id string, image *string) (time.Time, error) {
	return s.updateOrganisation(ctx, `
		UPDATE organisations SET image = $2, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, id, image)
}

func (s *PostgresStore) updateOrganisation(ctx context.Context, query string, args ...any) (time.Time, error) {
	var updatedAt time.Time
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("update organisation: %w", err)
	}
	return updatedAt, nil
}

func (s *PostgresStore) DeleteOrganisation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM organisations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete organisation: %w", err)
	}
	return nil
}

func (s *PostgresStore) OrganisationSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM organisations WHERE slug = $1 AND id <> $2)
	`, slug, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check organisation slug: %w", err)
	}
	return taken, nil
}
