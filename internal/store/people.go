package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *PostgresStore) InsertPerson(ctx context.Context, person *Person) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO people (id, slug, name, owner)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, person.ID, person.Slug, person.Name, person.Owner).
		Scan(&person.CreatedAt, &person.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPersonByID(ctx context.Context, id string) (*Person, error) {
	return s.scanPerson(s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, owner, created_at, updated_at
		FROM people
		WHERE id = $1
	`, id))
}

// GetPersonBySlug resolves a slug within one owner's namespace; person
// slugs are only unique per owner.
func (s *PostgresStore) GetPersonBySlug(ctx context.Context, owner, slug string) (*Person, error) {
	return s.scanPerson(s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, owner, created_at, updated_at
		FROM people
		WHERE owner = $1 AND slug = $2
	`, owner, slug))
}

func (s *PostgresStore) scanPerson(row *sql.Row) (*Person, error) {
	var person Person
	err := row.Scan(&person.ID, &person.Slug, &person.Name, &person.Owner, &person.CreatedAt, &person.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &person, nil
}

func (s *PostgresStore) ListPeople(ctx context.Context) ([]Person, error) {
	return s.listPeople(ctx, `
		SELECT id, slug, name, owner, created_at, updated_at
		FROM people
	`)
}

func (s *PostgresStore) ListPeopleByOwner(ctx context.Context, owner string) ([]Person, error) {
	return s.listPeople(ctx, `
		SELECT id, slug, name, owner, created_at, updated_at
		FROM people
		WHERE owner = $1
	`, owner)
}

func (s *PostgresStore) listPeople(ctx context.Context, query string, args ...any) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	items := make([]Person, 0)
	for rows.Next() {
		var item Person
		if err := rows.Scan(&item.ID, &item.Slug, &item.Name, &item.Owner, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdatePersonName(ctx context.Context, id, name, slug string) (time.Time, error) {
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		UPDATE people
		SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, id, name, slug).Scan(&updatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("update person name: %w", err)
	}
	return updatedAt, nil
}

func (s *PostgresStore) DeletePerson(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

// PersonSlugTaken probes slug usage within an owner's namespace,
// excluding excludeID so renames never collide with the renamed row.
func (s *PostgresStore) PersonSlugTaken(ctx context.Context, owner, slug, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM people WHERE owner = $1 AND slug = $2 AND id <> $3)
	`, owner, slug, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check person slug: %w", err)
	}
	return taken, nil
}
