package store

import (
	"context"
	"fmt"
)

// AddSignature links a person to an initiative. A duplicate link is
// reported as ErrAlreadyLinked; any other failure (FK violation, disk
// full, ...) propagates untouched so it is never mistaken for a
// harmless duplicate.
func (s *PostgresStore) AddSignature(ctx context.Context, personID, initiativeID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signatures (person_id, initiative_id)
		VALUES ($1, $2)
	`, personID, initiativeID)
	if IsUniqueViolation(err) {
		return ErrAlreadyLinked
	}
	if err != nil {
		return fmt.Errorf("add signature: %w", err)
	}
	return nil
}

// RemoveSignature is a no-op when the link does not exist.
func (s *PostgresStore) RemoveSignature(ctx context.Context, personID, initiativeID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM signatures WHERE person_id = $1 AND initiative_id = $2
	`, personID, initiativeID)
	if err != nil {
		return fmt.Errorf("remove signature: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSignedInitiatives(ctx context.Context, personID string) ([]Initiative, error) {
	return s.listInitiatives(ctx, `
		SELECT `+initiativeColumnsQualified+`
		FROM initiatives
		JOIN signatures ON signatures.initiative_id = initiatives.id
		WHERE signatures.person_id = $1
	`, personID)
}

func (s *PostgresStore) ListSignatories(ctx context.Context, initiativeID string) ([]Person, error) {
	return s.listPeople(ctx, `
		SELECT people.id, people.slug, people.name, people.owner, people.created_at, people.updated_at
		FROM people
		JOIN signatures ON signatures.person_id = people.id
		WHERE signatures.initiative_id = $1
	`, initiativeID)
}

func (s *PostgresStore) AddBacking(ctx context.Context, initiativeID, organisationID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO initiative_organisations (initiative_id, organisation_id)
		VALUES ($1, $2)
	`, initiativeID, organisationID)
	if IsUniqueViolation(err) {
		return ErrAlreadyLinked
	}
	if err != nil {
		return fmt.Errorf("add backing: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveBacking(ctx context.Context, initiativeID, organisationID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM initiative_organisations WHERE initiative_id = $1 AND organisation_id = $2
	`, initiativeID, organisationID)
	if err != nil {
		return fmt.Errorf("remove backing: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBackers(ctx context.Context, initiativeID string) ([]Organisation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT organisations.id, organisations.slug, organisations.name, organisations.website,
			organisations.image, organisations.created_at, organisations.updated_at
		FROM organisations
		JOIN initiative_organisations ON initiative_organisations.organisation_id = organisations.id
		WHERE initiative_organisations.initiative_id = $1
	`, initiativeID)
	if err != nil {
		return nil, fmt.Errorf("list backers: %w", err)
	}
	defer rows.Close()

	items := make([]Organisation, 0)
	for rows.Next() {
		var item Organisation
		if err := rows.Scan(&item.ID, &item.Slug, &item.Name, &item.Website, &item.Image, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan backer: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListBackedInitiatives(ctx context.Context, organisationID string) ([]Initiative, error) {
	return s.listInitiatives(ctx, `
		SELECT `+initiativeColumnsQualified+`
		FROM initiatives
		JOIN initiative_organisations ON initiative_organisations.initiative_id = initiatives.id
		WHERE initiative_organisations.organisation_id = $1
	`, organisationID)
}
