package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/melusc/initiative-tracker/internal/slugs"
	"github.com/melusc/initiative-tracker/internal/store"
	"github.com/melusc/initiative-tracker/internal/util"
)

// Person is a signatory. Its slug is unique within its owning login's
// namespace only; two logins can each have a "max-muster".
type Person struct {
	d   *deps
	row store.Person

	signatures         []*Initiative
	signaturesResolved bool
}

type PersonRepo struct {
	d *deps
}

func (r *PersonRepo) Create(ctx context.Context, owner *Login, name string) (*Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validationf("name is required")
	}
	slug, err := slugs.Unique(slugs.Slugify(name), func(s string) (bool, error) {
		return r.d.store.PersonSlugTaken(ctx, owner.ID(), s, "")
	})
	if err != nil {
		return nil, err
	}
	row := store.Person{
		ID:    util.NewID("pe"),
		Slug:  slug,
		Name:  name,
		Owner: owner.ID(),
	}
	if err := r.d.store.InsertPerson(ctx, &row); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, Conflictf("person slug %q is already taken", slug)
		}
		return nil, err
	}
	return &Person{d: r.d, row: row}, nil
}

func (r *PersonRepo) FromID(ctx context.Context, id string) (*Person, error) {
	row, err := r.d.store.GetPersonByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &Person{d: r.d, row: *row}, nil
}

func (r *PersonRepo) FromSlug(ctx context.Context, owner *Login, slug string) (*Person, error) {
	row, err := r.d.store.GetPersonBySlug(ctx, owner.ID(), slug)
	if err != nil || row == nil {
		return nil, err
	}
	return &Person{d: r.d, row: *row}, nil
}

func (r *PersonRepo) All(ctx context.Context) ([]*Person, error) {
	rows, err := r.d.store.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	return r.hydrate(rows), nil
}

func (r *PersonRepo) AllByOwner(ctx context.Context, owner *Login) ([]*Person, error) {
	rows, err := r.d.store.ListPeopleByOwner(ctx, owner.ID())
	if err != nil {
		return nil, err
	}
	return r.hydrate(rows), nil
}

func (r *PersonRepo) hydrate(rows []store.Person) []*Person {
	items := make([]*Person, 0, len(rows))
	for _, row := range rows {
		items = append(items, &Person{d: r.d, row: row})
	}
	r.d.sortPeople(items)
	return items
}

func (p *Person) ID() string           { return p.row.ID }
func (p *Person) Slug() string         { return p.row.Slug }
func (p *Person) Name() string         { return p.row.Name }
func (p *Person) OwnerID() string      { return p.row.Owner }
func (p *Person) UpdatedAt() time.Time { return p.row.UpdatedAt }

// UpdateName renames the person and regenerates the slug, excluding the
// person's own row from the collision probe so renaming to the current
// name's slug root never self-collides. An unchanged name writes
// nothing.
func (p *Person) UpdateName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Validationf("name is required")
	}
	if name == p.row.Name {
		return nil
	}
	slug, err := slugs.Unique(slugs.Slugify(name), func(s string) (bool, error) {
		return p.d.store.PersonSlugTaken(ctx, p.row.Owner, s, p.row.ID)
	})
	if err != nil {
		return err
	}
	updatedAt, err := p.d.store.UpdatePersonName(ctx, p.row.ID, name, slug)
	if err != nil {
		return err
	}
	p.row.Name, p.row.Slug, p.row.UpdatedAt = name, slug, updatedAt
	return nil
}

// Remove deletes the row; signature join rows cascade in the store.
func (p *Person) Remove(ctx context.Context) error {
	return p.d.store.DeletePerson(ctx, p.row.ID)
}

// ResolveSignatures loads the initiatives this person signed. It must
// run before Signatures, AddSignature or RemoveSignature; the guard
// prevents mutating an empty stale view as if it were the truth.
func (p *Person) ResolveSignatures(ctx context.Context) error {
	rows, err := p.d.store.ListSignedInitiatives(ctx, p.row.ID)
	if err != nil {
		return err
	}
	p.signatures = make([]*Initiative, 0, len(rows))
	for _, row := range rows {
		p.signatures = append(p.signatures, &Initiative{d: p.d, row: row})
	}
	p.d.sortInitiatives(p.signatures)
	p.signaturesResolved = true
	return nil
}

func (p *Person) Signatures() ([]*Initiative, error) {
	if !p.signaturesResolved {
		return nil, Validationf("signatures must be resolved before use; call ResolveSignatures first")
	}
	return p.signatures, nil
}

// AddSignature links the person to an initiative. Signing twice is
// idempotent: the join table's unique constraint is the source of
// truth and a duplicate insert is swallowed.
func (p *Person) AddSignature(ctx context.Context, initiative *Initiative) error {
	if !p.signaturesResolved {
		return Validationf("signatures must be resolved before use; call ResolveSignatures first")
	}
	err := p.d.store.AddSignature(ctx, p.row.ID, initiative.ID())
	if err != nil && !errors.Is(err, store.ErrAlreadyLinked) {
		return err
	}
	for _, existing := range p.signatures {
		if existing.ID() == initiative.ID() {
			return nil
		}
	}
	p.signatures = append(p.signatures, initiative)
	p.d.sortInitiatives(p.signatures)
	return nil
}

// RemoveSignature is a no-op when the link does not exist.
func (p *Person) RemoveSignature(ctx context.Context, initiative *Initiative) error {
	if !p.signaturesResolved {
		return Validationf("signatures must be resolved before use; call ResolveSignatures first")
	}
	if err := p.d.store.RemoveSignature(ctx, p.row.ID, initiative.ID()); err != nil {
		return err
	}
	kept := p.signatures[:0]
	for _, existing := range p.signatures {
		if existing.ID() != initiative.ID() {
			kept = append(kept, existing)
		}
	}
	p.signatures = kept
	return nil
}

func (p *Person) MarshalJSON() ([]byte, error) {
	payload := map[string]any{
		"id":        p.row.ID,
		"slug":      p.row.Slug,
		"name":      p.row.Name,
		"owner":     p.row.Owner,
		"createdAt": p.row.CreatedAt,
		"updatedAt": p.row.UpdatedAt,
	}
	if p.signaturesResolved {
		payload["signatures"] = p.signatures
	}
	return json.Marshal(payload)
}
