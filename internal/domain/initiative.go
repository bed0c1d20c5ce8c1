package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/slugs"
	"github.com/melusc/initiative-tracker/internal/store"
	"github.com/melusc/initiative-tracker/internal/util"
)

const dateFormat = "2006-01-02"

// Initiative owns exactly one PDF asset and optionally one image.
// Deleting it removes both files, best-effort, after the row is gone.
type Initiative struct {
	d   *deps
	row store.Initiative

	signatures         []*Person
	signaturesResolved bool

	organisations         []*Organisation
	organisationsResolved bool
}

type InitiativeRepo struct {
	d *deps
}

func (r *InitiativeRepo) Create(ctx context.Context, shortName, fullName string, website *string, pdf *assets.Asset, image *assets.Asset, deadline, initiatedDate *time.Time) (*Initiative, error) {
	shortName = strings.TrimSpace(shortName)
	fullName = strings.TrimSpace(fullName)
	if shortName == "" || fullName == "" {
		return nil, Validationf("shortName and fullName are required")
	}
	if pdf == nil {
		return nil, Validationf("pdf is required")
	}
	slug, err := slugs.Unique(slugs.Slugify(shortName), func(s string) (bool, error) {
		return r.d.store.InitiativeSlugTaken(ctx, s, "")
	})
	if err != nil {
		return nil, err
	}
	row := store.Initiative{
		ID:            util.NewID("in"),
		Slug:          slug,
		ShortName:     shortName,
		FullName:      fullName,
		Website:       website,
		PDF:           pdf.Name(),
		Deadline:      deadline,
		InitiatedDate: initiatedDate,
	}
	if image != nil {
		name := image.Name()
		row.Image = &name
	}
	if err := r.d.store.InsertInitiative(ctx, &row); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, Conflictf("initiative slug %q is already taken", slug)
		}
		return nil, err
	}
	return &Initiative{d: r.d, row: row}, nil
}

func (r *InitiativeRepo) FromID(ctx context.Context, id string) (*Initiative, error) {
	row, err := r.d.store.GetInitiativeByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &Initiative{d: r.d, row: *row}, nil
}

func (r *InitiativeRepo) FromSlug(ctx context.Context, slug string) (*Initiative, error) {
	row, err := r.d.store.GetInitiativeBySlug(ctx, slug)
	if err != nil || row == nil {
		return nil, err
	}
	return &Initiative{d: r.d, row: *row}, nil
}

func (r *InitiativeRepo) All(ctx context.Context) ([]*Initiative, error) {
	rows, err := r.d.store.ListInitiatives(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Initiative, 0, len(rows))
	for _, row := range rows {
		items = append(items, &Initiative{d: r.d, row: row})
	}
	r.d.sortInitiatives(items)
	return items, nil
}

func (i *Initiative) ID() string           { return i.row.ID }
func (i *Initiative) Slug() string         { return i.row.Slug }
func (i *Initiative) ShortName() string    { return i.row.ShortName }
func (i *Initiative) FullName() string     { return i.row.FullName }
func (i *Initiative) PDFName() string      { return i.row.PDF }
func (i *Initiative) ImageName() *string   { return i.row.Image }
func (i *Initiative) UpdatedAt() time.Time { return i.row.UpdatedAt }

func (i *Initiative) UpdateShortName(ctx context.Context, shortName string) error {
	shortName = strings.TrimSpace(shortName)
	if shortName == "" {
		return Validationf("shortName is required")
	}
	if shortName == i.row.ShortName {
		return nil
	}
	slug, err := slugs.Unique(slugs.Slugify(shortName), func(s string) (bool, error) {
		return i.d.store.InitiativeSlugTaken(ctx, s, i.row.ID)
	})
	if err != nil {
		return err
	}
	updatedAt, err := i.d.store.UpdateInitiativeShortName(ctx, i.row.ID, shortName, slug)
	if err != nil {
		return err
	}
	i.row.ShortName, i.row.Slug, i.row.UpdatedAt = shortName, slug, updatedAt
	return nil
}

func (i *Initiative) UpdateFullName(ctx context.Context, fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return Validationf("fullName is required")
	}
	if fullName == i.row.FullName {
		return nil
	}
	updatedAt, err := i.d.store.UpdateInitiativeFullName(ctx, i.row.ID, fullName)
	if err != nil {
		return err
	}
	i.row.FullName, i.row.UpdatedAt = fullName, updatedAt
	return nil
}

func (i *Initiative) UpdateWebsite(ctx context.Context, website *string) error {
	if equalOptional(website, i.row.Website) {
		return nil
	}
	updatedAt, err := i.d.store.UpdateInitiativeWebsite(ctx, i.row.ID, website)
	if err != nil {
		return err
	}
	i.row.Website, i.row.UpdatedAt = website, updatedAt
	return nil
}

func (i *Initiative) UpdateDeadline(ctx context.Context, deadline *time.Time) error {
	if equalOptionalTime(deadline, i.row.Deadline) {
		return nil
	}
	updatedAt, err := i.d.store.UpdateInitiativeDeadline(ctx, i.row.ID, deadline)
	if err != nil {
		return err
	}
	i.row.Deadline, i.row.UpdatedAt = deadline, updatedAt
	return nil
}

func (i *Initiative) UpdateInitiatedDate(ctx context.Context, initiatedDate *time.Time) error {
	if equalOptionalTime(initiatedDate, i.row.InitiatedDate) {
		return nil
	}
	updatedAt, err := i.d.store.UpdateInitiativeInitiatedDate(ctx, i.row.ID, initiatedDate)
	if err != nil {
		return err
	}
	i.row.InitiatedDate, i.row.UpdatedAt = initiatedDate, updatedAt
	return nil
}

// UpdatePDF replaces the initiative's document. The new reference is
// persisted before the old file is removed: a failure in between
// orphans a file but never leaves the row pointing at nothing.
func (i *Initiative) UpdatePDF(ctx context.Context, pdf *assets.Asset) error {
	if pdf == nil {
		return Validationf("pdf is required")
	}
	if pdf.Name() == i.row.PDF {
		return nil
	}
	old := i.row.PDF
	updatedAt, err := i.d.store.UpdateInitiativePDF(ctx, i.row.ID, pdf.Name())
	if err != nil {
		return err
	}
	i.row.PDF, i.row.UpdatedAt = pdf.Name(), updatedAt
	i.d.removeFile(old)
	return nil
}

func (i *Initiative) UpdateImage(ctx context.Context, image *assets.Asset) error {
	var newName *string
	if image != nil {
		n := image.Name()
		newName = &n
	}
	if equalOptional(newName, i.row.Image) {
		return nil
	}
	old := i.row.Image
	updatedAt, err := i.d.store.UpdateInitiativeImage(ctx, i.row.ID, newName)
	if err != nil {
		return err
	}
	i.row.Image, i.row.UpdatedAt = newName, updatedAt
	if old != nil {
		i.d.removeFile(*old)
	}
	return nil
}

// Remove deletes the row, then best-effort removes the owned files.
func (i *Initiative) Remove(ctx context.Context) error {
	if err := i.d.store.DeleteInitiative(ctx, i.row.ID); err != nil {
		return err
	}
	i.d.removeFile(i.row.PDF)
	if i.row.Image != nil {
		i.d.removeFile(*i.row.Image)
	}
	return nil
}

func (i *Initiative) ResolveSignatures(ctx context.Context) error {
	rows, err := i.d.store.ListSignatories(ctx, i.row.ID)
	if err != nil {
		return err
	}
	i.signatures = make([]*Person, 0, len(rows))
	for _, row := range rows {
		i.signatures = append(i.signatures, &Person{d: i.d, row: row})
	}
	i.d.sortPeople(i.signatures)
	i.signaturesResolved = true
	return nil
}

func (i *Initiative) Signatures() ([]*Person, error) {
	if !i.signaturesResolved {
		return nil, Validationf("signatures must be resolved before use; call ResolveSignatures first")
	}
	return i.signatures, nil
}

func (i *Initiative) AddSignature(ctx context.Context, person *Person) error {
	if !i.signaturesResolved {
		return Validationf("signatures must be resolved before use; call ResolveSignatures first")
	}
	err := i.d.store.AddSignature(ctx, person.ID(), i.row.ID)
	if err != nil && !errors.Is(err, store.ErrAlreadyLinked) {
		return err
	}
	for _, existing := range i.signatures {
		if existing.ID() == person.ID() {
			return nil
		}
	}
	i.signatures = append(i.signatures, person)
	i.d.sortPeople(i.signatures)
	return nil
}

func (i *Initiative) RemoveSignature(ctx context.Context, person *Person) error {
	if !i.signaturesResolved {
		return Validationf("signatures must be resolved before use; call ResolveSignatures first")
	}
	if err := i.d.store.RemoveSignature(ctx, person.ID(), i.row.ID); err != nil {
		return err
	}
	kept := i.signatures[:0]
	for _, existing := range i.signatures {
		if existing.ID() != person.ID() {
			kept = append(kept, existing)
		}
	}
	i.signatures = kept
	return nil
}

func (i *Initiative) ResolveOrganisations(ctx context.Context) error {
	rows, err := i.d.store.ListBackers(ctx, i.row.ID)
	if err != nil {
		return err
	}
	i.organisations = make([]*Organisation, 0, len(rows))
	for _, row := range rows {
		i.organisations = append(i.organisations, &Organisation{d: i.d, row: row})
	}
	i.d.sortOrganisations(i.organisations)
	i.organisationsResolved = true
	return nil
}

func (i *Initiative) Organisations() ([]*Organisation, error) {
	if !i.organisationsResolved {
		return nil, Validationf("organisations must be resolved before use; call ResolveOrganisations first")
	}
	return i.organisations, nil
}

func (i *Initiative) AddOrganisation(ctx context.Context, org *Organisation) error {
	if !i.organisationsResolved {
		return Validationf("organisations must be resolved before use; call ResolveOrganisations first")
	}
	err := i.d.store.AddBacking(ctx, i.row.ID, org.ID())
	if err != nil && !errors.Is(err, store.ErrAlreadyLinked) {
		return err
	}
	for _, existing := range i.organisations {
		if existing.ID() == org.ID() {
			return nil
		}
	}
	i.organisations = append(i.organisations, org)
	i.d.sortOrganisations(i.organisations)
	return nil
}

func (i *Initiative) RemoveOrganisation(ctx context.Context, org *Organisation) error {
	if !i.organisationsResolved {
		return Validationf("organisations must be resolved before use; call ResolveOrganisations first")
	}
	if err := i.d.store.RemoveBacking(ctx, i.row.ID, org.ID()); err != nil {
		return err
	}
	kept := i.organisations[:0]
	for _, existing := range i.organisations {
		if existing.ID() != org.ID() {
			kept = append(kept, existing)
		}
	}
	i.organisations = kept
	return nil
}

func (i *Initiative) MarshalJSON() ([]byte, error) {
	pdfURL := "/assets/" + i.row.PDF
	payload := map[string]any{
		"id":            i.row.ID,
		"slug":          i.row.Slug,
		"shortName":     i.row.ShortName,
		"fullName":      i.row.FullName,
		"website":       i.row.Website,
		"pdf":           pdfURL,
		"image":         assetURL(i.row.Image),
		"deadline":      formatDate(i.row.Deadline),
		"initiatedDate": formatDate(i.row.InitiatedDate),
		"createdAt":     i.row.CreatedAt,
		"updatedAt":     i.row.UpdatedAt,
	}
	if i.signaturesResolved {
		payload["signatures"] = i.signatures
	}
	if i.organisationsResolved {
		payload["organisations"] = i.organisations
	}
	return json.Marshal(payload)
}

func equalOptionalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateFormat)
	return &s
}
