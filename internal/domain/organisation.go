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

// Organisation is a supporting body. Slug uniqueness is global.
type Organisation struct {
	d   *deps
	row store.Organisation

	initiatives         []*Initiative
	initiativesResolved bool
}

type OrganisationRepo struct {
	d *deps
}

func (r *OrganisationRepo) Create(ctx context.Context, name string, website *string, image *assets.Asset) (*Organisation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validationf("name is required")
	}
	slug, err := slugs.Unique(slugs.Slugify(name), func(s string) (bool, error) {
		return r.d.store.OrganisationSlugTaken(ctx, s, "")
	})
	if err != nil {
		return nil, err
	}
	row := store.Organisation{
		ID:      util.NewID("or"),
		Slug:    slug,
		Name:    name,
		Website: website,
	}
	if image != nil {
		name := image.Name()
		row.Image = &name
	}
	if err := r.d.store.InsertOrganisation(ctx, &row); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, Conflictf("organisation slug %q is already taken", slug)
		}
		return nil, err
	}
	return &Organisation{d: r.d, row: row}, nil
}

func (r *OrganisationRepo) FromID(ctx context.Context, id string) (*Organisation, error) {
	row, err := r.d.store.GetOrganisationByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &Organisation{d: r.d, row: *row}, nil
}

func (r *OrganisationRepo) FromSlug(ctx context.Context, slug string) (*Organisation, error) {
	row, err := r.d.store.GetOrganisationBySlug(ctx, slug)
	if err != nil || row == nil {
		return nil, err
	}
	return &Organisation{d: r.d, row: *row}, nil
}

func (r *OrganisationRepo) All(ctx context.Context) ([]*Organisation, error) {
	rows, err := r.d.store.ListOrganisations(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Organisation, 0, len(rows))
	for _, row := range rows {
		items = append(items, &Organisation{d: r.d, row: row})
	}
	r.d.sortOrganisations(items)
	return items, nil
}

func (o *Organisation) ID() string           { return o.row.ID }
func (o *Organisation) Slug() string         { return o.row.Slug }
func (o *Organisation) Name() string         { return o.row.Name }
func (o *Organisation) Website() *string     { return o.row.Website }
func (o *Organisation) ImageName() *string   { return o.row.Image }
func (o *Organisation) UpdatedAt() time.Time { return o.row.UpdatedAt }

func (o *Organisation) UpdateName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Validationf("name is required")
	}
	if name == o.row.Name {
		return nil
	}
	slug, err := slugs.Unique(slugs.Slugify(name), func(s string) (bool, error) {
		return o.d.store.OrganisationSlugTaken(ctx, s, o.row.ID)
	})
	if err != nil {
		return err
	}
	updatedAt, err := o.d.store.UpdateOrganisationName(ctx, o.row.ID, name, slug)
	if err != nil {
		return err
	}
	o.row.Name, o.row.Slug, o.row.UpdatedAt = name, slug, updatedAt
	return nil
}

func (o *Organisation) UpdateWebsite(ctx context.Context, website *string) error {
	if equalOptional(website, o.row.Website) {
		return nil
	}
	updatedAt, err := o.d.store.UpdateOrganisationWebsite(ctx, o.row.ID, website)
	if err != nil {
		return err
	}
	o.row.Website, o.row.UpdatedAt = website, updatedAt
	return nil
}

// UpdateImage swaps the logo. The new reference is persisted before
// the old file is touched, so the row never points at a removed file;
// a nil image clears the logo.
func (o *Organisation) UpdateImage(ctx context.Context, image *assets.Asset) error {
	var newName *string
	if image != nil {
		n := image.Name()
		newName = &n
	}
	if equalOptional(newName, o.row.Image) {
		return nil
	}
	old := o.row.Image
	updatedAt, err := o.d.store.UpdateOrganisationImage(ctx, o.row.ID, newName)
	if err != nil {
		return err
	}
	o.row.Image, o.row.UpdatedAt = newName, updatedAt
	if old != nil {
		o.d.removeFile(*old)
	}
	return nil
}

// Remove deletes the row first, then best-effort removes the logo file.
func (o *Organisation) Remove(ctx context.Context) error {
	if err := o.d.store.DeleteOrganisation(ctx, o.row.ID); err != nil {
		return err
	}
	if o.row.Image != nil {
		o.d.removeFile(*o.row.Image)
	}
	return nil
}

// ResolveInitiatives loads the initiatives this organisation backs.
func (o *Organisation) ResolveInitiatives(ctx context.Context) error {
	rows, err := o.d.store.ListBackedInitiatives(ctx, o.row.ID)
	if err != nil {
		return err
	}
	o.initiatives = make([]*Initiative, 0, len(rows))
	for _, row := range rows {
		o.initiatives = append(o.initiatives, &Initiative{d: o.d, row: row})
	}
	o.d.sortInitiatives(o.initiatives)
	o.initiativesResolved = true
	return nil
}

func (o *Organisation) Initiatives() ([]*Initiative, error) {
	if !o.initiativesResolved {
		return nil, Validationf("initiatives must be resolved before use; call ResolveInitiatives first")
	}
	return o.initiatives, nil
}

func (o *Organisation) AddInitiative(ctx context.Context, initiative *Initiative) error {
	if !o.initiativesResolved {
		return Validationf("initiatives must be resolved before use; call ResolveInitiatives first")
	}
	err := o.d.store.AddBacking(ctx, initiative.ID(), o.row.ID)
	if err != nil && !errors.Is(err, store.ErrAlreadyLinked) {
		return err
	}
	for _, existing := range o.initiatives {
		if existing.ID() == initiative.ID() {
			return nil
		}
	}
	o.initiatives = append(o.initiatives, initiative)
	o.d.sortInitiatives(o.initiatives)
	return nil
}

func (o *Organisation) RemoveInitiative(ctx context.Context, initiative *Initiative) error {
	if !o.initiativesResolved {
		return Validationf("initiatives must be resolved before use; call ResolveInitiatives first")
	}
	if err := o.d.store.RemoveBacking(ctx, initiative.ID(), o.row.ID); err != nil {
		return err
	}
	kept := o.initiatives[:0]
	for _, existing := range o.initiatives {
		if existing.ID() != initiative.ID() {
			kept = append(kept, existing)
		}
	}
	o.initiatives = kept
	return nil
}

func (o *Organisation) MarshalJSON() ([]byte, error) {
	payload := map[string]any{
		"id":        o.row.ID,
		"slug":      o.row.Slug,
		"name":      o.row.Name,
		"website":   o.row.Website,
		"image":     assetURL(o.row.Image),
		"createdAt": o.row.CreatedAt,
		"updatedAt": o.row.UpdatedAt,
	}
	if o.initiativesResolved {
		payload["initiatives"] = o.initiatives
	}
	return json.Marshal(payload)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// assetURL turns a stored file name into its public path.
func assetURL(name *string) *string {
	if name == nil {
		return nil
	}
	url := "/assets/" + *name
	return &url
}
