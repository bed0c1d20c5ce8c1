// Package domain holds the aggregates: Login, Session, Person,
// Organisation and Initiative. Aggregates own their row and enforce
// their invariants on every mutation; they are constructed only by the
// repositories in this package, never directly, so an instance always
// reflects a persisted row.
package domain

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/config"
	"github.com/melusc/initiative-tracker/internal/slugs"
	"github.com/melusc/initiative-tracker/internal/store"
)

// Store is the relational surface the aggregates run on. Implemented
// by store.PostgresStore; tests substitute an in-memory fake.
type Store interface {
	InsertLogin(ctx context.Context, login *store.Login) error
	GetLoginByUsername(ctx context.Context, username string) (*store.Login, error)
	GetLoginByID(ctx context.Context, id string) (*store.Login, error)
	DeleteLogin(ctx context.Context, id string) error

	InsertSession(ctx context.Context, session *store.Session) error
	GetSession(ctx context.Context, id string) (*store.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	InsertPerson(ctx context.Context, person *store.Person) error
	GetPersonByID(ctx context.Context, id string) (*store.Person, error)
	GetPersonBySlug(ctx context.Context, owner, slug string) (*store.Person, error)
	ListPeople(ctx context.Context) ([]store.Person, error)
	ListPeopleByOwner(ctx context.Context, owner string) ([]store.Person, error)
	UpdatePersonName(ctx context.Context, id, name, slug string) (time.Time, error)
	DeletePerson(ctx context.Context, id string) error
	PersonSlugTaken(ctx context.Context, owner, slug, excludeID string) (bool, error)

	InsertOrganisation(ctx context.Context, org *store.Organisation) error
	GetOrganisationByID(ctx context.Context, id string) (*store.Organisation, error)
	GetOrganisationBySlug(ctx context.Context, slug string) (*store.Organisation, error)
	ListOrganisations(ctx context.Context) ([]store.Organisation, error)
	UpdateOrganisationName(ctx context.Context, id, name, slug string) (time.Time, error)
	UpdateOrganisationWebsite(ctx context.Context, id string, website *string) (time.Time, error)
	UpdateOrganisationImage(ctx context.Context, id string, image *string) (time.Time, error)
	DeleteOrganisation(ctx context.Context, id string) error
	OrganisationSlugTaken(ctx context.Context, slug, excludeID string) (bool, error)

	InsertInitiative(ctx context.Context, initiative *store.Initiative) error
	GetInitiativeByID(ctx context.Context, id string) (*store.Initiative, error)
	GetInitiativeBySlug(ctx context.Context, slug string) (*store.Initiative, error)
	ListInitiatives(ctx context.Context) ([]store.Initiative, error)
	UpdateInitiativeShortName(ctx context.Context, id, shortName, slug string) (time.Time, error)
	UpdateInitiativeFullName(ctx context.Context, id, fullName string) (time.Time, error)
	UpdateInitiativeWebsite(ctx context.Context, id string, website *string) (time.Time, error)
	UpdateInitiativeDeadline(ctx context.Context, id string, deadline *time.Time) (time.Time, error)
	UpdateInitiativeInitiatedDate(ctx context.Context, id string, initiatedDate *time.Time) (time.Time, error)
	UpdateInitiativePDF(ctx context.Context, id, pdf string) (time.Time, error)
	UpdateInitiativeImage(ctx context.Context, id string, image *string) (time.Time, error)
	DeleteInitiative(ctx context.Context, id string) error
	InitiativeSlugTaken(ctx context.Context, slug, excludeID string) (bool, error)

	AddSignature(ctx context.Context, personID, initiativeID string) error
	RemoveSignature(ctx context.Context, personID, initiativeID string) error
	ListSignedInitiatives(ctx context.Context, personID string) ([]store.Initiative, error)
	ListSignatories(ctx context.Context, initiativeID string) ([]store.Person, error)

	AddBacking(ctx context.Context, initiativeID, organisationID string) error
	RemoveBacking(ctx context.Context, initiativeID, organisationID string) error
	ListBackers(ctx context.Context, initiativeID string) ([]store.Organisation, error)
	ListBackedInitiatives(ctx context.Context, organisationID string) ([]store.Initiative, error)
}

// deps is the shared context injected into every repository and, via
// them, into every aggregate instance.
type deps struct {
	store      Store
	files      *assets.Store
	locale     string
	sessionTTL time.Duration
}

type Repositories struct {
	Logins        *LoginRepo
	Sessions      *SessionRepo
	People        *PersonRepo
	Organisations *OrganisationRepo
	Initiatives   *InitiativeRepo
}

func New(st Store, files *assets.Store, cfg config.Config) *Repositories {
	d := &deps{
		store:      st,
		files:      files,
		locale:     cfg.Locale,
		sessionTTL: cfg.SessionTTL,
	}
	return &Repositories{
		Logins:        &LoginRepo{d: d},
		Sessions:      &SessionRepo{d: d},
		People:        &PersonRepo{d: d},
		Organisations: &OrganisationRepo{d: d},
		Initiatives:   &InitiativeRepo{d: d},
	}
}

// removeFile best-effort deletes a stored asset. Row mutations never
// depend on its success; an orphaned file is recoverable, a dangling
// reference is not.
func (d *deps) removeFile(name string) {
	if name == "" {
		return
	}
	asset, err := d.files.FromName(name)
	if err != nil {
		log.Warn().Err(err).Str("asset", name).Msg("asset lookup for removal failed")
		return
	}
	if asset == nil {
		return
	}
	if err := asset.Remove(); err != nil {
		log.Warn().Err(err).Str("asset", name).Msg("asset removal failed")
	}
}

func (d *deps) sortPeople(items []*Person) {
	c := slugs.NewCollator(d.locale)
	slugs.SortBy(c, items, func(p *Person) []string { return []string{p.row.Name, p.row.Slug} })
}

func (d *deps) sortOrganisations(items []*Organisation) {
	c := slugs.NewCollator(d.locale)
	slugs.SortBy(c, items, func(o *Organisation) []string { return []string{o.row.Name, o.row.Slug} })
}

func (d *deps) sortInitiatives(items []*Initiative) {
	c := slugs.NewCollator(d.locale)
	slugs.SortBy(c, items, func(i *Initiative) []string { return []string{i.row.ShortName, i.row.Slug} })
}

var _ Store = (*store.PostgresStore)(nil)
