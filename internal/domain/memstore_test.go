package domain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/config"
	"github.com/melusc/initiative-tracker/internal/store"
)

// memStore is an in-memory Store with the same contract as the
// Postgres implementation: nil row on not-found, ErrAlreadyLinked on
// duplicate joins, cascades on login delete. writes counts row
// mutations so tests can assert that unchanged updates write nothing.
type memStore struct {
	logins      map[string]store.Login
	sessions    map[string]store.Session
	people      map[string]store.Person
	orgs        map[string]store.Organisation
	initiatives map[string]store.Initiative
	signatures  map[[2]string]time.Time
	backings    map[[2]string]time.Time
	writes      int
}

func newMemStore() *memStore {
	return &memStore{
		logins:      map[string]store.Login{},
		sessions:    map[string]store.Session{},
		people:      map[string]store.Person{},
		orgs:        map[string]store.Organisation{},
		initiatives: map[string]store.Initiative{},
		signatures:  map[[2]string]time.Time{},
		backings:    map[[2]string]time.Time{},
	}
}

func newTestRepos(t *testing.T) (*Repositories, *memStore, *assets.Store) {
	t.Helper()
	files, err := assets.NewStore(t.TempDir(), 1<<20, 5*time.Second)
	if err != nil {
		t.Fatalf("assets.NewStore: %v", err)
	}
	st := newMemStore()
	cfg := config.Config{Locale: "de", SessionTTL: 7 * 24 * time.Hour}
	return New(st, files, cfg), st, files
}

func (m *memStore) stamp() time.Time { return time.Now().UTC() }

func (m *memStore) InsertLogin(_ context.Context, login *store.Login) error {
	now := m.stamp()
	login.CreatedAt, login.UpdatedAt = now, now
	m.logins[login.ID] = *login
	m.writes++
	return nil
}

func (m *memStore) GetLoginByUsername(_ context.Context, username string) (*store.Login, error) {
	for _, login := range m.logins {
		if strings.EqualFold(login.Username, username) {
			l := login
			return &l, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetLoginByID(_ context.Context, id string) (*store.Login, error) {
	if login, ok := m.logins[id]; ok {
		return &login, nil
	}
	return nil, nil
}

func (m *memStore) DeleteLogin(_ context.Context, id string) error {
	delete(m.logins, id)
	for sid, session := range m.sessions {
		if session.UserID == id {
			delete(m.sessions, sid)
		}
	}
	for pid, person := range m.people {
		if person.Owner == id {
			delete(m.people, pid)
			for key := range m.signatures {
				if key[0] == pid {
					delete(m.signatures, key)
				}
			}
		}
	}
	m.writes++
	return nil
}

func (m *memStore) InsertSession(_ context.Context, session *store.Session) error {
	session.CreatedAt = m.stamp()
	m.sessions[session.ID] = *session
	m.writes++
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*store.Session, error) {
	if session, ok := m.sessions[id]; ok {
		return &session, nil
	}
	return nil, nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	m.writes++
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for id, session := range m.sessions {
		if !session.Expires.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertPerson(_ context.Context, person *store.Person) error {
	now := m.stamp()
	person.CreatedAt, person.UpdatedAt = now, now
	m.people[person.ID] = *person
	m.writes++
	return nil
}

func (m *memStore) GetPersonByID(_ context.Context, id string) (*store.Person, error) {
	if person, ok := m.people[id]; ok {
		return &person, nil
	}
	return nil, nil
}

func (m *memStore) GetPersonBySlug(_ context.Context, owner, slug string) (*store.Person, error) {
	for _, person := range m.people {
		if person.Owner == owner && person.Slug == slug {
			p := person
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListPeople(_ context.Context) ([]store.Person, error) {
	items := make([]store.Person, 0, len(m.people))
	for _, person := range m.people {
		items = append(items, person)
	}
	return items, nil
}

func (m *memStore) ListPeopleByOwner(_ context.Context, owner string) ([]store.Person, error) {
	items := make([]store.Person, 0)
	for _, person := range m.people {
		if person.Owner == owner {
			items = append(items, person)
		}
	}
	return items, nil
}

func (m *memStore) UpdatePersonName(_ context.Context, id, name, slug string) (time.Time, error) {
	person := m.people[id]
	person.Name, person.Slug, person.UpdatedAt = name, slug, m.stamp()
	m.people[id] = person
	m.writes++
	return person.UpdatedAt, nil
}

func (m *memStore) DeletePerson(_ context.Context, id string) error {
	delete(m.people, id)
	for key := range m.signatures {
		if key[0] == id {
			delete(m.signatures, key)
		}
	}
	m.writes++
	return nil
}

func (m *memStore) PersonSlugTaken(_ context.Context, owner, slug, excludeID string) (bool, error) {
	for _, person := range m.people {
		if person.Owner == owner && person.Slug == slug && person.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertOrganisation(_ context.Context, org *store.Organisation) error {
	now := m.stamp()
	org.CreatedAt, org.UpdatedAt = now, now
	m.orgs[org.ID] = *org
	m.writes++
	return nil
}

func (m *memStore) GetOrganisationByID(_ context.Context, id string) (*store.Organisation, error) {
	if org, ok := m.orgs[id]; ok {
		return &org, nil
	}
	return nil, nil
}

func (m *memStore) GetOrganisationBySlug(_ context.Context, slug string) (*store.Organisation, error) {
	for _, org := range m.orgs {
		if org.Slug == slug {
			o := org
			return &o, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListOrganisations(_ context.Context) ([]store.Organisation, error) {
	items := make([]store.Organisation, 0, len(m.orgs))
	for _, org := range m.orgs {
		items = append(items, org)
	}
	return items, nil
}

func (m *memStore) UpdateOrganisationName(_ context.Context, id, name, slug string) (time.Time, error) {
	org := m.orgs[id]
	org.Name, org.Slug, org.UpdatedAt = name, slug, m.stamp()
	m.orgs[id] = org
	m.writes++
	return org.UpdatedAt, nil
}

func (m *memStore) UpdateOrganisationWebsite(_ context.Context, id string, website *string) (time.Time, error) {
	org := m.orgs[id]
	org.Website, org.UpdatedAt = website, m.stamp()
	m.orgs[id] = org
	m.writes++
	return org.UpdatedAt, nil
}

func (m *memStore) UpdateOrganisationImage(_ context.Context, id string, image *string) (time.Time, error) {
	org := m.orgs[id]
	org.Image, org.UpdatedAt = image, m.stamp()
	m.orgs[id] = org
	m.writes++
	return org.UpdatedAt, nil
}

func (m *memStore) DeleteOrganisation(_ context.Context, id string) error {
	delete(m.orgs, id)
	for key := range m.backings {
		if key[1] == id {
			delete(m.backings, key)
		}
	}
	m.writes++
	return nil
}

func (m *memStore) OrganisationSlugTaken(_ context.Context, slug, excludeID string) (bool, error) {
	for _, org := range m.orgs {
		if org.Slug == slug && org.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertInitiative(_ context.Context, initiative *store.Initiative) error {
	now := m.stamp()
	initiative.CreatedAt, initiative.UpdatedAt = now, now
	m.initiatives[initiative.ID] = *initiative
	m.writes++
	return nil
}

func (m *memStore) GetInitiativeByID(_ context.Context, id string) (*store.Initiative, error) {
	if initiative, ok := m.initiatives[id]; ok {
		return &initiative, nil
	}
	return nil, nil
}

func (m *memStore) GetInitiativeBySlug(_ context.Context, slug string) (*store.Initiative, error) {
	for _, initiative := range m.initiatives {
		if initiative.Slug == slug {
			i := initiative
			return &i, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListInitiatives(_ context.Context) ([]store.Initiative, error) {
	items := make([]store.Initiative, 0, len(m.initiatives))
	for _, initiative := range m.initiatives {
		items = append(items, initiative)
	}
	return items, nil
}

func (m *memStore) updateInitiative(id string, mutate func(*store.Initiative)) (time.Time, error) {
	initiative := m.initiatives[id]
	mutate(&initiative)
	initiative.UpdatedAt = m.stamp()
	m.initiatives[id] = initiative
	m.writes++
	return initiative.UpdatedAt, nil
}

func (m *memStore) UpdateInitiativeShortName(_ context.Context, id, shortName, slug string) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.ShortName, i.Slug = shortName, slug })
}

func (m *memStore) UpdateInitiativeFullName(_ context.Context, id, fullName string) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.FullName = fullName })
}

func (m *memStore) UpdateInitiativeWebsite(_ context.Context, id string, website *string) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.Website = website })
}

func (m *memStore) UpdateInitiativeDeadline(_ context.Context, id string, deadline *time.Time) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.Deadline = deadline })
}

func (m *memStore) UpdateInitiativeInitiatedDate(_ context.Context, id string, initiatedDate *time.Time) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.InitiatedDate = initiatedDate })
}

func (m *memStore) UpdateInitiativePDF(_ context.Context, id, pdf string) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.PDF = pdf })
}

func (m *memStore) UpdateInitiativeImage(_ context.Context, id string, image *string) (time.Time, error) {
	return m.updateInitiative(id, func(i *store.Initiative) { i.Image = image })
}

func (m *memStore) DeleteInitiative(_ context.Context, id string) error {
	delete(m.initiatives, id)
	for key := range m.signatures {
		if key[1] == id {
			delete(m.signatures, key)
		}
	}
	for key := range m.backings {
		if key[0] == id {
			delete(m.backings, key)
		}
	}
	m.writes++
	return nil
}

func (m *memStore) InitiativeSlugTaken(_ context.Context, slug, excludeID string) (bool, error) {
	for _, initiative := range m.initiatives {
		if initiative.Slug == slug && initiative.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AddSignature(_ context.Context, personID, initiativeID string) error {
	key := [2]string{personID, initiativeID}
	if _, exists := m.signatures[key]; exists {
		return store.ErrAlreadyLinked
	}
	m.signatures[key] = m.stamp()
	m.writes++
	return nil
}

func (m *memStore) RemoveSignature(_ context.Context, personID, initiativeID string) error {
	delete(m.signatures, [2]string{personID, initiativeID})
	return nil
}

func (m *memStore) ListSignedInitiatives(_ context.Context, personID string) ([]store.Initiative, error) {
	items := make([]store.Initiative, 0)
	for key := range m.signatures {
		if key[0] == personID {
			items = append(items, m.initiatives[key[1]])
		}
	}
	return items, nil
}

func (m *memStore) ListSignatories(_ context.Context, initiativeID string) ([]store.Person, error) {
	items := make([]store.Person, 0)
	for key := range m.signatures {
		if key[1] == initiativeID {
			items = append(items, m.people[key[0]])
		}
	}
	return items, nil
}

func (m *memStore) AddBacking(_ context.Context, initiativeID, organisationID string) error {
	key := [2]string{initiativeID, organisationID}
	if _, exists := m.backings[key]; exists {
		return store.ErrAlreadyLinked
	}
	m.backings[key] = m.stamp()
	m.writes++
	return nil
}

func (m *memStore) RemoveBacking(_ context.Context, initiativeID, organisationID string) error {
	delete(m.backings, [2]string{initiativeID, organisationID})
	return nil
}

func (m *memStore) ListBackers(_ context.Context, initiativeID string) ([]store.Organisation, error) {
	items := make([]store.Organisation, 0)
	for key := range m.backings {
		if key[0] == initiativeID {
			items = append(items, m.orgs[key[1]])
		}
	}
	return items, nil
}

func (m *memStore) ListBackedInitiatives(_ context.Context, organisationID string) ([]store.Initiative, error) {
	items := make([]store.Initiative, 0)
	for key := range m.backings {
		if key[1] == organisationID {
			items = append(items, m.initiatives[key[0]])
		}
	}
	return items, nil
}

var _ Store = (*memStore)(nil)
