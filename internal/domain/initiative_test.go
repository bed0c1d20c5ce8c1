package domain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/melusc/initiative-tracker/internal/assets"
)

var testJPEG = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)

func TestInitiativeCreateRequiresPDF(t *testing.T) {
	repos, _, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Initiatives.Create(ctx, "Gletscher", "Gletscher-Initiative", nil, nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing pdf")
	}
	if kind, _ := KindOf(err); kind != KindValidation {
		t.Errorf("got kind %q, want validation", kind)
	}
}

func TestInitiativeCreate(t *testing.T) {
	repos, _, files := newTestRepos(t)
	ctx := context.Background()

	pdf, err := files.CreateFromBuffer(ctx, assets.PDF(), testPDF)
	if err != nil {
		t.Fatalf("CreateFromBuffer pdf: %v", err)
	}
	image, err := files.CreateFromBuffer(ctx, assets.Image(), testJPEG)
	if err != nil {
		t.Fatalf("CreateFromBuffer image: %v", err)
	}
	website := "https://gletscher-initiative.ch"
	deadline := time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC)
	initiated := time.Date(2025, time.August, 26, 0, 0, 0, 0, time.UTC)

	initiative, err := repos.Initiatives.Create(ctx, "Gletscher", "Gletscher-Initiative", &website, pdf, image, &deadline, &initiated)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if initiative.Slug() != "gletscher" {
		t.Errorf("slug = %q, want gletscher", initiative.Slug())
	}
	if initiative.PDFName() != pdf.Name() {
		t.Errorf("pdf = %q, want %q", initiative.PDFName(), pdf.Name())
	}
	if initiative.ImageName() == nil || *initiative.ImageName() != image.Name() {
		t.Errorf("image = %v, want %q", initiative.ImageName(), image.Name())
	}

	loaded, err := repos.Initiatives.FromSlug(ctx, "gletscher")
	if err != nil {
		t.Fatalf("FromSlug: %v", err)
	}
	if loaded == nil || loaded.ID() != initiative.ID() {
		t.Fatalf("FromSlug resolved %v, want %s", loaded, initiative.ID())
	}
}

func TestInitiativeRemoveDeletesFiles(t *testing.T) {
	repos, _, files := newTestRepos(t)
	ctx := context.Background()

	pdf, err := files.CreateFromBuffer(ctx, assets.PDF(), testPDF)
	if err != nil {
		t.Fatalf("CreateFromBuffer pdf: %v", err)
	}
	image, err := files.CreateFromBuffer(ctx, assets.Image(), testJPEG)
	if err != nil {
		t.Fatalf("CreateFromBuffer image: %v", err)
	}
	initiative, err := repos.Initiatives.Create(ctx, "Gletscher", "Gletscher-Initiative", nil, pdf, image, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := initiative.Remove(ctx); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, err := repos.Initiatives.FromID(ctx, initiative.ID()); err != nil || got != nil {
		t.Errorf("row survived removal: %v, %v", got, err)
	}
	for _, name := range []string{pdf.Name(), image.Name()} {
		asset, err := files.FromName(name)
		if err != nil {
			t.Fatalf("FromName %q: %v", name, err)
		}
		if asset != nil {
			t.Errorf("file %q survived removal", name)
		}
	}
}

func TestInitiativeUpdatePDFRemovesOldFile(t *testing.T) {
	repos, _, files := newTestRepos(t)
	ctx := context.Background()

	oldPDF, err := files.CreateFromBuffer(ctx, assets.PDF(), testPDF)
	if err != nil {
		t.Fatalf("CreateFromBuffer: %v", err)
	}
	initiative, err := repos.Initiatives.Create(ctx, "Gletscher", "Gletscher-Initiative", nil, oldPDF, nil, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newPDF, err := files.CreateFromBuffer(ctx, assets.PDF(), testPDF)
	if err != nil {
		t.Fatalf("CreateFromBuffer: %v", err)
	}
	if err := initiative.UpdatePDF(ctx, newPDF); err != nil {
		t.Fatalf("UpdatePDF: %v", err)
	}
	if initiative.PDFName() != newPDF.Name() {
		t.Errorf("pdf = %q, want %q", initiative.PDFName(), newPDF.Name())
	}
	if asset, err := files.FromName(oldPDF.Name()); err != nil || asset != nil {
		t.Errorf("old pdf still on disk: %v, %v", asset, err)
	}
	if asset, err := files.FromName(newPDF.Name()); err != nil || asset == nil {
		t.Errorf("new pdf missing: %v, %v", asset, err)
	}
}

func TestInitiativeUpdateShortNameReslugs(t *testing.T) {
	repos, st, files := newTestRepos(t)
	ctx := context.Background()

	first := testInitiative(t, repos, files, "Gletscher")
	second := testInitiative(t, repos, files, "Biodiversität")

	if err := second.UpdateShortName(ctx, "Gletscher"); err != nil {
		t.Fatalf("UpdateShortName: %v", err)
	}
	if second.Slug() != "gletscher-1" {
		t.Errorf("slug = %q, want gletscher-1", second.Slug())
	}
	if first.Slug() != "gletscher" {
		t.Errorf("existing slug changed to %q", first.Slug())
	}

	// Unchanged short name writes nothing.
	writes := st.writes
	if err := second.UpdateShortName(ctx, "Gletscher"); err != nil {
		t.Fatalf("UpdateShortName again: %v", err)
	}
	if st.writes != writes {
		t.Error("unchanged short name reached the store")
	}
}

func TestInitiativeUpdateOptionalFields(t *testing.T) {
	repos, st, files := newTestRepos(t)
	ctx := context.Background()

	initiative := testInitiative(t, repos, files, "Gletscher")

	website := "https://example.org"
	if err := initiative.UpdateWebsite(ctx, &website); err != nil {
		t.Fatalf("UpdateWebsite: %v", err)
	}
	writes := st.writes
	same := "https://example.org"
	if err := initiative.UpdateWebsite(ctx, &same); err != nil {
		t.Fatalf("UpdateWebsite same: %v", err)
	}
	if st.writes != writes {
		t.Error("unchanged website reached the store")
	}
	if err := initiative.UpdateWebsite(ctx, nil); err != nil {
		t.Fatalf("UpdateWebsite nil: %v", err)
	}
	if row := st.initiatives[initiative.ID()]; row.Website != nil {
		t.Errorf("website = %v, want cleared", *row.Website)
	}

	initiated := time.Date(2025, time.August, 26, 0, 0, 0, 0, time.UTC)
	if err := initiative.UpdateInitiatedDate(ctx, &initiated); err != nil {
		t.Fatalf("UpdateInitiatedDate: %v", err)
	}
	writes = st.writes
	sameDate := time.Date(2025, time.August, 26, 0, 0, 0, 0, time.UTC)
	if err := initiative.UpdateInitiatedDate(ctx, &sameDate); err != nil {
		t.Fatalf("UpdateInitiatedDate same: %v", err)
	}
	if st.writes != writes {
		t.Error("unchanged date reached the store")
	}
}

func TestInitiativeOrganisationsGuardAndIdempotence(t *testing.T) {
	repos, st, files := newTestRepos(t)
	ctx := context.Background()

	initiative := testInitiative(t, repos, files, "Gletscher")
	org, err := repos.Organisations.Create(ctx, "Umweltverband", nil, nil)
	if err != nil {
		t.Fatalf("Create organisation: %v", err)
	}

	if _, err := initiative.Organisations(); err == nil {
		t.Error("reading backers before resolving must fail")
	}
	if err := initiative.AddOrganisation(ctx, org); err == nil {
		t.Error("mutating backers before resolving must fail")
	}

	if err := initiative.ResolveOrganisations(ctx); err != nil {
		t.Fatalf("ResolveOrganisations: %v", err)
	}
	if err := initiative.AddOrganisation(ctx, org); err != nil {
		t.Fatalf("AddOrganisation: %v", err)
	}
	if err := initiative.AddOrganisation(ctx, org); err != nil {
		t.Fatalf("AddOrganisation again: %v", err)
	}
	if len(st.backings) != 1 {
		t.Errorf("got %d join rows, want 1", len(st.backings))
	}

	backers, err := initiative.Organisations()
	if err != nil {
		t.Fatalf("Organisations: %v", err)
	}
	if len(backers) != 1 || backers[0].ID() != org.ID() {
		t.Fatalf("cached backers = %v, want the one organisation", backers)
	}

	if err := initiative.RemoveOrganisation(ctx, org); err != nil {
		t.Fatalf("RemoveOrganisation: %v", err)
	}
	if err := initiative.RemoveOrganisation(ctx, org); err != nil {
		t.Fatalf("RemoveOrganisation again: %v", err)
	}
	if len(st.backings) != 0 {
		t.Errorf("%d join rows left, want none", len(st.backings))
	}
}

func TestInitiativeMarshalJSON(t *testing.T) {
	repos, _, files := newTestRepos(t)
	ctx := context.Background()

	pdf, err := files.CreateFromBuffer(ctx, assets.PDF(), testPDF)
	if err != nil {
		t.Fatalf("CreateFromBuffer: %v", err)
	}
	deadline := time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC)
	initiative, err := repos.Initiatives.Create(ctx, "Gletscher", "Gletscher-Initiative", nil, pdf, nil, &deadline, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := initiative.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	payload := string(data)
	if !strings.Contains(payload, `"pdf":"/assets/`+pdf.Name()+`"`) {
		t.Errorf("pdf url missing: %s", payload)
	}
	if !strings.Contains(payload, `"deadline":"2027-03-01"`) {
		t.Errorf("deadline not a plain date: %s", payload)
	}
	if strings.Contains(payload, `"signatures"`) || strings.Contains(payload, `"organisations"`) {
		t.Errorf("unresolved relations serialised: %s", payload)
	}

	if err := initiative.ResolveSignatures(ctx); err != nil {
		t.Fatalf("ResolveSignatures: %v", err)
	}
	if err := initiative.ResolveOrganisations(ctx); err != nil {
		t.Fatalf("ResolveOrganisations: %v", err)
	}
	data, err = initiative.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if !strings.Contains(string(data), `"signatures":[]`) || !strings.Contains(string(data), `"organisations":[]`) {
		t.Errorf("resolved relations missing: %s", data)
	}
}
