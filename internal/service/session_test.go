package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"
)

// ============================================================
// Load
// ============================================================

func TestLoad_SeedsFreshAccount(t *testing.T) {
	store := newMemStore()
	s := loadedSession(t, store, nil)

	if got := len(s.Clients()); got != 5 {
		t.Errorf("clients = %d, want 5", got)
	}
	if got := len(s.Jobs()); got != 5 {
		t.Errorf("jobs = %d, want 5", got)
	}
	if got := len(s.Contracts()); got != 1 {
		t.Errorf("contracts = %d, want 1", got)
	}
	if got := len(s.DraftNotes()); got != 1 {
		t.Errorf("drafts = %d, want 1", got)
	}
	for _, j := range s.Jobs() {
		if j.OwnerID != ana.ID {
			t.Errorf("seeded job %q owned by %q", j.Name, j.OwnerID)
		}
	}

	var stored []domain.Job
	if !store.read(t, ana.ID, domain.CollectionJobs, &stored) || len(stored) != 5 {
		t.Errorf("seeded jobs not persisted: %d", len(stored))
	}
	if st := s.State(); st.Status != domain.AuthAuthenticated || st.User == nil || st.User.ID != ana.ID {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestLoad_DoesNotReseedExistingAccount(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)

	if len(s.Clients()) != 0 || len(s.Jobs()) != 0 {
		t.Errorf("expected empty collections, got %d clients %d jobs", len(s.Clients()), len(s.Jobs()))
	}
	if got := s.Settings().UserName; got != "Ana" {
		t.Errorf("userName = %q", got)
	}
}

func TestLoad_MigratesLegacyDocuments(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	store.put(t, ana.ID, domain.CollectionJobs, []map[string]any{{
		"id": "j1", "name": "Antigo", "clientId": "c1", "serviceType": "Vídeo",
		"deadline": "2025-07-01", "status": "Produção", "cloudLink": "https://drive.example.com/a",
	}})
	store.put(t, ana.ID, domain.CollectionDraftNotes, []map[string]any{{
		"id": "d1", "title": "Roteiro", "type": "SCRIPT", "content": "Tudo em uma cena",
	}})

	s := loadedSession(t, store, nil)

	job := s.Jobs()[0]
	if len(job.CloudLinks) != 1 || job.CloudLinks[0] != "https://drive.example.com/a" {
		t.Errorf("cloudLink not migrated: %v", job.CloudLinks)
	}
	if job.Payments == nil || job.Tasks == nil || job.LinkedDraftIDs == nil {
		t.Error("missing lists should default to empty")
	}
	if job.OwnerUsername != "ana" {
		t.Errorf("ownerUsername = %q", job.OwnerUsername)
	}

	draft := s.DraftNotes()[0]
	if len(draft.ScriptLines) != 1 || draft.ScriptLines[0].Scene != "Cena 1" || draft.ScriptLines[0].Description != "Tudo em uma cena" {
		t.Errorf("script content not migrated: %+v", draft.ScriptLines)
	}
}

func TestLoad_EmptyUserIsUnauthenticated(t *testing.T) {
	s := service.NewSession(domain.User{}, "", testDeps(newMemStore(), newMemFlags(), nil))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := s.State(); st.Status != domain.AuthUnauthenticated || st.User != nil {
		t.Errorf("unexpected state %+v", st)
	}
}

// ============================================================
// Team visibility
// ============================================================

func TestLoad_TeamJobsVisibleAndReadOnly(t *testing.T) {
	bob := domain.User{ID: "user-bob", Username: "bob", Email: "bob@studio.com"}
	store := newMemStore()
	st := domain.DefaultSettings()
	st.UserName = "Ana"
	st.TeamMembers = []string{"Bob", "ghost"}
	store.put(t, ana.ID, domain.CollectionSettings, st)
	store.put(t, ana.ID, domain.CollectionJobs, []domain.Job{{ID: "mine", Name: "Meu", Deadline: "2025-07-01", Status: domain.StatusBriefing}})
	store.put(t, bob.ID, domain.CollectionJobs, []domain.Job{
		{ID: "shared", Name: "Equipe", Deadline: "2025-07-01", Status: domain.StatusBriefing, IsTeamJob: true},
		{ID: "private", Name: "Privado", Deadline: "2025-07-01", Status: domain.StatusBriefing},
	})

	s := loadedSession(t, store, staticDirectory{ana, bob})

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected own + shared job, got %d", len(jobs))
	}
	var shared *domain.Job
	for i := range jobs {
		if jobs[i].ID == "private" {
			t.Fatal("teammate private job must not be visible")
		}
		if jobs[i].ID == "shared" {
			shared = &jobs[i]
		}
	}
	if shared == nil || shared.OwnerID != bob.ID || shared.OwnerUsername != "bob" {
		t.Fatalf("shared job ownership wrong: %+v", shared)
	}

	in := jobInput("Renomeado", "c1", "2025-07-01")
	_, err := s.UpdateJob(context.Background(), "shared", in)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// a write of the user's jobs never carries the teammate's
	if _, err := s.AddJob(context.Background(), jobInput("Novo", "c1", "2025-07-02")); err != nil {
		t.Fatalf("add job: %v", err)
	}
	var stored []domain.Job
	store.read(t, ana.ID, domain.CollectionJobs, &stored)
	for _, j := range stored {
		if j.ID == "shared" {
			t.Error("teammate job persisted under the user's document")
		}
	}
	if len(stored) != 2 {
		t.Errorf("stored own jobs = %d, want 2", len(stored))
	}
}

// ============================================================
// Jobs
// ============================================================

func TestAddJob_GeneratesIdentityAndOwnership(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)

	in := jobInput("Clipe", "c1", "2025-06-20")
	in.Status = ""
	in.ServiceType = domain.ServicePhoto
	in.CustomServiceType = "ignorado"
	job, err := s.AddJob(context.Background(), in)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	if job.ID == "" {
		t.Error("id not generated")
	}
	if job.CreatedAt == "" {
		t.Error("createdAt not set")
	}
	if job.IsDeleted {
		t.Error("new job must not be deleted")
	}
	if job.OwnerID != ana.ID || job.OwnerUsername != "ana" {
		t.Errorf("ownership = %q/%q", job.OwnerID, job.OwnerUsername)
	}
	if job.Status != domain.StatusBriefing {
		t.Errorf("default status = %q", job.Status)
	}
	if len(job.Payments) != 0 || len(job.Tasks) != 0 || len(job.ObservationsLog) != 0 || len(job.LinkedDraftIDs) != 0 {
		t.Error("history lists must start empty")
	}
	if job.CustomServiceType != "" {
		t.Error("customServiceType only kept for Outro")
	}

	var stored []domain.Job
	if !store.read(t, ana.ID, domain.CollectionJobs, &stored) || len(stored) != 1 || stored[0].ID != job.ID {
		t.Errorf("job not persisted: %+v", stored)
	}
}

func TestAddJob_ValidationLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)

	cases := map[string]domain.JobInput{
		"no name":      jobInput("", "c1", "2025-06-20"),
		"no client":    jobInput("Clipe", "", "2025-06-20"),
		"bad deadline": jobInput("Clipe", "c1", "amanhã"),
		"bad link": func() domain.JobInput {
			in := jobInput("Clipe", "c1", "2025-06-20")
			in.CloudLinks = []string{"ftp://x"}
			return in
		}(),
		"bad status": func() domain.JobInput {
			in := jobInput("Clipe", "c1", "2025-06-20")
			in.Status = "Arquivado"
			return in
		}(),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.AddJob(context.Background(), in)
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(s.Jobs()) != 0 {
		t.Errorf("rejected input changed state: %d jobs", len(s.Jobs()))
	}
}

func TestUpdateJob_RecurringPaidSpawnsNextMonth(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	ctx := context.Background()

	in := jobInput("Reels (Mês Seguinte)", "c1", "2025-06-15")
	in.IsRecurring = true
	job, err := s.AddJob(ctx, in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddPayment(ctx, job.ID, domain.Payment{Amount: 500}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	in.Status = domain.StatusPago
	if _, err := s.UpdateJob(ctx, job.ID, in); err != nil {
		t.Fatalf("update: %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected spawned job, got %d jobs", len(jobs))
	}
	next := jobs[1]
	if next.ID == job.ID {
		t.Fatal("spawned job reused the id")
	}
	if next.Deadline != "2025-07-15" {
		t.Errorf("deadline = %q, want 2025-07-15", next.Deadline)
	}
	if next.Name != "Reels" {
		t.Errorf("name = %q, want suffix stripped", next.Name)
	}
	if next.Status != domain.StatusBriefing || len(next.Payments) != 0 || !next.IsRecurring {
		t.Errorf("spawned job not reset: %+v", next)
	}

	// already paid: saving again spawns nothing
	if _, err := s.UpdateJob(ctx, job.ID, in); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if len(s.Jobs()) != 2 {
		t.Errorf("re-saving a paid job spawned again: %d", len(s.Jobs()))
	}
}

func TestJobTrashLifecycle(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	ctx := context.Background()

	job, _ := s.AddJob(ctx, jobInput("Clipe", "c1", "2025-06-20"))
	if err := s.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !s.Jobs()[0].IsDeleted {
		t.Error("soft delete not applied")
	}
	if err := s.RestoreJob(ctx, job.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if s.Jobs()[0].IsDeleted {
		t.Error("restore not applied")
	}
	if err := s.PermanentlyDeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("permanent delete: %v", err)
	}
	if len(s.Jobs()) != 0 {
		t.Error("job still present")
	}

	var nf *domain.ErrNotFound
	if err := s.DeleteJob(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPayments(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	ctx := context.Background()

	job, _ := s.AddJob(ctx, jobInput("Clipe", "c1", "2025-06-20"))
	var verr *domain.ErrValidation
	if _, err := s.AddPayment(ctx, job.ID, domain.Payment{Amount: 0}); !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation for zero amount, got %v", err)
	}

	updated, err := s.AddPayment(ctx, job.ID, domain.Payment{Amount: 600})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if updated.PaidAmount() != 600 || updated.RemainingAmount() != 900 {
		t.Errorf("paid=%v remaining=%v", updated.PaidAmount(), updated.RemainingAmount())
	}
	if updated.Payments[0].Date != "2025-06-10T12:00:00.000Z" {
		t.Errorf("payment date defaulted to %q", updated.Payments[0].Date)
	}

	updated, err = s.RemovePayment(ctx, job.ID, updated.Payments[0].ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(updated.Payments) != 0 {
		t.Error("payment not removed")
	}
}

// ============================================================
// Persistence failures
// ============================================================

func TestMutation_PersistFailureKeepsMemoryState(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	store.fail(domain.CollectionJobs, true)

	job, err := s.AddJob(context.Background(), jobInput("Clipe", "c1", "2025-06-20"))
	var perr *domain.ErrPersistence
	if !errors.As(err, &perr) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if perr.Collection != domain.CollectionJobs {
		t.Errorf("collection = %q", perr.Collection)
	}
	if job == nil {
		t.Fatal("job must still be returned")
	}
	if len(s.Jobs()) != 1 || s.Jobs()[0].ID != job.ID {
		t.Error("in-memory state must keep the job")
	}

	// storage is refreshed on reload
	store.fail(domain.CollectionJobs, false)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(s.Jobs()) != 0 {
		t.Error("reload should reflect storage")
	}
}

// ============================================================
// Clients and contracts
// ============================================================

func TestDeleteClient_CascadesAfterConfirmation(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	ctx := context.Background()

	client, err := s.AddClient(ctx, domain.Client{Name: "Marina", Email: "marina@example.com"})
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	other, _ := s.AddClient(ctx, domain.Client{Name: "Rafael"})
	c1, _ := s.AddContract(ctx, domain.Contract{Title: "Anual", ClientID: client.ID, Duration: domain.DurationAnual})
	c2, _ := s.AddContract(ctx, domain.Contract{Title: "Pontual", ClientID: client.ID})
	keep, _ := s.AddContract(ctx, domain.Contract{Title: "Outro", ClientID: other.ID})

	linked := jobInput("Vinculado", client.ID, "2025-06-20")
	linked.LinkedContractID = c1.ID
	j1, _ := s.AddJob(ctx, linked)
	linked.LinkedContractID = c2.ID
	j2, _ := s.AddJob(ctx, linked)
	_ = s.DeleteJob(ctx, j2.ID)
	linked.LinkedContractID = keep.ID
	j3, _ := s.AddJob(ctx, linked)

	impact, err := s.DeleteClient(ctx, client.ID, false)
	var confirm *domain.ErrConfirmationRequired
	if !errors.As(err, &confirm) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if impact.ContractsDeleted != 2 || impact.JobsUnlinked != 1 {
		t.Errorf("impact = %d contracts / %d jobs, want 2 / 1", impact.ContractsDeleted, impact.JobsUnlinked)
	}
	if len(s.Clients()) != 2 {
		t.Fatal("unconfirmed delete must not change state")
	}

	if _, err := s.DeleteClient(ctx, client.ID, true); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	if len(s.Clients()) != 1 || s.Clients()[0].ID != other.ID {
		t.Errorf("clients after delete: %+v", s.Clients())
	}
	if len(s.Contracts()) != 1 || s.Contracts()[0].ID != keep.ID {
		t.Errorf("contracts after delete: %+v", s.Contracts())
	}
	for _, j := range s.Jobs() {
		switch j.ID {
		case j1.ID:
			if j.LinkedContractID != "" {
				t.Errorf("job %s still linked to %s", j.ID, j.LinkedContractID)
			}
		case j2.ID:
			if j.LinkedContractID != c2.ID {
				t.Error("trashed job link should be left for restore")
			}
		case j3.ID:
			if j.LinkedContractID != keep.ID {
				t.Error("unrelated link cleared")
			}
		}
	}

	if err := s.RestoreJob(ctx, j2.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, j := range s.Jobs() {
		if j.ID == j2.ID && j.LinkedContractID != "" {
			t.Errorf("restored job still linked to deleted contract %s", j.LinkedContractID)
		}
	}

	var stored []domain.Contract
	store.read(t, ana.ID, domain.CollectionContracts, &stored)
	if len(stored) != 1 {
		t.Errorf("stored contracts = %d, want 1", len(stored))
	}
}

func TestDeleteClient_LeavesTeammateJobsAlone(t *testing.T) {
	bob := domain.User{ID: "user-bob", Username: "bob", Email: "bob@studio.com"}
	store := newMemStore()
	st := domain.DefaultSettings()
	st.UserName = "Ana"
	st.TeamMembers = []string{"bob"}
	store.put(t, ana.ID, domain.CollectionSettings, st)
	store.put(t, ana.ID, domain.CollectionClients, []domain.Client{{ID: "c1", Name: "Marina"}})
	store.put(t, ana.ID, domain.CollectionContracts, []domain.Contract{{ID: "k1", Title: "Anual", ClientID: "c1", OwnerID: ana.ID}})
	store.put(t, bob.ID, domain.CollectionJobs, []domain.Job{
		{ID: "shared", Name: "Equipe", Deadline: "2025-07-01", Status: domain.StatusBriefing, IsTeamJob: true, LinkedContractID: "k1"},
	})
	s := loadedSession(t, store, staticDirectory{ana, bob})

	impact, err := s.ClientDeletionImpact("c1")
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if impact.ContractsDeleted != 1 || impact.JobsUnlinked != 0 {
		t.Errorf("impact = %d contracts / %d jobs, want 1 / 0", impact.ContractsDeleted, impact.JobsUnlinked)
	}
	if _, err := s.DeleteClient(context.Background(), "c1", true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, j := range s.Jobs() {
		if j.ID == "shared" && j.LinkedContractID != "k1" {
			t.Error("teammate job changed in memory")
		}
	}
}

func TestAddContract_RequiresExistingClient(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)

	_, err := s.AddContract(context.Background(), domain.Contract{Title: "X", ClientID: "nope"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddClient_Validation(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)

	for _, c := range []domain.Client{
		{Name: ""},
		{Name: "X", Email: "not-an-email"},
		{Name: "X", CPF: "123"},
	} {
		_, err := s.AddClient(context.Background(), c)
		var verr *domain.ErrValidation
		if !errors.As(err, &verr) {
			t.Errorf("client %+v: expected ErrValidation, got %v", c, err)
		}
	}
}

// ============================================================
// Settings
// ============================================================

func TestUpdateSettings_NormalizesTeam(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)

	got, err := s.UpdateSettings(context.Background(), domain.AppSettings{
		Theme:       "light",
		TeamMembers: []string{"bob", " Bob ", "ana", "carla"},
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if len(got.TeamMembers) != 2 || got.TeamMembers[0] != "bob" || got.TeamMembers[1] != "carla" {
		t.Errorf("team = %v", got.TeamMembers)
	}
	if got.AccentColor == "" {
		t.Error("missing fields should fall back to defaults")
	}

	var stored domain.AppSettings
	store.read(t, ana.ID, domain.CollectionSettings, &stored)
	if stored.Theme != "light" {
		t.Errorf("stored theme = %q", stored.Theme)
	}
}

// ============================================================
// Export / Import
// ============================================================

func TestExportImport_RoundTrip(t *testing.T) {
	src := newMemStore()
	s := loadedSession(t, src, nil) // seeded
	doc, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Version != domain.ExportVersion {
		t.Errorf("version = %q", doc.Version)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	dst := newMemStore()
	existingAccount(t, dst)
	target := loadedSession(t, dst, nil)
	if err := target.Import(context.Background(), raw); err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(target.Jobs()) != len(s.Jobs()) || len(target.Clients()) != len(s.Clients()) ||
		len(target.Contracts()) != len(s.Contracts()) || len(target.DraftNotes()) != len(s.DraftNotes()) {
		t.Errorf("counts differ after import")
	}
	for i, j := range target.Jobs() {
		if j.ID != s.Jobs()[i].ID || j.OwnerID != ana.ID {
			t.Errorf("job %d = %s/%s", i, j.ID, j.OwnerID)
		}
	}
}

func TestImport_RejectsMissingKeys(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	writesBefore := store.writes

	err := s.Import(context.Background(), []byte(`{"version":"2.0","data":{"jobs":[]}}`))
	var ierr *domain.ErrImportInvalid
	if !errors.As(err, &ierr) {
		t.Fatalf("expected ErrImportInvalid, got %v", err)
	}
	if len(ierr.Missing) != 2 {
		t.Errorf("missing = %v", ierr.Missing)
	}
	if store.writes != writesBefore {
		t.Error("invalid import must not write")
	}

	if err := s.Import(context.Background(), []byte(`not json`)); !errors.As(err, &ierr) {
		t.Errorf("expected ErrImportInvalid for garbage, got %v", err)
	}
}

func TestImport_PersistFailureKeepsImportedState(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	store.fail(domain.CollectionClients, true)

	raw := []byte(`{"version":"2.0","data":{"jobs":[],"clients":[{"id":"c9","name":"Importado","email":""}],"settings":{"theme":"light"}}}`)
	err := s.Import(context.Background(), raw)
	var perr *domain.ErrPersistence
	if !errors.As(err, &perr) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(s.Clients()) != 1 || s.Clients()[0].ID != "c9" {
		t.Errorf("imported clients not kept in memory: %+v", s.Clients())
	}
	if s.Settings().Theme != "light" {
		t.Error("imported settings not kept in memory")
	}
}

// ============================================================
// Drafts
// ============================================================

func TestDraftNotes_CRUD(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	s := loadedSession(t, store, nil)
	ctx := context.Background()

	d, err := s.AddDraftNote(ctx, domain.DraftNote{
		Title:       "Roteiro",
		Type:        domain.DraftScript,
		ScriptLines: []domain.ScriptLine{{Scene: "Abertura", Duration: 5}, {Scene: "Fim", Duration: 7}},
	})
	if err != nil {
		t.Fatalf("add draft: %v", err)
	}
	if d.TotalDuration() != 12 {
		t.Errorf("total duration = %d", d.TotalDuration())
	}
	for _, l := range d.ScriptLines {
		if l.ID == "" {
			t.Error("script line id not stamped")
		}
	}

	d.Title = "Roteiro v2"
	updated, err := s.UpdateDraftNote(ctx, d.ID, *d)
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if updated.CreatedAt != d.CreatedAt || updated.Title != "Roteiro v2" {
		t.Errorf("update lost fields: %+v", updated)
	}

	if err := s.DeleteDraftNote(ctx, d.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if len(s.DraftNotes()) != 0 {
		t.Error("draft not deleted")
	}
}

// ============================================================
// Session manager
// ============================================================

func TestAcquire_ConcurrentCallersShareOneSession(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	m := service.NewSessionManager(testDeps(store, newMemFlags(), staticDirectory{ana}))

	const callers = 16
	got := make([]*service.Session, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = m.Acquire(context.Background(), ana)
		}()
	}
	wg.Wait()

	live, ok := m.Get(ana.ID)
	if !ok {
		t.Fatal("no live session")
	}
	for i, s := range got {
		if s != live {
			t.Fatalf("caller %d got a session that is not the live one", i)
		}
	}
	if m.Len() != 1 {
		t.Errorf("sessions = %d, want 1", m.Len())
	}

	// a job added through any caller's session is visible to the live one
	if _, err := got[callers-1].AddJob(context.Background(), jobInput("Corrida", "c1", "2025-07-01")); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if len(live.Jobs()) != 1 {
		t.Errorf("live jobs = %d, want 1", len(live.Jobs()))
	}
}

func TestAcquire_KeepsOpenSession(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	m := service.NewSessionManager(testDeps(store, newMemFlags(), staticDirectory{ana}))

	opened := m.Open(context.Background(), ana, "tok-ana")
	if got := m.Acquire(context.Background(), ana); got != opened {
		t.Error("acquire replaced the session opened at login")
	}
	if opened.AccessToken() != "tok-ana" {
		t.Errorf("access token = %q", opened.AccessToken())
	}
}
