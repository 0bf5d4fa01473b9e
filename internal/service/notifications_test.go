package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"
)

func notificationFixture() ([]domain.Job, []domain.Client) {
	jobs := []domain.Job{
		{ID: "late", Name: "Atrasado", Deadline: "2025-06-09", Status: domain.StatusProducao, CreatedAt: "2025-06-01T10:00:00.000Z"},
		{ID: "paid", Name: "Pago", Deadline: "2025-06-01", Status: domain.StatusPago},
		{ID: "trash", Name: "Lixeira", Deadline: "2025-06-01", Status: domain.StatusBriefing, IsDeleted: true},
		{ID: "today", Name: "Hoje", Deadline: "2025-06-10", Status: domain.StatusRevisao},
		{ID: "tomorrow", Name: "Amanhã", Deadline: "2025-06-11T18:00:00.000Z", Status: domain.StatusBriefing},
		{ID: "later", Name: "Depois", Deadline: "2025-06-13", Status: domain.StatusBriefing},
		{ID: "old", Name: "Antigo", ClientID: "c2", Deadline: "2024-01-10", Status: domain.StatusPago, CreatedAt: "2024-01-01T10:00:00.000Z"},
		{ID: "spring", Name: "Outono", ClientID: "c3", Deadline: "2025-03-10", Status: domain.StatusPago, CreatedAt: "2025-03-01T10:00:00.000Z"},
		{ID: "recent", Name: "Recente", ClientID: "c1", Deadline: "2025-06-30", Status: domain.StatusBriefing, CreatedAt: "2025-06-01T10:00:00.000Z"},
	}
	clients := []domain.Client{
		{ID: "c1", Name: "Marina", Birthday: "1990-06-10"},
		{ID: "c2", Name: "Rafael"},
		{ID: "c3", Name: "Beatriz", Birthday: "1987-11-02"},
		{ID: "c4", Name: "Sem jobs"},
	}
	return jobs, clients
}

func TestDeriveNotifications_TypesAndOrder(t *testing.T) {
	jobs, clients := notificationFixture()

	got := service.DeriveNotifications(jobs, clients, fixedNow, time.UTC, nil)

	wantIDs := []string{
		"overdue-late",
		"deadline-today",
		"deadline-tomorrow",
		"birthday-c1-2025",
		"client-1yr-c2",
		"client-60d-c3",
	}
	if len(got) != len(wantIDs) {
		ids := make([]string, len(got))
		for i, n := range got {
			ids[i] = n.ID
		}
		t.Fatalf("got %v, want %v", ids, wantIDs)
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, got[i].ID, id)
		}
		if got[i].IsRead {
			t.Errorf("%s should be unread", id)
		}
	}

	if !strings.Contains(got[0].Message, "1 dia.") {
		t.Errorf("overdue message = %q", got[0].Message)
	}
	if got[0].LinkTo != "/jobs/late" || got[0].EntityID != "late" {
		t.Errorf("overdue link = %q entity = %q", got[0].LinkTo, got[0].EntityID)
	}
	if !strings.Contains(got[1].Message, "hoje") || !strings.Contains(got[2].Message, "amanhã") {
		t.Errorf("deadline messages = %q / %q", got[1].Message, got[2].Message)
	}
	if got[3].LinkTo != "/clients/c1" {
		t.Errorf("birthday link = %q", got[3].LinkTo)
	}
}

func TestDeriveNotifications_ReadSet(t *testing.T) {
	jobs, clients := notificationFixture()

	got := service.DeriveNotifications(jobs, clients, fixedNow, time.UTC, map[string]bool{"deadline-today": true})
	for _, n := range got {
		if n.IsRead != (n.ID == "deadline-today") {
			t.Errorf("%s isRead = %v", n.ID, n.IsRead)
		}
	}
}

func TestDeriveNotifications_UsesLocalCalendarDay(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	jobs := []domain.Job{
		// 02:00 UTC on the 10th is still the 9th in BRT
		{ID: "edge", Name: "Borda", Deadline: "2025-06-10T02:00:00.000Z", Status: domain.StatusBriefing},
	}

	got := service.DeriveNotifications(jobs, nil, fixedNow, brt, nil)
	if len(got) != 1 || got[0].Type != domain.NotificationOverdue {
		t.Fatalf("expected overdue in BRT, got %+v", got)
	}

	got = service.DeriveNotifications(jobs, nil, fixedNow, time.UTC, nil)
	if len(got) != 1 || got[0].Type != domain.NotificationDeadline {
		t.Fatalf("expected deadline in UTC, got %+v", got)
	}
}

func TestDeriveNotifications_OverdueDayCount(t *testing.T) {
	jobs := []domain.Job{{ID: "j", Name: "X", Deadline: "2025-06-05", Status: domain.StatusBriefing}}

	got := service.DeriveNotifications(jobs, nil, fixedNow, time.UTC, nil)
	if len(got) != 1 || !strings.Contains(got[0].Message, "5 dias.") {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestSession_MarkNotificationsRead(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	jobs, clients := notificationFixture()
	store.put(t, ana.ID, domain.CollectionJobs, jobs)
	store.put(t, ana.ID, domain.CollectionClients, clients)

	flags := newMemFlags()
	s := service.NewSession(ana, "tok-ana", testDeps(store, flags, nil))
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.MarkNotificationsRead(ctx, []string{"overdue-late", "client-60d-c3"}); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if got := flags.flags["readNotifications:"+ana.ID]; got != `["client-60d-c3","overdue-late"]` {
		t.Errorf("stored read set = %s", got)
	}

	unread := 0
	for _, n := range s.Notifications(ctx) {
		if !n.IsRead {
			unread++
		}
	}
	if unread != 4 {
		t.Errorf("unread = %d, want 4", unread)
	}

	if err := s.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	for _, n := range s.Notifications(ctx) {
		if !n.IsRead {
			t.Errorf("%s still unread", n.ID)
		}
	}
}

func TestSession_MarkNotificationsReadConcurrently(t *testing.T) {
	store := newMemStore()
	existingAccount(t, store)
	flags := newMemFlags()
	s := service.NewSession(ana, "tok-ana", testDeps(store, flags, staticDirectory{ana}))
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.MarkNotificationsRead(ctx, []string{fmt.Sprintf("n-%02d", i)}); err != nil {
				t.Errorf("mark read: %v", err)
			}
		}()
	}
	wg.Wait()

	var stored []string
	if err := json.Unmarshal([]byte(flags.flags["readNotifications:"+ana.ID]), &stored); err != nil {
		t.Fatalf("decode read set: %v", err)
	}
	if len(stored) != n {
		t.Errorf("read set has %d ids, want %d", len(stored), n)
	}
}
