package service

import (
	"context"
	"strings"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Draft notes
// ============================================================

func (s *Session) AddDraftNote(ctx context.Context, d domain.DraftNote) (*domain.DraftNote, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.AddDraftNote")
	defer span.End()

	if err := validateDraft(&d); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.deps.NewID()
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt
	d.Title = strings.TrimSpace(d.Title)
	s.stampDraftChildren(&d)
	s.normalizeDraft(&d)

	next := append(append([]domain.DraftNote(nil), s.drafts...), d)
	err := s.persist(ctx, domain.CollectionDraftNotes, next)
	s.drafts = next
	return &d, err
}

func (s *Session) UpdateDraftNote(ctx context.Context, id string, d domain.DraftNote) (*domain.DraftNote, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.UpdateDraftNote")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", id))

	if err := validateDraft(&d); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.draftIndex(id)
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "rascunho", ID: id}
	}
	d.ID = id
	d.CreatedAt = s.drafts[idx].CreatedAt
	d.UpdatedAt = s.now()
	d.Title = strings.TrimSpace(d.Title)
	s.stampDraftChildren(&d)
	s.normalizeDraft(&d)

	next := append([]domain.DraftNote(nil), s.drafts...)
	next[idx] = d
	err := s.persist(ctx, domain.CollectionDraftNotes, next)
	s.drafts = next
	return &d, err
}

func (s *Session) DeleteDraftNote(ctx context.Context, id string) error {
	ctx, span := sessionTracer.Start(ctx, "Session.DeleteDraftNote")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draftIndex(id) < 0 {
		return &domain.ErrNotFound{Resource: "rascunho", ID: id}
	}
	next := make([]domain.DraftNote, 0, len(s.drafts))
	for _, d := range s.drafts {
		if d.ID != id {
			next = append(next, d)
		}
	}
	err := s.persist(ctx, domain.CollectionDraftNotes, next)
	s.drafts = next
	return err
}

func (s *Session) draftIndex(id string) int {
	for i, d := range s.drafts {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// stampDraftChildren gives new scenes and attachments their ids.
func (s *Session) stampDraftChildren(d *domain.DraftNote) {
	lines := make([]domain.ScriptLine, 0, len(d.ScriptLines))
	for _, l := range d.ScriptLines {
		if l.ID == "" {
			l.ID = s.deps.NewID()
		}
		lines = append(lines, l)
	}
	d.ScriptLines = lines

	atts := make([]domain.Attachment, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		if a.ID == "" {
			a.ID = s.deps.NewID()
		}
		atts = append(atts, a)
	}
	d.Attachments = atts
}

// ============================================================
// Settings
// ============================================================

// UpdateSettings replaces the settings wholesale. Team changes take effect
// on the next Load.
func (s *Session) UpdateSettings(ctx context.Context, st domain.AppSettings) (*domain.AppSettings, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.UpdateSettings")
	defer span.End()

	if err := validateSettings(&st); err != nil {
		return nil, err
	}

	members := make([]string, 0, len(st.TeamMembers))
	seen := map[string]bool{}
	for _, m := range st.TeamMembers {
		m = strings.TrimSpace(m)
		key := strings.ToLower(m)
		if seen[key] || strings.EqualFold(m, s.user.Username) {
			continue
		}
		seen[key] = true
		members = append(members, m)
	}
	st.TeamMembers = members
	normalizeSettings(&st)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneSettings(st)
	err := s.persist(ctx, domain.CollectionSettings, next)
	s.settings = next
	out := cloneSettings(next)
	return &out, err
}
