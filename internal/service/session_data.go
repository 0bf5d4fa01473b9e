package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Export / Import
// ============================================================

// Export builds the backup file: the user's owned jobs and contracts plus
// clients, drafts and settings. The same data is written back first so the
// file never runs ahead of storage.
func (s *Session) Export(ctx context.Context) (*domain.ExportDocument, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.Export")
	defer span.End()
	defer s.observe("data.export", time.Now())

	s.mu.RLock()
	settings := cloneSettings(s.settings)
	data := domain.ExportData{
		Jobs:       s.ownedJobs(s.jobs),
		Clients:    append([]domain.Client{}, s.clients...),
		Contracts:  s.ownedContracts(s.contracts),
		DraftNotes: append([]domain.DraftNote{}, s.drafts...),
		Settings:   &settings,
	}
	s.mu.RUnlock()

	err := s.persistAll(ctx, &data)

	return &domain.ExportDocument{
		Version:    domain.ExportVersion,
		ExportedAt: s.now(),
		Data:       data,
	}, err
}

// Import replaces the user's data with a backup. Jobs and contracts are
// re-stamped with the current user as owner. Teammates' jobs in memory are
// kept. After a successful write the session reloads from storage.
func (s *Session) Import(ctx context.Context, raw []byte) error {
	ctx, span := sessionTracer.Start(ctx, "Session.Import")
	defer span.End()
	defer s.observe("data.import", time.Now())

	data, err := s.decodeImport(raw)
	if err != nil {
		return err
	}

	if perr := s.persistAll(ctx, data); perr != nil {
		s.mu.Lock()
		others := make([]domain.Job, 0, len(s.jobs))
		for _, j := range s.jobs {
			if j.OwnerID != s.user.ID {
				others = append(others, j)
			}
		}
		s.jobs = append(data.Jobs, others...)
		s.contracts = data.Contracts
		s.clients = data.Clients
		s.drafts = data.DraftNotes
		s.settings = cloneSettings(*data.Settings)
		s.mu.Unlock()
		return perr
	}

	s.logger.Info("session: backup imported, reloading",
		zap.Int("jobs", len(data.Jobs)),
		zap.Int("clients", len(data.Clients)),
	)
	return s.Load(ctx)
}

func (s *Session) decodeImport(raw []byte) (*domain.ExportData, error) {
	var doc domain.ImportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &domain.ErrImportInvalid{}
	}

	var missing []string
	for _, key := range []string{"jobs", "clients", "settings"} {
		if v, ok := doc.Data[key]; !ok || isJSONNull(v) {
			missing = append(missing, "data."+key)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ErrImportInvalid{Missing: missing}
	}

	data := &domain.ExportData{}
	settings := domain.DefaultSettings()
	if err := decodeImportKey(doc.Data, "jobs", &data.Jobs); err != nil {
		return nil, err
	}
	if err := decodeImportKey(doc.Data, "clients", &data.Clients); err != nil {
		return nil, err
	}
	if err := decodeImportKey(doc.Data, "contracts", &data.Contracts); err != nil {
		return nil, err
	}
	if err := decodeImportKey(doc.Data, "draftNotes", &data.DraftNotes); err != nil {
		return nil, err
	}
	if err := decodeImportKey(doc.Data, "settings", &settings); err != nil {
		return nil, err
	}
	normalizeSettings(&settings)
	data.Settings = &settings

	owner := usernameOrUnknown(s.user.Username)
	if data.Jobs == nil {
		data.Jobs = []domain.Job{}
	}
	for i := range data.Jobs {
		data.Jobs[i].OwnerID = s.user.ID
		data.Jobs[i].OwnerUsername = owner
		normalizeJob(&data.Jobs[i])
	}
	if data.Contracts == nil {
		data.Contracts = []domain.Contract{}
	}
	for i := range data.Contracts {
		data.Contracts[i].OwnerID = s.user.ID
		data.Contracts[i].OwnerUsername = owner
	}
	if data.Clients == nil {
		data.Clients = []domain.Client{}
	}
	if data.DraftNotes == nil {
		data.DraftNotes = []domain.DraftNote{}
	}
	for i := range data.DraftNotes {
		s.normalizeDraft(&data.DraftNotes[i])
	}
	return data, nil
}

func decodeImportKey(data map[string]json.RawMessage, key string, out any) error {
	v, ok := data[key]
	if !ok || isJSONNull(v) {
		return nil
	}
	if err := json.Unmarshal(v, out); err != nil {
		return &domain.ErrImportInvalid{Missing: []string{fmt.Sprintf("data.%s (formato inválido)", key)}}
	}
	return nil
}

func isJSONNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

// persistAll writes the five user collections, reporting the first failure.
func (s *Session) persistAll(ctx context.Context, data *domain.ExportData) error {
	return firstErr(
		s.persistJobs(ctx, data.Jobs),
		s.persist(ctx, domain.CollectionClients, data.Clients),
		s.persistContracts(ctx, data.Contracts),
		s.persist(ctx, domain.CollectionDraftNotes, data.DraftNotes),
		s.persist(ctx, domain.CollectionSettings, data.Settings),
	)
}
