package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Clients
// ============================================================

func (s *Session) AddClient(ctx context.Context, c domain.Client) (*domain.Client, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.AddClient")
	defer span.End()
	defer s.observe("clients.add", time.Now())

	if err := validateClient(&c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.deps.NewID()
	c.CreatedAt = s.now()
	c.Name = strings.TrimSpace(c.Name)

	next := append(append([]domain.Client(nil), s.clients...), c)
	err := s.persist(ctx, domain.CollectionClients, next)
	s.clients = next
	return &c, err
}

// UpdateClient replaces the client record, keeping its id and creation date.
func (s *Session) UpdateClient(ctx context.Context, id string, c domain.Client) (*domain.Client, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.UpdateClient")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", id))

	if err := validateClient(&c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.clientIndex(id)
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	c.ID = id
	c.CreatedAt = s.clients[idx].CreatedAt
	c.Name = strings.TrimSpace(c.Name)

	next := append([]domain.Client(nil), s.clients...)
	next[idx] = c
	err := s.persist(ctx, domain.CollectionClients, next)
	s.clients = next
	return &c, err
}

// ClientDeletionImpact describes what DeleteClient would cascade to.
func (s *Session) ClientDeletionImpact(id string) (*domain.ClientDeletionImpact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deletionImpactLocked(id)
}

func (s *Session) deletionImpactLocked(id string) (*domain.ClientDeletionImpact, error) {
	idx := s.clientIndex(id)
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	contractIDs := s.contractIDsOfClient(id)

	_, unlinked := s.unlinkContracts(s.jobs, contractIDs)

	impact := &domain.ClientDeletionImpact{
		ClientID:         id,
		ClientName:       s.clients[idx].Name,
		ContractsDeleted: len(contractIDs),
		JobsUnlinked:     unlinked,
	}
	impact.Message = fmt.Sprintf(
		"Excluir %q removerá %d contrato(s) e desvinculará %d job(s) ativo(s). Esta ação não pode ser desfeita.",
		impact.ClientName, impact.ContractsDeleted, impact.JobsUnlinked)
	return impact, nil
}

// DeleteClient hard-deletes a client after confirmation, removing its
// contracts and clearing job links to them. Without confirmation it only
// returns the impact inside *domain.ErrConfirmationRequired.
func (s *Session) DeleteClient(ctx context.Context, id string, confirmed bool) (*domain.ClientDeletionImpact, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.DeleteClient")
	defer span.End()
	span.SetAttributes(
		attribute.String("client.id", id),
		attribute.Bool("confirmed", confirmed),
	)
	defer s.observe("clients.delete", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	impact, err := s.deletionImpactLocked(id)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return impact, &domain.ErrConfirmationRequired{Message: impact.Message, Impact: impact}
	}

	contractIDs := s.contractIDsOfClient(id)

	contracts := make([]domain.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		if !contractIDs[c.ID] {
			contracts = append(contracts, c)
		}
	}
	jobs, _ := s.unlinkContracts(s.jobs, contractIDs)
	clients := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.ID != id {
			clients = append(clients, c)
		}
	}

	perr := firstErr(
		s.persistContracts(ctx, contracts),
		s.persistJobs(ctx, jobs),
		s.persist(ctx, domain.CollectionClients, clients),
	)
	s.contracts = contracts
	s.jobs = jobs
	s.clients = clients

	s.logger.Info("session: client deleted",
		zap.String("client_id", id),
		zap.Int("contracts_deleted", impact.ContractsDeleted),
		zap.Int("jobs_unlinked", impact.JobsUnlinked),
	)
	return impact, perr
}

func (s *Session) clientIndex(id string) int {
	for i, c := range s.clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) contractIDsOfClient(clientID string) map[string]bool {
	ids := map[string]bool{}
	for _, c := range s.contracts {
		if c.ClientID == clientID {
			ids[c.ID] = true
		}
	}
	return ids
}

// unlinkContracts returns a copy of jobs with links to the given contracts
// cleared on the user's active jobs, and how many were cleared. Trashed jobs
// keep the stale link until restored; teammates' jobs are not ours to write.
func (s *Session) unlinkContracts(jobs []domain.Job, contractIDs map[string]bool) ([]domain.Job, int) {
	next := append([]domain.Job(nil), jobs...)
	n := 0
	for i := range next {
		j := &next[i]
		if j.IsDeleted || j.OwnerID != s.user.ID {
			continue
		}
		if j.LinkedContractID != "" && contractIDs[j.LinkedContractID] {
			j.LinkedContractID = ""
			n++
		}
	}
	return next, n
}

// ============================================================
// Contracts
// ============================================================

func (s *Session) AddContract(ctx context.Context, c domain.Contract) (*domain.Contract, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.AddContract")
	defer span.End()

	if err := validateContract(&c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clientIndex(c.ClientID) < 0 {
		return nil, invalid("clientId", "Cliente não encontrado.")
	}
	c.ID = s.deps.NewID()
	c.CreatedAt = s.now()
	c.OwnerID = s.user.ID
	c.OwnerUsername = usernameOrUnknown(s.user.Username)

	next := append(append([]domain.Contract(nil), s.contracts...), c)
	err := s.persistContracts(ctx, next)
	s.contracts = next
	return &c, err
}

func (s *Session) UpdateContract(ctx context.Context, id string, c domain.Contract) (*domain.Contract, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.UpdateContract")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", id))

	if err := validateContract(&c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.contractIndex(id)
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "contrato", ID: id}
	}
	if s.clientIndex(c.ClientID) < 0 {
		return nil, invalid("clientId", "Cliente não encontrado.")
	}
	prev := s.contracts[idx]
	c.ID = id
	c.CreatedAt = prev.CreatedAt
	c.OwnerID = prev.OwnerID
	c.OwnerUsername = prev.OwnerUsername

	next := append([]domain.Contract(nil), s.contracts...)
	next[idx] = c
	err := s.persistContracts(ctx, next)
	s.contracts = next
	return &c, err
}

// DeleteContract removes the contract and clears job links to it.
func (s *Session) DeleteContract(ctx context.Context, id string) error {
	ctx, span := sessionTracer.Start(ctx, "Session.DeleteContract")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contractIndex(id) < 0 {
		return &domain.ErrNotFound{Resource: "contrato", ID: id}
	}
	contracts := make([]domain.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		if c.ID != id {
			contracts = append(contracts, c)
		}
	}
	jobs, _ := s.unlinkContracts(s.jobs, map[string]bool{id: true})

	perr := firstErr(
		s.persistContracts(ctx, contracts),
		s.persistJobs(ctx, jobs),
	)
	s.contracts = contracts
	s.jobs = jobs
	return perr
}

func (s *Session) contractIndex(id string) int {
	for i, c := range s.contracts {
		if c.ID == id {
			return i
		}
	}
	return -1
}
