package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// recurrenceSuffix is stripped from the name of the job spawned by recurrence.
const recurrenceSuffix = "(Mês Seguinte)"

// ============================================================
// Jobs
// ============================================================

// AddJob creates a job owned by the user. Identity, timestamps, ownership
// and history lists are always generated here.
func (s *Session) AddJob(ctx context.Context, in domain.JobInput) (*domain.Job, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.AddJob")
	defer span.End()
	defer s.observe("jobs.add", time.Now())

	if err := validateJobInput(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := domain.Job{
		ID:        s.deps.NewID(),
		CreatedAt: s.now(),
		IsDeleted: false,
		OwnerID:   s.user.ID,

		ObservationsLog: []domain.ObservationEntry{},
		Payments:        []domain.Payment{},
		Tasks:           []domain.Task{},
		LinkedDraftIDs:  []string{},
	}
	job.OwnerUsername = usernameOrUnknown(s.user.Username)
	s.applyJobInput(&job, &in, false)
	if job.Status == "" {
		job.Status = domain.StatusBriefing
	}

	next := append(append([]domain.Job(nil), s.jobs...), job)
	err := s.persistJobs(ctx, next)
	s.jobs = next

	span.SetAttributes(attribute.String("job.id", job.ID))
	return &job, err
}

// UpdateJob replaces the caller-editable fields of an owned job. Moving a
// recurring job into Pago spawns next month's copy in the same write.
func (s *Session) UpdateJob(ctx context.Context, id string, in domain.JobInput) (*domain.Job, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.UpdateJob")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id))
	defer s.observe("jobs.update", time.Now())

	if err := validateJobInput(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ownedJobIndex(id)
	if err != nil {
		return nil, err
	}

	prev := s.jobs[idx]
	updated := prev
	s.applyJobInput(&updated, &in, true)
	if updated.Status == "" {
		updated.Status = prev.Status
	}

	next := append([]domain.Job(nil), s.jobs...)
	next[idx] = updated

	if prev.Status != domain.StatusPago && updated.Status == domain.StatusPago && updated.IsRecurring {
		spawned, rerr := s.nextOccurrence(updated)
		if rerr != nil {
			s.logger.Warn("session: recurrence skipped, deadline unreadable",
				zap.String("job_id", id), zap.Error(rerr))
		} else {
			next = append(next, spawned)
			s.logger.Info("session: recurring job spawned",
				zap.String("job_id", id),
				zap.String("new_job_id", spawned.ID),
				zap.String("deadline", spawned.Deadline),
			)
		}
	}

	perr := s.persistJobs(ctx, next)
	s.jobs = next
	return &updated, perr
}

// nextOccurrence copies a paid recurring job one calendar month ahead.
func (s *Session) nextOccurrence(j domain.Job) (domain.Job, error) {
	deadline, err := addOneMonth(j.Deadline)
	if err != nil {
		return domain.Job{}, err
	}
	n := j
	n.ID = s.deps.NewID()
	n.CreatedAt = s.now()
	n.Deadline = deadline
	n.Status = domain.StatusBriefing
	n.IsDeleted = false
	n.Name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(j.Name), recurrenceSuffix))
	n.Payments = []domain.Payment{}
	n.Tasks = []domain.Task{}
	n.FinancialTasks = nil
	n.ObservationsLog = []domain.ObservationEntry{}
	n.LinkedDraftIDs = []string{}
	n.CloudLinks = append([]string{}, j.CloudLinks...)
	return n, nil
}

// DeleteJob moves a job to the trash.
func (s *Session) DeleteJob(ctx context.Context, id string) error {
	return s.setDeleted(ctx, "Session.DeleteJob", id, true)
}

// RestoreJob brings a job back from the trash. A link to a contract deleted
// while the job was trashed is cleared.
func (s *Session) RestoreJob(ctx context.Context, id string) error {
	return s.setDeleted(ctx, "Session.RestoreJob", id, false)
}

func (s *Session) setDeleted(ctx context.Context, op, id string, deleted bool) error {
	ctx, span := sessionTracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ownedJobIndex(id)
	if err != nil {
		return err
	}
	next := append([]domain.Job(nil), s.jobs...)
	next[idx].IsDeleted = deleted
	if !deleted && next[idx].LinkedContractID != "" && s.contractIndex(next[idx].LinkedContractID) < 0 {
		next[idx].LinkedContractID = ""
	}

	perr := s.persistJobs(ctx, next)
	s.jobs = next
	return perr
}

// PermanentlyDeleteJob removes the job from the collection.
func (s *Session) PermanentlyDeleteJob(ctx context.Context, id string) error {
	ctx, span := sessionTracer.Start(ctx, "Session.PermanentlyDeleteJob")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedJobIndex(id); err != nil {
		return err
	}
	next := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.ID != id {
			next = append(next, j)
		}
	}

	perr := s.persistJobs(ctx, next)
	s.jobs = next
	return perr
}

// ============================================================
// Payments
// ============================================================

// AddPayment records an installment on an owned job.
func (s *Session) AddPayment(ctx context.Context, jobID string, p domain.Payment) (*domain.Job, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.AddPayment")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	if err := validatePayment(&p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ownedJobIndex(jobID)
	if err != nil {
		return nil, err
	}
	p.ID = s.deps.NewID()
	if p.Date == "" {
		p.Date = s.now()
	}

	next := append([]domain.Job(nil), s.jobs...)
	job := next[idx]
	job.Payments = append(append([]domain.Payment{}, job.Payments...), p)
	next[idx] = job

	perr := s.persistJobs(ctx, next)
	s.jobs = next
	return &job, perr
}

// RemovePayment deletes one installment.
func (s *Session) RemovePayment(ctx context.Context, jobID, paymentID string) (*domain.Job, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.RemovePayment")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ownedJobIndex(jobID)
	if err != nil {
		return nil, err
	}

	next := append([]domain.Job(nil), s.jobs...)
	job := next[idx]
	payments := make([]domain.Payment, 0, len(job.Payments))
	found := false
	for _, p := range job.Payments {
		if p.ID == paymentID {
			found = true
			continue
		}
		payments = append(payments, p)
	}
	if !found {
		return nil, &domain.ErrNotFound{Resource: "pagamento", ID: paymentID}
	}
	job.Payments = payments
	next[idx] = job

	perr := s.persistJobs(ctx, next)
	s.jobs = next
	return &job, perr
}

// ============================================================
// helpers
// ============================================================

// ownedJobIndex finds a job the user may change. Teammates' jobs are
// visible but read-only here.
func (s *Session) ownedJobIndex(id string) (int, error) {
	for i, j := range s.jobs {
		if j.ID != id {
			continue
		}
		if j.OwnerID != s.user.ID {
			return -1, &domain.ErrForbidden{Action: "alterar job de outro membro da equipe"}
		}
		return i, nil
	}
	return -1, &domain.ErrNotFound{Resource: "job", ID: id}
}

// applyJobInput copies the caller-editable fields. Lists owned by the
// session are only taken from updates.
func (s *Session) applyJobInput(j *domain.Job, in *domain.JobInput, update bool) {
	j.Name = strings.TrimSpace(in.Name)
	j.ClientID = in.ClientID
	j.ServiceType = in.ServiceType
	j.CustomServiceType = in.CustomServiceType
	if in.ServiceType != domain.ServiceOther {
		j.CustomServiceType = ""
	}
	j.Value = in.Value
	j.Cost = in.Cost
	j.Deadline = in.Deadline
	j.RecordingDate = in.RecordingDate
	j.Status = in.Status
	j.CloudLinks = trimmedLinks(in.CloudLinks)
	j.Notes = in.Notes
	j.IsRecurring = in.IsRecurring
	j.CreateCalendarEvent = in.CreateCalendarEvent
	j.LinkedContractID = in.LinkedContractID
	j.IsTeamJob = in.IsTeamJob

	j.FinancialTasks = nil
	for _, ft := range in.FinancialTasks {
		if ft.ID == "" {
			ft.ID = s.deps.NewID()
		}
		j.FinancialTasks = append(j.FinancialTasks, ft)
	}

	if !update {
		return
	}
	if in.Tasks != nil {
		tasks := make([]domain.Task, 0, len(in.Tasks))
		for _, t := range in.Tasks {
			if t.ID == "" {
				t.ID = s.deps.NewID()
			}
			tasks = append(tasks, t)
		}
		j.Tasks = tasks
	}
	if in.LinkedDraftIDs != nil {
		j.LinkedDraftIDs = append([]string{}, in.LinkedDraftIDs...)
	}
}

func trimmedLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
