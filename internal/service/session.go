// Package service provides the business logic layer (use cases): the
// per-user Session that owns the studio's collections, the notifications
// derived from them, authentication and the AI assistant.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/studio-manager-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var sessionTracer = otel.Tracer("service/session")

// UserDirectory resolves usernames of the global user directory.
type UserDirectory interface {
	ListUsers(ctx context.Context) []domain.User
}

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Store     port.DataStore
	Flags     port.FlagStore
	Directory UserDirectory
	Bulkhead  *resilience.Bulkhead
	Location  *time.Location
	Logger    *zap.Logger
	Metrics   *observability.Metrics

	// AIMinInterval is the minimum spacing between AI requests of a session.
	AIMinInterval time.Duration

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

func (d *SessionDeps) withDefaults() SessionDeps {
	out := *d
	if out.Location == nil {
		out.Location = time.UTC
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.NewID == nil {
		out.NewID = uuid.NewString
	}
	if out.Bulkhead == nil {
		out.Bulkhead = resilience.NewBulkhead(4)
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	if out.Metrics == nil {
		out.Metrics = observability.NewMetrics()
	}
	return out
}

// Session is the single source of truth for one authenticated user's jobs,
// clients, contracts, drafts and settings. It is created at login and
// discarded at logout.
//
// Every mutation computes the new collection, persists the user's owned
// subset, then commits it in memory. A failed write still commits and is
// reported as *domain.ErrPersistence: memory stays authoritative until the
// next Load.
type Session struct {
	deps        SessionDeps
	user        domain.User
	accessToken string
	logger      *zap.Logger
	limiter     *rate.Limiter

	// readMu serializes read-set updates in the flag store.
	readMu sync.Mutex

	mu        sync.RWMutex
	status    domain.AuthStatus
	jobs      []domain.Job
	clients   []domain.Client
	contracts []domain.Contract
	drafts    []domain.DraftNote
	settings  domain.AppSettings
}

// NewSession creates an unloaded session. accessToken is the hosted
// provider's token, kept for sign-out.
func NewSession(user domain.User, accessToken string, deps SessionDeps) *Session {
	d := deps.withDefaults()
	interval := d.AIMinInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	s := &Session{
		deps:        d,
		user:        user,
		accessToken: accessToken,
		logger:      d.Logger.With(zap.String("user_id", user.ID)),
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		status:      domain.AuthLoading,
	}
	s.resetLocked()
	if user.ID == "" {
		s.status = domain.AuthUnauthenticated
	}
	return s
}

// resetLocked clears every collection to its empty default.
func (s *Session) resetLocked() {
	s.jobs = []domain.Job{}
	s.clients = []domain.Client{}
	s.contracts = []domain.Contract{}
	s.drafts = []domain.DraftNote{}
	s.settings = domain.DefaultSettings()
}

// ============================================================
// Read accessors (copies, safe to hand to callers)
// ============================================================

func (s *Session) User() domain.User { return s.user }

// AccessToken is the hosted provider token of this session.
func (s *Session) AccessToken() string { return s.accessToken }

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := domain.SessionState{Status: s.status}
	if s.status == domain.AuthAuthenticated {
		u := s.user
		st.User = &u
	}
	return st
}

// Jobs returns every job visible to the user, soft-deleted ones included.
func (s *Session) Jobs() []domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Job(nil), s.jobs...)
}

func (s *Session) Clients() []domain.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Client(nil), s.clients...)
}

func (s *Session) Contracts() []domain.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Contract(nil), s.contracts...)
}

func (s *Session) DraftNotes() []domain.DraftNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DraftNote(nil), s.drafts...)
}

func (s *Session) Settings() domain.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.settings)
}

// ReserveAI consumes the session's AI allowance or reports how long to wait.
func (s *Session) ReserveAI() error {
	r := s.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return &domain.ErrRateLimited{RetryAfter: d}
	}
	return nil
}

// ============================================================
// Persistence helpers
// ============================================================

func (s *Session) now() string { return toISO(s.deps.Now()) }

func (s *Session) ownedJobs(jobs []domain.Job) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.OwnerID == s.user.ID {
			out = append(out, j)
		}
	}
	return out
}

func (s *Session) ownedContracts(contracts []domain.Contract) []domain.Contract {
	out := make([]domain.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.OwnerID == s.user.ID {
			out = append(out, c)
		}
	}
	return out
}

// persist writes one collection and turns a failure into ErrPersistence.
func (s *Session) persist(ctx context.Context, collection string, data any) error {
	if err := s.deps.Store.Set(ctx, s.user.ID, collection, data); err != nil {
		s.deps.Metrics.IncrPersistenceFailure(collection)
		s.logger.Error("session: persist failed, keeping in-memory state",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return &domain.ErrPersistence{Collection: collection, Err: err}
	}
	return nil
}

func (s *Session) persistJobs(ctx context.Context, jobs []domain.Job) error {
	return s.persist(ctx, domain.CollectionJobs, s.ownedJobs(jobs))
}

func (s *Session) persistContracts(ctx context.Context, contracts []domain.Contract) error {
	return s.persist(ctx, domain.CollectionContracts, s.ownedContracts(contracts))
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) observe(op string, start time.Time) {
	s.deps.Metrics.RecordRequestDuration(op, time.Since(start))
}

func cloneSettings(in domain.AppSettings) domain.AppSettings {
	out := in
	out.TeamMembers = append([]string{}, in.TeamMembers...)
	out.KanbanColumnNames = make(map[string]string, len(in.KanbanColumnNames))
	for k, v := range in.KanbanColumnNames {
		out.KanbanColumnNames[k] = v
	}
	return out
}
