package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Load: fetch every collection for the user and visible teammates
// ============================================================

type jobOwner struct {
	id       string
	username string
	self     bool
}

// Load replaces the in-memory state with what storage holds. Any failure
// leaves the session with empty defaults.
func (s *Session) Load(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "Session.Load")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", s.user.ID))
	defer s.observe("session.load", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user.ID == "" {
		s.resetLocked()
		s.status = domain.AuthUnauthenticated
		return nil
	}

	s.status = domain.AuthLoading
	if err := s.loadLocked(ctx); err != nil {
		s.logger.Error("session: load failed, starting empty", zap.Error(err))
		s.resetLocked()
		s.status = domain.AuthAuthenticated
		return err
	}
	s.status = domain.AuthAuthenticated
	return nil
}

func (s *Session) loadLocked(ctx context.Context) error {
	store := s.deps.Store

	// 1. user directory, used to resolve declared team members
	var users []domain.User
	if s.deps.Directory != nil {
		users = s.deps.Directory.ListUsers(ctx)
	}

	// 2. settings merged over defaults
	settings := domain.DefaultSettings()
	store.Get(ctx, s.user.ID, domain.CollectionSettings, &settings)
	normalizeSettings(&settings)

	// 3. jobs of the user and every resolvable team member, in parallel
	owners := s.resolveOwners(settings.TeamMembers, users)
	perOwner := make([][]domain.Job, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	for i, owner := range owners {
		g.Go(func() error {
			if err := s.deps.Bulkhead.Acquire(gctx); err != nil {
				return fmt.Errorf("load jobs of %s: %w", owner.id, err)
			}
			defer s.deps.Bulkhead.Release()

			var raw []domain.Job
			store.Get(gctx, owner.id, domain.CollectionJobs, &raw)
			perOwner[i] = s.normalizeOwnerJobs(raw, owner)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	jobs := []domain.Job{}
	ownedJobCount := 0
	for i, list := range perOwner {
		if owners[i].self {
			ownedJobCount = len(list)
		}
		jobs = append(jobs, list...)
	}

	// 4. the user's own collections
	var clients []domain.Client
	store.Get(ctx, s.user.ID, domain.CollectionClients, &clients)
	var contracts []domain.Contract
	store.Get(ctx, s.user.ID, domain.CollectionContracts, &contracts)
	var drafts []domain.DraftNote
	store.Get(ctx, s.user.ID, domain.CollectionDraftNotes, &drafts)

	if clients == nil {
		clients = []domain.Client{}
	}
	ownerName := usernameOrUnknown(s.user.Username)
	for i := range contracts {
		contracts[i].OwnerID = s.user.ID
		contracts[i].OwnerUsername = ownerName
	}
	if contracts == nil {
		contracts = []domain.Contract{}
	}

	// 5. fresh account: seed the sample dataset
	if len(clients) == 0 && len(drafts) == 0 && settings.UserName == "" && ownedJobCount == 0 {
		seed := s.sampleData()
		clients = seed.Clients
		contracts = seed.Contracts
		drafts = seed.DraftNotes
		jobs = append(seed.Jobs, jobs...)
		s.logger.Info("session: new account seeded with sample data",
			zap.Int("clients", len(clients)),
			zap.Int("jobs", len(seed.Jobs)),
		)
		// seeding is best effort; a failed write reseeds on the next load
		_ = firstErr(
			s.persist(ctx, domain.CollectionClients, clients),
			s.persistJobs(ctx, jobs),
			s.persistContracts(ctx, contracts),
			s.persist(ctx, domain.CollectionDraftNotes, drafts),
		)
	}

	// 6. draft defaults and legacy migration
	if drafts == nil {
		drafts = []domain.DraftNote{}
	}
	for i := range drafts {
		s.normalizeDraft(&drafts[i])
	}

	// 7. commit
	s.jobs = jobs
	s.clients = clients
	s.contracts = contracts
	s.drafts = drafts
	s.settings = settings

	s.logger.Info("session: loaded",
		zap.Int("jobs", len(jobs)),
		zap.Int("clients", len(clients)),
		zap.Int("contracts", len(contracts)),
		zap.Int("drafts", len(drafts)),
		zap.Int("team_owners", len(owners)-1),
	)
	return nil
}

// resolveOwners maps the declared team usernames to directory accounts.
// The user always comes first; unknown usernames are skipped.
func (s *Session) resolveOwners(team []string, users []domain.User) []jobOwner {
	owners := []jobOwner{{id: s.user.ID, username: usernameOrUnknown(s.user.Username), self: true}}
	seen := map[string]bool{s.user.ID: true}

	for _, member := range team {
		u, ok := findUserByUsername(users, member)
		if !ok {
			s.logger.Warn("session: team member not in directory", zap.String("username", member))
			continue
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		owners = append(owners, jobOwner{id: u.ID, username: usernameOrUnknown(u.Username)})
	}
	return owners
}

// normalizeOwnerJobs stamps ownership from the document the jobs came from and
// fills missing lists. Teammates only contribute jobs shared with the team.
func (s *Session) normalizeOwnerJobs(raw []domain.Job, owner jobOwner) []domain.Job {
	out := make([]domain.Job, 0, len(raw))
	for _, j := range raw {
		if !owner.self && !j.IsTeamJob {
			continue
		}
		j.OwnerID = owner.id
		j.OwnerUsername = owner.username
		normalizeJob(&j)
		out = append(out, j)
	}
	return out
}

func normalizeJob(j *domain.Job) {
	if j.ObservationsLog == nil {
		j.ObservationsLog = []domain.ObservationEntry{}
	}
	if j.CloudLinks == nil {
		j.CloudLinks = []string{}
	}
	if j.LegacyCloudLink != "" {
		if !containsString(j.CloudLinks, j.LegacyCloudLink) {
			j.CloudLinks = append(j.CloudLinks, j.LegacyCloudLink)
		}
		j.LegacyCloudLink = ""
	}
	if j.Payments == nil {
		j.Payments = []domain.Payment{}
	}
	if j.Tasks == nil {
		j.Tasks = []domain.Task{}
	}
	if j.LinkedDraftIDs == nil {
		j.LinkedDraftIDs = []string{}
	}
	if j.Status == "" {
		j.Status = domain.StatusBriefing
	}
}

// normalizeDraft fills missing lists and moves legacy content-only scripts
// into a single scene.
func (s *Session) normalizeDraft(d *domain.DraftNote) {
	if d.Type == "" {
		d.Type = domain.DraftText
		if len(d.ScriptLines) > 0 {
			d.Type = domain.DraftScript
		}
	}
	if d.Attachments == nil {
		d.Attachments = []domain.Attachment{}
	}
	if len(d.ScriptLines) == 0 {
		d.ScriptLines = []domain.ScriptLine{}
		if d.Type == domain.DraftScript && strings.TrimSpace(d.Content) != "" {
			d.ScriptLines = []domain.ScriptLine{{
				ID:          s.deps.NewID(),
				Scene:       "Cena 1",
				Description: d.Content,
				Duration:    0,
			}}
		}
	}
	if d.UpdatedAt == "" {
		d.UpdatedAt = d.CreatedAt
	}
}

func normalizeSettings(st *domain.AppSettings) {
	def := domain.DefaultSettings()
	if st.Theme == "" {
		st.Theme = def.Theme
	}
	if st.AccentColor == "" {
		st.AccentColor = def.AccentColor
	}
	if st.TeamMembers == nil {
		st.TeamMembers = []string{}
	}
	if st.KanbanColumnNames == nil {
		st.KanbanColumnNames = map[string]string{}
	}
}

func usernameOrUnknown(username string) string {
	if strings.TrimSpace(username) == "" {
		return domain.UnknownOwnerUsername
	}
	return username
}

func findUserByUsername(users []domain.User, username string) (domain.User, bool) {
	username = strings.TrimSpace(username)
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return domain.User{}, false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
