package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Notifications: derived on every read, never stored
// ============================================================

const (
	deadlineWindowDays = 2
	inactiveLongDays   = 365
	inactiveShortDays  = 60
)

func readNotificationsKey(userID string) string { return "readNotifications:" + userID }

// DeriveNotifications computes the notification list from jobs and clients.
// today is a calendar day (time of day ignored); dates stored with an offset
// are read in loc. A notification is read when its id is in readIDs.
//
// Order: overdue, deadline, birthday, client-1yr, client-60d; within a type
// the source collection order is kept.
func DeriveNotifications(jobs []domain.Job, clients []domain.Client, now time.Time, loc *time.Location, readIDs map[string]bool) []domain.Notification {
	if loc == nil {
		loc = time.UTC
	}
	day := today(now, loc)

	var overdue, deadline, birthday, longInactive, shortInactive []domain.Notification
	mk := func(id, typ, msg, link, entity string) domain.Notification {
		return domain.Notification{ID: id, Type: typ, Message: msg, LinkTo: link, EntityID: entity, IsRead: readIDs[id]}
	}

	for _, j := range jobs {
		if j.IsDeleted || j.Status == domain.StatusPago {
			continue
		}
		due, ok := civilDate(j.Deadline, loc)
		if !ok {
			continue
		}
		diff := daysBetween(day, due)
		switch {
		case diff < 0:
			n := -diff
			overdue = append(overdue, mk("overdue-"+j.ID, domain.NotificationOverdue,
				fmt.Sprintf("O job %q está atrasado há %d %s.", j.Name, n, plural(n, "dia", "dias")),
				"/jobs/"+j.ID, j.ID))
		case diff <= deadlineWindowDays:
			deadline = append(deadline, mk("deadline-"+j.ID, domain.NotificationDeadline,
				fmt.Sprintf("O prazo do job %q vence %s.", j.Name, dueWhen(diff)),
				"/jobs/"+j.ID, j.ID))
		}
	}

	lastJob := map[string]time.Time{}
	for _, j := range jobs {
		if j.IsDeleted || j.ClientID == "" {
			continue
		}
		created, ok := civilDate(j.CreatedAt, loc)
		if !ok {
			continue
		}
		if prev, seen := lastJob[j.ClientID]; !seen || created.After(prev) {
			lastJob[j.ClientID] = created
		}
	}

	for _, c := range clients {
		if c.Birthday != "" {
			if b, ok := civilDate(c.Birthday, time.UTC); ok && b.Month() == day.Month() && b.Day() == day.Day() {
				birthday = append(birthday, mk(fmt.Sprintf("birthday-%s-%d", c.ID, day.Year()), domain.NotificationBirthday,
					fmt.Sprintf("Hoje é aniversário de %s! Que tal enviar uma mensagem?", c.Name),
					"/clients/"+c.ID, c.ID))
			}
		}

		last, ok := lastJob[c.ID]
		if !ok {
			continue
		}
		since := daysBetween(last, day)
		switch {
		case since > inactiveLongDays:
			longInactive = append(longInactive, mk("client-1yr-"+c.ID, domain.NotificationClient1Year,
				fmt.Sprintf("%s não fecha um job há mais de 1 ano.", c.Name),
				"/clients/"+c.ID, c.ID))
		case since > inactiveShortDays:
			shortInactive = append(shortInactive, mk("client-60d-"+c.ID, domain.NotificationClient60d,
				fmt.Sprintf("%s não fecha um job há mais de 60 dias.", c.Name),
				"/clients/"+c.ID, c.ID))
		}
	}

	out := make([]domain.Notification, 0, len(overdue)+len(deadline)+len(birthday)+len(longInactive)+len(shortInactive))
	out = append(out, overdue...)
	out = append(out, deadline...)
	out = append(out, birthday...)
	out = append(out, longInactive...)
	out = append(out, shortInactive...)
	return out
}

func dueWhen(diff int) string {
	switch diff {
	case 0:
		return "hoje"
	case 1:
		return "amanhã"
	default:
		return fmt.Sprintf("em %d dias", diff)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// ============================================================
// Session integration: read set lives in the local flag store
// ============================================================

// Notifications derives the current notifications for the session.
func (s *Session) Notifications(ctx context.Context) []domain.Notification {
	ctx, span := sessionTracer.Start(ctx, "Session.Notifications")
	defer span.End()

	read := s.readIDs(ctx)

	s.mu.RLock()
	list := DeriveNotifications(s.jobs, s.clients, s.deps.Now(), s.deps.Location, read)
	s.mu.RUnlock()

	counts := map[string]int{}
	for _, n := range list {
		counts[n.Type]++
	}
	for typ, n := range counts {
		s.deps.Metrics.IncrNotifications(typ, n)
	}
	return list
}

// MarkNotificationsRead adds ids to the read set.
func (s *Session) MarkNotificationsRead(ctx context.Context, ids []string) error {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	read := s.readIDs(ctx)
	for _, id := range ids {
		if id != "" {
			read[id] = true
		}
	}
	return s.saveReadIDs(ctx, read)
}

// MarkAllNotificationsRead marks every currently derived notification read.
func (s *Session) MarkAllNotificationsRead(ctx context.Context) error {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	read := s.readIDs(ctx)
	s.mu.RLock()
	list := DeriveNotifications(s.jobs, s.clients, s.deps.Now(), s.deps.Location, read)
	s.mu.RUnlock()
	for _, n := range list {
		read[n.ID] = true
	}
	return s.saveReadIDs(ctx, read)
}

func (s *Session) readIDs(ctx context.Context) map[string]bool {
	read := map[string]bool{}
	if s.deps.Flags == nil {
		return read
	}
	raw, ok, err := s.deps.Flags.GetFlag(ctx, readNotificationsKey(s.user.ID))
	if err != nil {
		s.logger.Warn("session: read notifications unavailable", zap.Error(err))
		return read
	}
	if !ok {
		return read
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("session: read notifications corrupt, starting over", zap.Error(err))
		return read
	}
	for _, id := range ids {
		read[id] = true
	}
	return read
}

func (s *Session) saveReadIDs(ctx context.Context, read map[string]bool) error {
	if s.deps.Flags == nil {
		return nil
	}
	ids := make([]string, 0, len(read))
	for id := range read {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	body, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.deps.Flags.SetFlag(ctx, readNotificationsKey(s.user.ID), string(body))
}
