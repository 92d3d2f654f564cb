// Package moderation implements warning bookkeeping and ban escalation.
//
// The Service is the single entry point for chat commands, the HTTP API and
// MQTT handlers. It owns a Store (per-user serialized warning logs) and a
// Tracker (in-memory ban confirmation rituals). A Sweeper prunes old
// warnings independently, skipping users whose ritual is open.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/google/uuid"
)

// Actor is whoever calls into the service.
type Actor struct {
	ID        string
	Moderator bool
}

// Escalation describes the ritual state after an operation.
type Escalation struct {
	// Opened is true only for the call that created the ritual.
	Opened  bool
	State   RitualState
	Pending models.PendingBan
}

// WarnResult is returned by Warn.
type WarnResult struct {
	Record     models.WarningRecord
	Total      int
	Escalation Escalation
}

// Listing is returned by ListForEscalationCheck. Records holds at most the
// two most recent warnings; Total counts all of them.
type Listing struct {
	User       string
	Records    []models.WarningRecord
	Total      int
	Escalation Escalation
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Store    *Store
	Notifier Notifier
	Events   EventSink
	Clock    Clock
	// Window and Cooldown override ConfirmWindow and ReEligibleCooldown.
	Window   time.Duration
	Cooldown time.Duration
}

// Service is the moderation facade.
type Service struct {
	store    *Store
	tracker  *Tracker
	notifier Notifier
	events   EventSink
	clock    Clock
}

func NewService(opts ServiceOptions) *Service {
	s := &Service{
		store:    opts.Store,
		notifier: opts.Notifier,
		events:   opts.Events,
		clock:    opts.Clock,
	}
	if s.clock == nil {
		s.clock = RealClock()
	}
	if s.events == nil {
		s.events = nopSink{}
	}
	s.tracker = NewTracker(TrackerOptions{
		Clock:        s.clock,
		Notifier:     opts.Notifier,
		Window:       opts.Window,
		Cooldown:     opts.Cooldown,
		OnExpire:     s.handleExpired,
		OnReEligible: s.handleReEligible,
	})
	return s
}

// Tracker exposes the escalation tracker, mainly so the sweeper can skip
// users with an open ritual.
func (s *Service) Tracker() *Tracker { return s.tracker }

// Store exposes the warning store.
func (s *Service) Store() *Store { return s.store }

func opLog(op, user string, now time.Time) *logger.Entry {
	return logger.With(logger.Fields{"op": op, "user": user, "at": now.UTC().Format(time.RFC3339)})
}

// tryOpen must run under the user's lock.
func (s *Service) tryOpen(user, initiator string, ref models.ChannelRef, now time.Time) Escalation {
	p, state, opened := s.tracker.TryOpen(user, initiator, ref, now)
	return Escalation{Opened: opened, State: state, Pending: p}
}

func (s *Service) announceOpened(ctx context.Context, esc Escalation, total int) {
	if !esc.Opened {
		return
	}
	p := esc.Pending
	escalations.WithLabelValues("opened").Inc()
	opLog("escalate", p.User, p.OpenedAt).Warn(fmt.Sprintf("Confirmación de baneo abierta (epoch %d)", p.Epoch), "Moderation")
	s.events.Publish(ctx, Event{Kind: EventRitualOpened, User: p.User, Actor: p.Initiator, Count: total, At: p.OpenedAt})
	notify(s.notifier, p.Channel, ritualOpenedNotice(p.User, total))
}

// Warn records a warning and opens a ritual when the user reaches the
// threshold. Append, count and escalation happen under one user lock.
func (s *Service) Warn(ctx context.Context, mod Actor, user, reason string, ref models.ChannelRef, now time.Time) (WarnResult, error) {
	if !mod.Moderator {
		return WarnResult{}, ErrUnauthorized
	}
	if strings.TrimSpace(reason) == "" {
		return WarnResult{}, fmt.Errorf("%w: reason is empty", ErrInvalidArgument)
	}

	var res WarnResult
	err := s.store.WithUser(ctx, user, func(tx *UserTx) error {
		rec, err := tx.Append(ctx, mod.ID, reason, now)
		if err != nil {
			return err
		}
		res.Record = rec

		total, err := tx.Count(ctx)
		if err != nil {
			return err
		}
		res.Total = total

		if total >= EscalationThreshold {
			res.Escalation = s.tryOpen(tx.User(), mod.ID, ref, now)
		} else {
			res.Escalation.State = s.tracker.State(tx.User())
		}
		return nil
	})
	if err != nil {
		opLog("warn", models.NormalizeUser(user), now).Error(fmt.Sprintf("Error registrando advertencia: %v", err), "Moderation")
		return WarnResult{}, err
	}

	warningsAdded.Inc()
	opLog("warn", res.Record.User, now).With(logger.Fields{"moderator": mod.ID, "total": res.Total}).Info("Advertencia registrada", "Moderation")
	s.events.Publish(ctx, Event{Kind: EventWarningAdded, User: res.Record.User, Actor: mod.ID, Reason: res.Record.Reason, Count: res.Total, At: now})
	s.announceOpened(ctx, res.Escalation, res.Total)

	return res, nil
}

// ListForEscalationCheck returns the latest two warnings and the total.
// When a moderator lists a user at or above the threshold a ritual opens if
// none exists; other requesters only see the current state.
func (s *Service) ListForEscalationCheck(ctx context.Context, user string, requester Actor, ref models.ChannelRef, now time.Time) (Listing, error) {
	var out Listing
	err := s.store.WithUser(ctx, user, func(tx *UserTx) error {
		recs, err := tx.List(ctx)
		if err != nil {
			return err
		}
		log := models.UserWarningLog{User: tx.User(), Records: recs}
		out.User = tx.User()
		out.Total = len(recs)
		out.Records = log.Last(2)

		if out.Total >= EscalationThreshold && requester.Moderator {
			out.Escalation = s.tryOpen(tx.User(), requester.ID, ref, now)
		} else {
			out.Escalation.State = s.tracker.State(tx.User())
			out.Escalation.Pending, _ = s.tracker.Pending(tx.User())
		}
		return nil
	})
	if err != nil {
		opLog("list", models.NormalizeUser(user), now).Error(fmt.Sprintf("Error consultando advertencias: %v", err), "Moderation")
		return Listing{}, err
	}

	opLog("list", out.User, now).With(logger.Fields{"requester": requester.ID, "total": out.Total}).Debug("Advertencias consultadas", "Moderation")
	s.announceOpened(ctx, out.Escalation, out.Total)
	return out, nil
}

// Warnings returns the user's full warning list, oldest first.
func (s *Service) Warnings(ctx context.Context, user string) ([]models.WarningRecord, error) {
	return s.store.ListWarnings(ctx, user)
}

// ConfirmBan closes an open ritual. ok is false when nothing was pending,
// including when the timeout already fired. Warnings are kept.
func (s *Service) ConfirmBan(ctx context.Context, user string, confirmer Actor) (models.PendingBan, bool, error) {
	if !confirmer.Moderator {
		return models.PendingBan{}, false, ErrUnauthorized
	}
	user = models.NormalizeUser(user)
	if user == "" {
		return models.PendingBan{}, false, fmt.Errorf("%w: user is empty", ErrInvalidArgument)
	}

	p, ok := s.tracker.Confirm(user, confirmer.ID)
	now := s.clock.Now()
	if !ok {
		opLog("confirm", user, now).Debug("No hay confirmación de baneo pendiente", "Moderation")
		return models.PendingBan{}, false, nil
	}

	escalations.WithLabelValues("confirmed").Inc()
	opLog("confirm", user, now).With(logger.Fields{"confirmer": confirmer.ID, "epoch": p.Epoch}).Warn("Baneo confirmado", "Moderation")
	s.events.Publish(ctx, Event{Kind: EventRitualConfirmed, User: user, Actor: confirmer.ID, At: now})
	return p, true, nil
}

// Clear removes every warning of user. An open ritual loses its basis and
// is cancelled silently.
func (s *Service) Clear(ctx context.Context, mod Actor, user string) (int, error) {
	if !mod.Moderator {
		return 0, ErrUnauthorized
	}

	var n int
	var normalized string
	err := s.store.WithUser(ctx, user, func(tx *UserTx) error {
		normalized = tx.User()
		var err error
		n, err = tx.Clear(ctx)
		if err != nil {
			return err
		}
		if n > 0 && s.tracker.IsOpen(tx.User()) {
			s.tracker.Cancel(tx.User())
			escalations.WithLabelValues("cancelled").Inc()
		}
		return nil
	})
	now := s.clock.Now()
	if err != nil {
		opLog("clear", models.NormalizeUser(user), now).Error(fmt.Sprintf("Error eliminando advertencias: %v", err), "Moderation")
		return 0, err
	}

	if n > 0 {
		warningsCleared.Add(float64(n))
		s.events.Publish(ctx, Event{Kind: EventWarningsCleared, User: normalized, Actor: mod.ID, Count: n, At: now})
	}
	opLog("clear", normalized, now).With(logger.Fields{"moderator": mod.ID, "removed": n}).Info("Advertencias eliminadas", "Moderation")
	return n, nil
}

// TotalWarnings counts warnings across all users.
func (s *Service) TotalWarnings(ctx context.Context) (int, error) {
	return s.store.TotalWarnings(ctx)
}

// importNamespace seeds the IDs of imported records.
var importNamespace = uuid.MustParse("5b0c7f6e-2f43-4c1e-9a57-8d1f0e6b3a21")

// importID derives a record ID from its content, so importing the same file
// twice yields the same IDs.
func importID(rec models.WarningRecord) string {
	key := strings.Join([]string{
		models.NormalizeUser(rec.User),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Moderator,
		rec.Reason,
	}, "\x00")
	return uuid.NewSHA1(importNamespace, []byte(key)).String()
}

// Import appends pre-existing records, keeping their timestamps. Records
// already in the store are skipped and not counted.
func (s *Service) Import(ctx context.Context, recs []models.WarningRecord, now time.Time) (int, error) {
	imported, skipped := 0, 0
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = importID(rec)
		}
		err := s.store.WithUser(ctx, rec.User, func(tx *UserTx) error {
			existing, err := tx.List(ctx)
			if err != nil {
				return err
			}
			for _, e := range existing {
				if e.ID == rec.ID {
					skipped++
					return nil
				}
			}
			if _, err := tx.AppendRecord(ctx, rec, now); err != nil {
				return err
			}
			imported++
			return nil
		})
		if err != nil {
			return imported, err
		}
	}
	opLog("import", "", now).With(logger.Fields{"imported": imported, "skipped": skipped}).Success("Importación completada", "Moderation")
	return imported, nil
}

func (s *Service) handleExpired(p models.PendingBan) {
	escalations.WithLabelValues("expired").Inc()
	s.events.Publish(context.Background(), Event{Kind: EventRitualExpired, User: p.User, Actor: p.Initiator, At: s.clock.Now()})
}

func (s *Service) handleReEligible(p models.PendingBan) {
	s.events.Publish(context.Background(), Event{Kind: EventRitualReEligible, User: p.User, At: s.clock.Now()})
}
