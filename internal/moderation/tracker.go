package moderation

import (
	"sync"
	"time"

	apperrors "github.com/Defausha/warnbot/pkg/errors"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
)

const (
	// EscalationThreshold is the warning count that opens a ritual.
	EscalationThreshold = 3
	// ConfirmWindow is how long a moderator has to confirm a ban.
	ConfirmWindow = 2 * time.Minute
	// ReEligibleCooldown follows an expired ritual before a new one may open.
	ReEligibleCooldown = 10 * time.Minute
)

// RitualState is the escalation state of one user.
type RitualState int

const (
	StateNone RitualState = iota
	StateOpen
	StateCoolingDown
)

func (s RitualState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCoolingDown:
		return "cooling_down"
	default:
		return "none"
	}
}

type ritual struct {
	state   RitualState
	pending models.PendingBan
	timer   Timer
}

// TrackerOptions configures a Tracker. Zero values take the defaults.
type TrackerOptions struct {
	Clock    Clock
	Notifier Notifier
	Window   time.Duration
	Cooldown time.Duration
	// OnExpire runs after a ritual times out, outside the tracker lock.
	OnExpire func(models.PendingBan)
	// OnReEligible runs when the cool-down after an expiry ends.
	OnReEligible func(models.PendingBan)
}

// Tracker holds at most one ban-confirmation ritual per user. Every timer
// carries the epoch of the ritual that armed it; a timer whose epoch no
// longer matches does nothing.
type Tracker struct {
	mu       sync.Mutex
	clock    Clock
	notifier Notifier
	window   time.Duration
	cooldown time.Duration
	rituals  map[string]*ritual
	epoch    uint64

	onExpire     func(models.PendingBan)
	onReEligible func(models.PendingBan)
}

func NewTracker(opts TrackerOptions) *Tracker {
	t := &Tracker{
		clock:        opts.Clock,
		notifier:     opts.Notifier,
		window:       opts.Window,
		cooldown:     opts.Cooldown,
		rituals:      make(map[string]*ritual),
		onExpire:     opts.OnExpire,
		onReEligible: opts.OnReEligible,
	}
	if t.clock == nil {
		t.clock = RealClock()
	}
	if t.window <= 0 {
		t.window = ConfirmWindow
	}
	if t.cooldown <= 0 {
		t.cooldown = ReEligibleCooldown
	}
	return t
}

// TryOpen opens a ritual for user unless one exists in any state. When it
// does not open, it returns the current ritual and state untouched.
func (t *Tracker) TryOpen(user, initiator string, ref models.ChannelRef, now time.Time) (models.PendingBan, RitualState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.rituals[user]; ok {
		return r.pending, r.state, false
	}

	t.epoch++
	p := models.PendingBan{
		User:      user,
		Initiator: initiator,
		OpenedAt:  now,
		Channel:   ref,
		Epoch:     t.epoch,
	}
	r := &ritual{state: StateOpen, pending: p}
	epoch := p.Epoch
	r.timer = t.clock.AfterFunc(t.window, func() { t.expire(user, epoch) })
	t.rituals[user] = r
	openRituals.Inc()

	return p, StateOpen, true
}

// Confirm closes an open ritual. It fails for any other state, including a
// ritual whose timeout already won.
func (t *Tracker) Confirm(user, confirmer string) (models.PendingBan, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.rituals[user]
	if !ok || r.state != StateOpen {
		return models.PendingBan{}, false
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	delete(t.rituals, user)
	openRituals.Dec()
	return r.pending, true
}

// Cancel drops any ritual for user without notices.
func (t *Tracker) Cancel(user string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.rituals[user]
	if !ok {
		return false
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.state == StateOpen {
		openRituals.Dec()
	}
	delete(t.rituals, user)
	return true
}

// State returns the user's current state.
func (t *Tracker) State(user string) RitualState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.rituals[user]; ok {
		return r.state
	}
	return StateNone
}

// IsOpen reports whether a ban confirmation is waiting for user.
func (t *Tracker) IsOpen(user string) bool {
	return t.State(user) == StateOpen
}

// Pending returns the open ritual for user.
func (t *Tracker) Pending(user string) (models.PendingBan, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rituals[user]
	if !ok || r.state != StateOpen {
		return models.PendingBan{}, false
	}
	return r.pending, true
}

// OpenRituals lists every ritual currently waiting for confirmation.
func (t *Tracker) OpenRituals() []models.PendingBan {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.PendingBan, 0, len(t.rituals))
	for _, r := range t.rituals {
		if r.state == StateOpen {
			out = append(out, r.pending)
		}
	}
	return out
}

// Stop cancels every timer. Rituals in flight are lost.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for user, r := range t.rituals {
		if r.timer != nil {
			r.timer.Stop()
		}
		if r.state == StateOpen {
			openRituals.Dec()
		}
		delete(t.rituals, user)
	}
}

func (t *Tracker) expire(user string, epoch uint64) {
	defer apperrors.RecoverMiddleware()()

	t.mu.Lock()
	r, ok := t.rituals[user]
	if !ok || r.state != StateOpen || r.pending.Epoch != epoch {
		t.mu.Unlock()
		return
	}
	r.state = StateCoolingDown
	r.timer = t.clock.AfterFunc(t.cooldown, func() { t.reEligible(user, epoch) })
	p := r.pending
	openRituals.Dec()
	t.mu.Unlock()

	logger.With(logger.Fields{"user": user, "epoch": epoch}).Info("Confirmación de baneo expirada", "Escalation")
	notify(t.notifier, p.Channel, ritualExpiredNotice(user))
	if t.onExpire != nil {
		t.onExpire(p)
	}
}

func (t *Tracker) reEligible(user string, epoch uint64) {
	defer apperrors.RecoverMiddleware()()

	t.mu.Lock()
	r, ok := t.rituals[user]
	if !ok || r.state != StateCoolingDown || r.pending.Epoch != epoch {
		t.mu.Unlock()
		return
	}
	delete(t.rituals, user)
	p := r.pending
	t.mu.Unlock()

	notify(t.notifier, p.Channel, ritualReEligibleNotice(user))
	if t.onReEligible != nil {
		t.onReEligible(p)
	}
}
