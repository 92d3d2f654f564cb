package moderation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Defausha/warnbot/pkg/models"
)

// fakeClock only moves when Advance is called. Due timers fire
// synchronously, in order, on the goroutine calling Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	fired   bool
	stopped bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

// active counts timers that have neither fired nor been stopped.
func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type notice struct {
	ref  models.ChannelRef
	text string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, ref models.ChannelRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{ref: ref, text: text})
	return n.err
}

func (n *recordingNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notice, len(n.notices))
	copy(out, n.notices)
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

var errBackendDown = errors.New("backend down")

// failingBackend fails selected operations for selected users.
type failingBackend struct {
	*MemBackend
	failPrune  map[string]bool
	failAppend bool
	failUsers  bool
}

func (f *failingBackend) Append(ctx context.Context, rec models.WarningRecord) error {
	if f.failAppend {
		return errBackendDown
	}
	return f.MemBackend.Append(ctx, rec)
}

func (f *failingBackend) DeleteBefore(ctx context.Context, user string, cutoff time.Time) (int, error) {
	if f.failPrune[user] {
		return 0, errBackendDown
	}
	return f.MemBackend.DeleteBefore(ctx, user, cutoff)
}

func (f *failingBackend) Users(ctx context.Context) ([]string, error) {
	if f.failUsers {
		return nil, errBackendDown
	}
	return f.MemBackend.Users(ctx)
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var moderatorActor = Actor{ID: "mod1", Moderator: true}

func seed(mem *MemBackend, user string, ages ...time.Duration) {
	for i, age := range ages {
		mem.Append(context.Background(), models.WarningRecord{
			ID:        user + "-" + string(rune('a'+i)),
			User:      user,
			Reason:    "spam",
			Timestamp: testNow.Add(-age),
		})
	}
}

type fixture struct {
	mem      *MemBackend
	store    *Store
	clock    *fakeClock
	notifier *recordingNotifier
	sink     *recordingSink
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		mem:      NewMemBackend(),
		clock:    newFakeClock(testNow),
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
	}
	f.store = NewStore(f.mem)
	f.svc = NewService(ServiceOptions{
		Store:    f.store,
		Notifier: f.notifier,
		Events:   f.sink,
		Clock:    f.clock,
	})
	return f
}
