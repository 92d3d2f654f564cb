package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Defausha/warnbot/pkg/errors"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
)

// SweepInterval is the time between retention sweeps.
const SweepInterval = 24 * time.Hour

// SweeperOptions configures a Sweeper.
type SweeperOptions struct {
	Store    *Store
	Policy   *Policy
	Notifier Notifier
	// Broadcast is where the "sweep completed" notice goes.
	Broadcast models.ChannelRef
	// Skip protects users from pruning, normally Tracker.IsOpen.
	Skip     func(user string) bool
	Events   EventSink
	Interval time.Duration
	Clock    Clock
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Removed map[string]int
	Total   int
}

// Sweeper prunes warnings older than the retention horizon once per interval.
type Sweeper struct {
	opts     SweeperOptions
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweeper(opts SweeperOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = SweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Events == nil {
		opts.Events = nopSink{}
	}
	return &Sweeper{
		opts:     opts,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop in the background. The first sweep happens
// one full interval after Start.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		logger.System(fmt.Sprintf("Autolimpieza programada cada %v", s.opts.Interval), "Sweeper")
		for {
			select {
			case <-ticker.C:
				s.runGuarded(ctx)
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Sweeper) runGuarded(ctx context.Context) {
	defer apperrors.RecoverMiddleware()()
	if _, err := s.RunOnce(ctx); err != nil {
		logger.Error(fmt.Sprintf("Autolimpieza con errores: %v", err), "Sweeper")
	}
}

// RunOnce performs a single sweep. Users that failed are reported in the
// returned error and retried on the next sweep; the rest are still pruned.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	// the policy may have been changed by another process
	if err := s.opts.Policy.Load(ctx); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo recargar la política de retención, se usa la actual: %v", err), "Sweeper")
	}
	policy := s.opts.Policy.Get()
	now := s.opts.Clock.Now()

	removed, err := s.opts.Store.PruneOlderThan(ctx, policy.MaxAge(), now, s.opts.Skip)
	if removed == nil {
		// listing users failed, nothing was touched
		sweepFailures.Inc()
		return SweepResult{Removed: map[string]int{}}, err
	}
	if err != nil {
		sweepFailures.Inc()
	}

	total := 0
	for user, n := range removed {
		total += n
		logger.With(logger.Fields{"user": user, "removed": n}).Info("Advertencias antiguas eliminadas", "Sweeper")
	}
	warningsPruned.Add(float64(total))

	logger.Success(fmt.Sprintf("Autolimpieza completada: %d advertencias eliminadas de %d usuarios", total, len(removed)), "Sweeper")

	s.opts.Events.Publish(ctx, Event{Kind: EventSweepCompleted, Count: total, At: now})
	if policy.NotifyOnSweep {
		notify(s.opts.Notifier, s.opts.Broadcast, SweepNotice(total))
	}

	return SweepResult{Removed: removed, Total: total}, err
}
