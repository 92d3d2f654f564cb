package moderation

import (
	"context"
	"fmt"
	"sync"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
)

// PolicyStore persists the retention policy between restarts.
type PolicyStore interface {
	// LoadRetention returns ok=false when nothing has been saved yet.
	LoadRetention(ctx context.Context) (models.RetentionPolicy, bool, error)
	SaveRetention(ctx context.Context, p models.RetentionPolicy) error
}

// Policy holds the live retention policy. It only changes through Update.
type Policy struct {
	mu      sync.RWMutex
	current models.RetentionPolicy
	store   PolicyStore
}

// NewPolicy starts from initial. store may be nil.
func NewPolicy(initial models.RetentionPolicy, store PolicyStore) *Policy {
	if initial.Validate() != nil {
		initial = models.DefaultRetentionPolicy()
	}
	return &Policy{current: initial, store: store}
}

// Load replaces the startup policy with the persisted one, if any.
func (p *Policy) Load(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	saved, ok, err := p.store.LoadRetention(ctx)
	if err != nil {
		return storeErr("load_policy", "", err)
	}
	if !ok {
		return nil
	}
	if err := saved.Validate(); err != nil {
		logger.Warn(fmt.Sprintf("Política de retención guardada inválida, se ignora: %v", err), "Policy")
		return nil
	}

	p.mu.Lock()
	p.current = saved
	p.mu.Unlock()
	return nil
}

// Get returns a copy of the current policy.
func (p *Policy) Get() models.RetentionPolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Update validates, persists and then applies np.
func (p *Policy) Update(ctx context.Context, np models.RetentionPolicy) error {
	if err := np.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if p.store != nil {
		if err := p.store.SaveRetention(ctx, np); err != nil {
			return storeErr("save_policy", "", err)
		}
	}

	p.mu.Lock()
	p.current = np
	p.mu.Unlock()

	logger.With(logger.Fields{"autoclear_days": np.MaxAgeDays, "notify_autoclear": np.NotifyOnSweep}).Info("Política de retención actualizada", "Policy")
	return nil
}
