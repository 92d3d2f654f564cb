package moderation

import (
	"context"
	"testing"

	"github.com/Defausha/warnbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPolicyStore struct {
	saved   *models.RetentionPolicy
	saveErr error
	loadErr error
}

func (m *memPolicyStore) LoadRetention(ctx context.Context) (models.RetentionPolicy, bool, error) {
	if m.loadErr != nil {
		return models.RetentionPolicy{}, false, m.loadErr
	}
	if m.saved == nil {
		return models.RetentionPolicy{}, false, nil
	}
	return *m.saved, true, nil
}

func (m *memPolicyStore) SaveRetention(ctx context.Context, p models.RetentionPolicy) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &p
	return nil
}

func TestPolicyLoadOverridesStartup(t *testing.T) {
	store := &memPolicyStore{saved: &models.RetentionPolicy{MaxAgeDays: 7, NotifyOnSweep: false}}
	p := NewPolicy(models.DefaultRetentionPolicy(), store)

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, models.RetentionPolicy{MaxAgeDays: 7}, p.Get())
}

func TestPolicyLoadIgnoresInvalidSaved(t *testing.T) {
	store := &memPolicyStore{saved: &models.RetentionPolicy{MaxAgeDays: 0}}
	p := NewPolicy(models.DefaultRetentionPolicy(), store)

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, models.DefaultRetentionPolicy(), p.Get())
}

func TestPolicyUpdate(t *testing.T) {
	ctx := context.Background()
	store := &memPolicyStore{}
	p := NewPolicy(models.DefaultRetentionPolicy(), store)

	err := p.Update(ctx, models.RetentionPolicy{MaxAgeDays: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Nil(t, store.saved)

	require.NoError(t, p.Update(ctx, models.RetentionPolicy{MaxAgeDays: 14, NotifyOnSweep: true}))
	assert.Equal(t, 14, p.Get().MaxAgeDays)
	require.NotNil(t, store.saved)
	assert.Equal(t, 14, store.saved.MaxAgeDays)

	store.saveErr = errBackendDown
	err = p.Update(ctx, models.RetentionPolicy{MaxAgeDays: 60})
	assert.True(t, IsStoreError(err))
	assert.Equal(t, 14, p.Get().MaxAgeDays, "failed save leaves the live policy unchanged")
}

func TestNewPolicyRejectsInvalidStartup(t *testing.T) {
	p := NewPolicy(models.RetentionPolicy{MaxAgeDays: 0, NotifyOnSweep: false}, nil)
	assert.Equal(t, models.DefaultRetentionPolicy(), p.Get())
	assert.NoError(t, p.Load(context.Background()))
}
