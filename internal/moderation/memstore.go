package moderation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Defausha/warnbot/pkg/models"
)

// MemBackend keeps warnings in process memory. Used in tests and when the
// bot runs with storeBackend=memory.
type MemBackend struct {
	mu   sync.RWMutex
	Data map[string][]models.WarningRecord
}

func NewMemBackend() *MemBackend {
	return &MemBackend{
		Data: make(map[string][]models.WarningRecord),
	}
}

func (m *MemBackend) Append(ctx context.Context, rec models.WarningRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := append(m.Data[rec.User], rec)
	sort.SliceStable(v, func(i, j int) bool { return v[i].Timestamp.Before(v[j].Timestamp) })
	m.Data[rec.User] = v
	return nil
}

func (m *MemBackend) List(ctx context.Context, user string) ([]models.WarningRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.Data[user]
	if !ok {
		return []models.WarningRecord{}, nil
	}
	out := make([]models.WarningRecord, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemBackend) DeleteUser(ctx context.Context, user string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.Data[user])
	delete(m.Data, user)
	return n, nil
}

func (m *MemBackend) DeleteBefore(ctx context.Context, user string, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Data[user]
	if !ok {
		return 0, nil
	}
	kept := v[:0:0]
	for _, rec := range v {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(v) - len(kept)
	if len(kept) == 0 {
		delete(m.Data, user)
	} else {
		m.Data[user] = kept
	}
	return removed, nil
}

// Users returns every user with at least one record, sorted.
func (m *MemBackend) Users(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.Data))
	for u := range m.Data {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemBackend) Total(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, v := range m.Data {
		total += len(v)
	}
	return total, nil
}
