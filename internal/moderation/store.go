package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/google/uuid"
)

// Backend persists warning records. Implementations only need to be safe for
// concurrent use across different users; the Store serializes per user.
type Backend interface {
	Append(ctx context.Context, rec models.WarningRecord) error
	// List returns the user's records oldest first, or an empty slice.
	List(ctx context.Context, user string) ([]models.WarningRecord, error)
	DeleteUser(ctx context.Context, user string) (int, error)
	// DeleteBefore removes records with a timestamp strictly before cutoff.
	DeleteBefore(ctx context.Context, user string, cutoff time.Time) (int, error)
	Users(ctx context.Context) ([]string, error)
	Total(ctx context.Context) (int, error)
}

// Store is the warning store: a Backend plus per-user serialization.
type Store struct {
	backend Backend
	locks   *keyLocks
	newID   func() string
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		locks:   newKeyLocks(),
		newID:   func() string { return uuid.New().String() },
	}
}

// UserTx exposes store operations for one user while its lock is held.
type UserTx struct {
	store *Store
	user  string
}

// User is the normalized user the transaction is bound to.
func (tx *UserTx) User() string { return tx.user }

// WithUser runs fn while holding the lock for user. Compound operations
// (append then count, count then escalate) use it to stay atomic.
func (s *Store) WithUser(ctx context.Context, user string, fn func(tx *UserTx) error) error {
	user = models.NormalizeUser(user)
	if user == "" {
		return fmt.Errorf("%w: user is empty", ErrInvalidArgument)
	}
	unlock := s.locks.Lock(user)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&UserTx{store: s, user: user})
}

// Append records a new warning stamped with now.
func (tx *UserTx) Append(ctx context.Context, moderator, reason string, now time.Time) (models.WarningRecord, error) {
	rec := models.WarningRecord{
		ID:        tx.store.newID(),
		User:      tx.user,
		Reason:    strings.TrimSpace(reason),
		Moderator: moderator,
		Timestamp: now,
	}
	if err := rec.Validate(now); err != nil {
		return models.WarningRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := tx.store.backend.Append(ctx, rec); err != nil {
		return models.WarningRecord{}, storeErr("append", tx.user, err)
	}
	return rec, nil
}

// AppendRecord stores an already built record, e.g. from a legacy import.
func (tx *UserTx) AppendRecord(ctx context.Context, rec models.WarningRecord, now time.Time) (models.WarningRecord, error) {
	rec.User = tx.user
	if rec.ID == "" {
		rec.ID = tx.store.newID()
	}
	if err := rec.Validate(now); err != nil {
		return models.WarningRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := tx.store.backend.Append(ctx, rec); err != nil {
		return models.WarningRecord{}, storeErr("append", tx.user, err)
	}
	return rec, nil
}

// List returns the user's records oldest first, never nil.
func (tx *UserTx) List(ctx context.Context) ([]models.WarningRecord, error) {
	recs, err := tx.store.backend.List(ctx, tx.user)
	if err != nil {
		return nil, storeErr("list", tx.user, err)
	}
	if recs == nil {
		recs = []models.WarningRecord{}
	}
	return recs, nil
}

// Count returns how many warnings the user has. It is len(List), so records
// the backend refuses to return are never counted.
func (tx *UserTx) Count(ctx context.Context) (int, error) {
	recs, err := tx.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Clear removes all of the user's warnings and returns how many there were.
func (tx *UserTx) Clear(ctx context.Context) (int, error) {
	n, err := tx.store.backend.DeleteUser(ctx, tx.user)
	if err != nil {
		return 0, storeErr("clear", tx.user, err)
	}
	return n, nil
}

// AddWarning appends a warning for user.
func (s *Store) AddWarning(ctx context.Context, user, moderator, reason string, now time.Time) (models.WarningRecord, error) {
	var rec models.WarningRecord
	err := s.WithUser(ctx, user, func(tx *UserTx) error {
		var err error
		rec, err = tx.Append(ctx, moderator, reason, now)
		return err
	})
	return rec, err
}

// ListWarnings returns the user's warnings oldest first.
func (s *Store) ListWarnings(ctx context.Context, user string) ([]models.WarningRecord, error) {
	var recs []models.WarningRecord
	err := s.WithUser(ctx, user, func(tx *UserTx) error {
		var err error
		recs, err = tx.List(ctx)
		return err
	})
	return recs, err
}

// CountWarnings returns len(ListWarnings(user)).
func (s *Store) CountWarnings(ctx context.Context, user string) (int, error) {
	var n int
	err := s.WithUser(ctx, user, func(tx *UserTx) error {
		var err error
		n, err = tx.Count(ctx)
		return err
	})
	return n, err
}

// ClearWarnings removes the user's log. Zero is not an error.
func (s *Store) ClearWarnings(ctx context.Context, user string) (int, error) {
	var n int
	err := s.WithUser(ctx, user, func(tx *UserTx) error {
		var err error
		n, err = tx.Clear(ctx)
		return err
	})
	return n, err
}

// TotalWarnings counts warnings across every user.
func (s *Store) TotalWarnings(ctx context.Context) (int, error) {
	n, err := s.backend.Total(ctx)
	if err != nil {
		return 0, storeErr("total", "", err)
	}
	return n, nil
}

// PruneOlderThan removes every record whose age at now strictly exceeds
// maxAge. Users for which skip returns true are left alone; skip runs under
// the user's lock. A failing user is logged, left out of the result and
// reported in the joined error once every other user has been processed.
func (s *Store) PruneOlderThan(ctx context.Context, maxAge time.Duration, now time.Time, skip func(user string) bool) (map[string]int, error) {
	users, err := s.backend.Users(ctx)
	if err != nil {
		return nil, storeErr("users", "", err)
	}

	cutoff := now.Add(-maxAge)
	removed := make(map[string]int)
	var errs []error

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var n int
		err := s.WithUser(ctx, user, func(tx *UserTx) error {
			if skip != nil && skip(tx.user) {
				return nil
			}
			var err error
			n, err = s.backend.DeleteBefore(ctx, tx.user, cutoff)
			return storeErr("prune", tx.user, err)
		})
		if err != nil {
			logger.With(logger.Fields{"user": user, "op": "prune"}).Error(fmt.Sprintf("Error limpiando advertencias: %v", err), "Store")
			errs = append(errs, err)
			continue
		}
		if n > 0 {
			removed[user] = n
		}
	}

	return removed, errors.Join(errs...)
}
