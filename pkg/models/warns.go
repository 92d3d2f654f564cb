package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errores de validación
var (
	ErrEmptyUser       = errors.New("user is empty")
	ErrEmptyReason     = errors.New("reason is empty")
	ErrMissingTime     = errors.New("timestamp is missing")
	ErrFutureTimestamp = errors.New("timestamp is in the future")
	ErrInvalidMaxAge   = errors.New("autoclear_days must be at least 1")
)

// WarningRecord representa una advertencia individual. Es inmutable una vez creada.
type WarningRecord struct {
	ID        string    `bson:"_id" json:"id"`
	User      string    `bson:"user" json:"user"`
	Reason    string    `bson:"reason" json:"reason"`
	Moderator string    `bson:"moderator" json:"moderator,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"time"`
}

// Validate checks the record against the instant now.
func (w WarningRecord) Validate(now time.Time) error {
	if strings.TrimSpace(w.User) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(w.Reason) == "" {
		return ErrEmptyReason
	}
	if w.Timestamp.IsZero() {
		return ErrMissingTime
	}
	if w.Timestamp.After(now) {
		return fmt.Errorf("%w: %s", ErrFutureTimestamp, w.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Age returns how old the record is at now.
func (w WarningRecord) Age(now time.Time) time.Duration {
	return now.Sub(w.Timestamp)
}

// UserWarningLog agrupa las advertencias de un usuario en orden cronológico.
// Solo existe mientras tenga al menos un registro.
type UserWarningLog struct {
	User    string          `json:"user"`
	Records []WarningRecord `json:"records"`
}

// Last returns up to n of the most recent records, oldest first.
func (l UserWarningLog) Last(n int) []WarningRecord {
	if n <= 0 || len(l.Records) == 0 {
		return []WarningRecord{}
	}
	if len(l.Records) <= n {
		return l.Records
	}
	return l.Records[len(l.Records)-n:]
}

// ChannelRef is an opaque handle used to route replies back to where a
// ritual was opened. For the Discord adapter it is a channel ID.
type ChannelRef string

// PendingBan is an open ban-confirmation ritual. Epoch identifies the ritual
// instance so stale timers can recognize they no longer apply.
type PendingBan struct {
	User      string     `json:"user"`
	Initiator string     `json:"initiator"`
	OpenedAt  time.Time  `json:"openedAt"`
	Channel   ChannelRef `json:"channel"`
	Epoch     uint64     `json:"epoch"`
}

// RetentionPolicy controla la autolimpieza de advertencias.
type RetentionPolicy struct {
	MaxAgeDays    int  `bson:"autoclear_days" json:"autoclear_days"`
	NotifyOnSweep bool `bson:"notify_autoclear" json:"notify_autoclear"`
}

// DefaultRetentionPolicy mirrors the defaults of the bot settings file.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{MaxAgeDays: 30, NotifyOnSweep: true}
}

// Validate rejects horizons shorter than one day.
func (p RetentionPolicy) Validate() error {
	if p.MaxAgeDays < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxAge, p.MaxAgeDays)
	}
	return nil
}

// MaxAge returns the horizon as a duration.
func (p RetentionPolicy) MaxAge() time.Duration {
	return time.Duration(p.MaxAgeDays) * 24 * time.Hour
}

// NormalizeUser turns "@Alice", "<@123>" or "<@!123>" into a stable key.
func NormalizeUser(raw string) string {
	u := strings.TrimSpace(raw)
	if strings.HasPrefix(u, "<@") && strings.HasSuffix(u, ">") {
		u = strings.TrimSuffix(strings.TrimPrefix(u, "<@"), ">")
		u = strings.TrimPrefix(u, "!")
	}
	u = strings.TrimLeft(u, "@")
	return strings.ToLower(u)
}
