package moderation

import (
	"context"
	"time"
)

// EventKind names a moderation event.
type EventKind string

const (
	EventWarningAdded     EventKind = "warning_added"
	EventWarningsCleared  EventKind = "warnings_cleared"
	EventRitualOpened     EventKind = "ritual_opened"
	EventRitualConfirmed  EventKind = "ritual_confirmed"
	EventRitualExpired    EventKind = "ritual_expired"
	EventRitualReEligible EventKind = "ritual_reeligible"
	EventSweepCompleted   EventKind = "sweep_completed"
)

// Event is published to external feeds (MQTT, websocket) after a change.
type Event struct {
	Kind   EventKind `json:"kind"`
	User   string    `json:"user,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Count  int       `json:"count"`
	At     time.Time `json:"at"`
}

// EventSink receives moderation events. Publish must not block for long.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, ev)
		}
	}
}
