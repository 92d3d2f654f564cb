package mqtt

import (
	"context"
	"fmt"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/logger"
)

// Publisher is the part of the communicator the event feed needs.
type Publisher interface {
	Publish(topic string, payload interface{}) error
	Topic(parts ...string) string
}

// EventPublisher forwards moderation events to <prefix>/events/<kind>.
type EventPublisher struct {
	pub Publisher
}

func NewEventPublisher(pub Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

// Publish never fails the caller; broker errors are only logged.
func (p *EventPublisher) Publish(ctx context.Context, ev moderation.Event) {
	topic := p.pub.Topic("events", string(ev.Kind))
	if err := p.pub.Publish(topic, ev); err != nil {
		logger.With(logger.Fields{"topic": topic, "user": ev.User}).
			Warn(fmt.Sprintf("No se pudo publicar el evento: %v", err), "MQTT")
	}
}
