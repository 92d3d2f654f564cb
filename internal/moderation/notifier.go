package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
)

// Notifier posts a text message to a channel.
type Notifier interface {
	Notify(ctx context.Context, ref models.ChannelRef, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ref models.ChannelRef, text string) error

func (f NotifierFunc) Notify(ctx context.Context, ref models.ChannelRef, text string) error {
	return f(ctx, ref, text)
}

const notifyTimeout = 10 * time.Second

// notify is best effort: failures are logged and swallowed.
func notify(n Notifier, ref models.ChannelRef, text string) {
	if n == nil || ref == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := n.Notify(ctx, ref, text); err != nil {
		logger.With(logger.Fields{"channel": string(ref)}).Warn(fmt.Sprintf("No se pudo enviar la notificación: %v", err), "Notifier")
	}
}
