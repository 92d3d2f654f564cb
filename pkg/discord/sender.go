package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/models"
	"golang.org/x/time/rate"
)

// Sender delivers chat messages split into chunks, one message per chunk,
// paced by a shared limiter so bursts never flood the channel.
type Sender struct {
	session Session
	limiter *rate.Limiter
	limit   int
}

// NewSender paces messages one per pacing interval. A non-positive pacing
// disables pacing.
func NewSender(s Session, pacing time.Duration) *Sender {
	lim := rate.NewLimiter(rate.Inf, 1)
	if pacing > 0 {
		lim = rate.NewLimiter(rate.Every(pacing), 1)
	}
	return &Sender{session: s, limiter: lim, limit: MessageLimit}
}

// Send delivers text to channelID. It stops at the first failed chunk.
func (s *Sender) Send(ctx context.Context, channelID, text string) error {
	for _, chunk := range SplitMessage(text, s.limit) {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("send to %s: %w", channelID, err)
		}
	}
	return nil
}

// SendAll delivers each part as its own paced message.
func (s *Sender) SendAll(ctx context.Context, channelID string, parts []string) error {
	for _, p := range parts {
		if err := s.Send(ctx, channelID, p); err != nil {
			return err
		}
	}
	return nil
}

// Notify implements moderation.Notifier on top of the sender.
func (s *Sender) Notify(ctx context.Context, ref models.ChannelRef, text string) error {
	return s.Send(ctx, string(ref), text)
}

var _ moderation.Notifier = (*Sender)(nil)
