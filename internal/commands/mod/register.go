// Package mod provides the moderation prefix commands. Each command lives
// in its own file and calls into the moderation service.
package mod

import (
	"context"
	"time"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/models"
)

// Moderation is the service surface the chat commands use.
type Moderation interface {
	Warn(ctx context.Context, mod moderation.Actor, user, reason string, ref models.ChannelRef, now time.Time) (moderation.WarnResult, error)
	ListForEscalationCheck(ctx context.Context, user string, requester moderation.Actor, ref models.ChannelRef, now time.Time) (moderation.Listing, error)
	ConfirmBan(ctx context.Context, user string, confirmer moderation.Actor) (models.PendingBan, bool, error)
	Clear(ctx context.Context, mod moderation.Actor, user string) (int, error)
	TotalWarnings(ctx context.Context) (int, error)
}

type handlers struct {
	svc Moderation
	now func() time.Time
}

// RegisterModCommands registers !warn, !warnings, !confirmban,
// !clearwarnings and !warncount.
func RegisterModCommands(client *discord.ExtendedClient, svc Moderation) {
	h := &handlers{svc: svc, now: time.Now}
	for _, cmd := range h.commands() {
		client.CommandHandler.RegisterCommand(cmd)
	}
}

func (h *handlers) commands() []*discord.Command {
	return []*discord.Command{
		h.createWarnCommand(),
		h.createWarningsCommand(),
		h.createConfirmBanCommand(),
		h.createClearWarningsCommand(),
		h.createWarnCountCommand(),
	}
}

func actor(ctx *discord.CommandContext) moderation.Actor {
	return moderation.Actor{ID: ctx.Author().ID, Moderator: ctx.IsModerator()}
}

// displayUser is the @-less form used in replies.
func displayUser(raw string) string {
	return models.NormalizeUser(raw)
}
