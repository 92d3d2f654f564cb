package mod

import (
	"fmt"

	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/logger"
)

func (h *handlers) createConfirmBanCommand() *discord.Command {
	return discord.NewCommand(
		"confirmban",
		"Confirm a pending ban",
		"mod",
		h.confirmBanHandler,
	).WithUsage("!confirmban @user").ModeratorOnly()
}

func (h *handlers) confirmBanHandler(ctx *discord.CommandContext) error {
	user := displayUser(ctx.Arg(0))
	if user == "" {
		return ctx.Reply("🔨 Usage: !confirmban <user>")
	}

	p, ok, err := h.svc.ConfirmBan(ctx.Ctx, user, actor(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return ctx.Reply(fmt.Sprintf("ℹ️ There is no pending ban for @%s.", user))
	}

	reason := fmt.Sprintf("Escalation confirmed by %s (opened by %s)", ctx.Author().ID, p.Initiator)
	if err := ctx.Session.GuildBanCreateWithReason(ctx.GuildID(), p.User, reason, 0); err != nil {
		logger.With(logger.Fields{"user": p.User, "guild": ctx.GuildID()}).
			Error(fmt.Sprintf("No se pudo ejecutar el baneo: %v", err), "Moderation")
		return ctx.Reply(fmt.Sprintf("❌ Ban for @%s was confirmed but could not be executed.", p.User))
	}

	return ctx.Reply(fmt.Sprintf("🔨 @%s has been banned.", p.User))
}
