package mod

import (
	"fmt"

	"github.com/Defausha/warnbot/pkg/discord"
)

func (h *handlers) createWarnCommand() *discord.Command {
	return discord.NewCommand(
		"warn",
		"Issue a warning",
		"mod",
		h.warnHandler,
	).WithUsage("!warn @user reason").ModeratorOnly()
}

func (h *handlers) warnHandler(ctx *discord.CommandContext) error {
	user := displayUser(ctx.Arg(0))
	if user == "" || ctx.Rest == "" {
		return ctx.Reply("⚠️ Usage: !warn <user> <reason>")
	}

	res, err := h.svc.Warn(ctx.Ctx, actor(ctx), user, ctx.Rest, ctx.ChannelRef(), h.now())
	if err != nil {
		return err
	}

	return ctx.Reply(fmt.Sprintf("⚠️ @%s has been warned: %s (total: %d)", res.Record.User, res.Record.Reason, res.Total))
}
