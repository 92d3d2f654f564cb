package mod

import (
	"fmt"

	"github.com/Defausha/warnbot/pkg/discord"
)

func (h *handlers) createWarnCountCommand() *discord.Command {
	return discord.NewCommand(
		"warncount",
		"Total warnings on record",
		"mod",
		h.warnCountHandler,
	).WithUsage("!warncount").ModeratorOnly()
}

func (h *handlers) warnCountHandler(ctx *discord.CommandContext) error {
	total, err := h.svc.TotalWarnings(ctx.Ctx)
	if err != nil {
		return err
	}
	return ctx.Reply(fmt.Sprintf("📊 Warnings on record: %d", total))
}
