package mod

import (
	"fmt"

	"github.com/Defausha/warnbot/pkg/discord"
)

func (h *handlers) createClearWarningsCommand() *discord.Command {
	return discord.NewCommand(
		"clearwarnings",
		"Remove all warnings",
		"mod",
		h.clearWarningsHandler,
	).WithUsage("!clearwarnings @user").ModeratorOnly()
}

func (h *handlers) clearWarningsHandler(ctx *discord.CommandContext) error {
	user := displayUser(ctx.Arg(0))
	if user == "" {
		return ctx.Reply("🧹 Usage: !clearwarnings <user>")
	}

	n, err := h.svc.Clear(ctx.Ctx, actor(ctx), user)
	if err != nil {
		return err
	}
	if n == 0 {
		return ctx.Reply(fmt.Sprintf("✅ @%s already has no warnings.", user))
	}
	return ctx.Reply(fmt.Sprintf("🧹 Warnings for @%s removed.", user))
}
