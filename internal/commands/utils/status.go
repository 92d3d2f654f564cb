package utils

import (
	"github.com/Defausha/warnbot/pkg/discord"
)

func createStatusCommand(render func() string) *discord.Command {
	return discord.NewCommand(
		"status",
		"Bot and storage status",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.Reply(render())
		},
	).WithUsage("!status").ModeratorOnly()
}
