package utils

import (
	"github.com/Defausha/warnbot/pkg/discord"
)

func createSocialsCommand(text string) *discord.Command {
	return discord.NewCommand(
		"socials",
		"Social media links",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.Reply(text)
		},
	).WithUsage("!socials")
}
