package utils

import (
	"fmt"

	"github.com/Defausha/warnbot/pkg/discord"
)

func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Check the bot responds",
		"utils",
		pingHandler,
	).WithUsage("!ping")
}

func pingHandler(ctx *discord.CommandContext) error {
	if ctx.Client != nil {
		if latency := ctx.Client.Latency(); latency > 0 {
			return ctx.Reply(fmt.Sprintf("🏓 Pong! (%dms)", latency.Milliseconds()))
		}
	}
	return ctx.Reply("🏓 Pong!")
}
