package utils

import (
	"fmt"
	"strings"

	"github.com/Defausha/warnbot/pkg/discord"
)

func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"List all commands",
		"utils",
		helpHandler,
	).WithUsage("!help").ModeratorOnly()
}

// helpHandler lists every registered command. Long lists are split by the
// sender.
func helpHandler(ctx *discord.CommandContext) error {
	return ctx.Reply(renderHelp(ctx.Client.CommandHandler.Sorted(), ctx.Client.CommandHandler.Prefix()))
}

func renderHelp(cmds []*discord.Command, prefix string) string {
	lines := []string{"📘 Commands:"}
	for _, c := range cmds {
		usage := c.Usage
		if usage == "" {
			usage = prefix + c.Name
		}
		line := fmt.Sprintf("%s — %s", usage, c.Description)
		if c.ModOnly {
			line += " (moderator)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
