package utils

import (
	"github.com/Defausha/warnbot/pkg/discord"
)

var rulesParts = []string{
	"1. Please enjoy the stream with courtesy\nBe respectful and use polite language toward both the streamer and other viewers.",
	"2. Avoid spam or excessive repeated messages\nPlease refrain from posting the same comment repeatedly or sending meaningless messages in quick succession.",
	"3. Keep off-topic discussions to a minimum\nExcessive comments unrelated to the stream may disturb others, so please be considerate.",
	"4. No spoilers, please\nAvoid sharing spoilers about games, movies, or anime, as it may ruin the experience for others.",
	"5. Follow the instructions of moderators and the streamer\nTo ensure smooth stream management, please follow any directions given by the streamer or moderators.",
	"6. Maintain polite behavior\nAlways treat others with respect and speak kindly.",
}

func createRulesCommand() *discord.Command {
	return discord.NewCommand(
		"rules",
		"Chat rules",
		"utils",
		rulesHandler,
	).WithUsage("!rules")
}

// rulesHandler sends one message per rule.
func rulesHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyParts(rulesParts)
}
