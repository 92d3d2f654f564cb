package mod

import (
	"fmt"
	"strings"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/discord"
)

const timeLayout = "2006-01-02 15:04:05"

func (h *handlers) createWarningsCommand() *discord.Command {
	return discord.NewCommand(
		"warnings",
		"Show the latest warnings",
		"mod",
		h.warningsHandler,
	).WithUsage("!warnings @user")
}

// warningsHandler is open to everyone. Only a moderator's lookup can open
// a ban confirmation.
func (h *handlers) warningsHandler(ctx *discord.CommandContext) error {
	user := displayUser(ctx.Arg(0))
	if user == "" {
		return ctx.Reply("ℹ️ Usage: !warnings <user>")
	}

	listing, err := h.svc.ListForEscalationCheck(ctx.Ctx, user, actor(ctx), ctx.ChannelRef(), h.now())
	if err != nil {
		return err
	}
	return ctx.Reply(renderListing(listing))
}

func renderListing(l moderation.Listing) string {
	if l.Total == 0 {
		return fmt.Sprintf("✅ @%s has no warnings.", l.User)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Warnings for @%s (%d total):", l.User, l.Total)
	first := l.Total - len(l.Records) + 1
	for i, w := range l.Records {
		fmt.Fprintf(&b, "\n%d. %s (%s)", first+i, w.Reason, w.Timestamp.Format(timeLayout))
	}
	if !l.Escalation.Opened && l.Escalation.State == moderation.StateOpen {
		fmt.Fprintf(&b, "\n⏳ A ban confirmation for @%s is already pending.", l.User)
	}
	return b.String()
}
