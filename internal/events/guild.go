package events

import (
	"fmt"
	"time"

	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterGuildEvents logs when the bot is added to a server.
func RegisterGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if !isNewJoin(g.JoinedAt, time.Now()) {
			return
		}
		logger.With(logger.Fields{"guild": g.ID, "members": g.MemberCount}).
			Info(fmt.Sprintf("➕ Bot agregado a servidor: %s", g.Name), "Guild")
	})
}

// isNewJoin tells a real join apart from the GuildCreate replay sent on
// every connect.
func isNewJoin(joinedAt, now time.Time) bool {
	return !joinedAt.Before(now.Add(-10 * time.Second))
}
