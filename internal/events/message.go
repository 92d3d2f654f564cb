package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterMessageEvents answers bare mentions of the bot with a hint.
// Prefixed commands are routed by the client itself.
func RegisterMessageEvents(client *discord.ExtendedClient) {
	prefix := client.CommandHandler.Prefix()
	client.EventHandler.RegisterEvent(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if s.State == nil || s.State.User == nil {
			return
		}
		if strings.HasPrefix(m.Content, prefix) || !mentionsOnly(m, s.State.User.ID) {
			return
		}
		if err := client.Sender.Send(context.Background(), m.ChannelID, mentionHint(prefix)); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo responder a la mención: %v", err), "Message")
		}
	})
}

// mentionsOnly reports whether m is a human message mentioning selfID.
func mentionsOnly(m *discordgo.MessageCreate, selfID string) bool {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == selfID {
			return true
		}
	}
	return false
}

func mentionHint(prefix string) string {
	return fmt.Sprintf("👋 Hi! Moderators can type %shelp to see my commands.", prefix)
}
