package events

import (
	"fmt"

	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterReadyEvent registers the ready event handler
func RegisterReadyEvent(client *discord.ExtendedClient) {
	prefix := client.CommandHandler.Prefix()
	client.EventHandler.OnReady(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info(fmt.Sprintf("📊 Conectado a %d servidores", len(r.Guilds)), "Ready")

		if err := s.UpdateGameStatus(0, statusText(prefix)); err != nil {
			logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
			return
		}
		logger.Debug("Estado del bot establecido correctamente", "Ready")
	})
}

func statusText(prefix string) string {
	return fmt.Sprintf("Moderating | %shelp", prefix)
}
