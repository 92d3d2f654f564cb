// Package events registers the gateway event handlers that sit next to the
// command router: readiness, guild joins and mention hints.
package events

import (
	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/logger"
)

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	RegisterReadyEvent(client)
	RegisterGuildEvents(client)
	RegisterMessageEvents(client)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
