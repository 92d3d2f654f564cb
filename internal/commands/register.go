// Package commands wires every prefix command into the Discord client.
// Commands are organized in subdirectories by category.
package commands

import (
	"github.com/Defausha/warnbot/internal/commands/mod"
	"github.com/Defausha/warnbot/internal/commands/utils"
	"github.com/Defausha/warnbot/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, svc mod.Moderation, opts utils.Options) {
	utils.RegisterUtilsCommands(client, opts)
	mod.RegisterModCommands(client, svc)
}
