// Package utils provides the general purpose prefix commands.
package utils

import (
	"github.com/Defausha/warnbot/pkg/discord"
)

// Options feeds text and status into the utility commands.
type Options struct {
	// Socials is the text of !socials. Empty disables the command.
	Socials string
	// Status renders the body of !status.
	Status func() string
}

// RegisterUtilsCommands registers !ping, !rules, !help and, when
// configured, !socials and !status.
func RegisterUtilsCommands(client *discord.ExtendedClient, opts Options) {
	client.CommandHandler.RegisterCommand(createPingCommand())
	client.CommandHandler.RegisterCommand(createRulesCommand())
	client.CommandHandler.RegisterCommand(createHelpCommand())

	if opts.Socials != "" {
		client.CommandHandler.RegisterCommand(createSocialsCommand(opts.Socials))
	}
	if opts.Status != nil {
		client.CommandHandler.RegisterCommand(createStatusCommand(opts.Status))
	}
}
