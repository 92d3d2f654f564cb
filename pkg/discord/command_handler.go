package discord

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Defausha/warnbot/pkg/errors"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// ApologyMessage is sent when a command fails unexpectedly.
const ApologyMessage = "⚠️ Something went wrong, please try again later."

// commandTimeout bounds a single command, pacing included.
const commandTimeout = 2 * time.Minute

// CommandHandler routes prefixed chat messages to registered commands.
type CommandHandler struct {
	client *ExtendedClient
	prefix string
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient, prefix string) *CommandHandler {
	if prefix == "" {
		prefix = "!"
	}
	return &CommandHandler{client: client, prefix: prefix}
}

// Prefix returns the command prefix, e.g. "!".
func (ch *CommandHandler) Prefix() string { return ch.prefix }

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)
	logger.Debug("Comando registrado: "+ch.prefix+cmd.Name, "CommandHandler")
}

// Sorted returns the registered commands ordered by category and name.
func (ch *CommandHandler) Sorted() []*Command {
	all := ch.client.Commands.All()
	out := make([]*Command, 0, len(all))
	for _, c := range all {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// HandleMessage runs the command in m, if any. Messages from bots and from
// the bot itself are ignored.
func (ch *CommandHandler) HandleMessage(s Session, m *discordgo.MessageCreate, selfID string) {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return
	}

	name, args, rest, ok := parseCommand(ch.prefix, m.Content)
	if !ok {
		return
	}
	cmd, found := ch.client.Commands.Get(name)
	if !found {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cc := &CommandContext{
		Ctx:     ctx,
		Session: s,
		Message: m,
		Client:  ch.client,
		Sender:  ch.client.Sender,
		Args:    args,
		Rest:    rest,
	}
	ch.Execute(cc, cmd)
}

// Execute runs cmd, enforcing ModOnly. Errors and panics are logged and
// answered with a generic apology.
func (ch *CommandHandler) Execute(cc *CommandContext, cmd *Command) {
	if cmd.ModOnly && !cc.IsModerator() {
		return
	}

	log := logger.With(logger.Fields{
		"command": cmd.Name,
		"author":  cc.Author().ID,
		"channel": cc.Message.ChannelID,
	})

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				if h := errors.Get(); h != nil {
					h.HandlePanic(r)
				}
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return cmd.Run(cc)
	}()
	if err == nil {
		return
	}

	log.Error(fmt.Sprintf("Error ejecutando comando: %v", err), "CommandHandler")
	if sendErr := cc.Reply(ApologyMessage); sendErr != nil {
		log.Warn(fmt.Sprintf("No se pudo enviar la disculpa: %v", sendErr), "CommandHandler")
	}
}
