package discord

import (
	"context"
	"strings"

	"github.com/Defausha/warnbot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// CommandContext provides context for command execution
type CommandContext struct {
	Ctx     context.Context
	Session Session
	Message *discordgo.MessageCreate
	Client  *ExtendedClient
	Sender  *Sender
	// Args are the whitespace separated words after the command name.
	Args []string
	// Rest is everything after the first argument, untrimmed of inner
	// spacing. It carries free-text reasons.
	Rest string

	moderator *bool
}

// Command represents a chat prefix command
type Command struct {
	Name        string
	Description string
	Usage       string
	Category    string
	ModOnly     bool
	Run         CommandRunFunc
}

// CommandRunFunc is the function type for command execution
type CommandRunFunc func(ctx *CommandContext) error

// NewCommand creates a new Command with required fields
func NewCommand(name, description, category string, run CommandRunFunc) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Run:         run,
	}
}

// WithUsage sets the usage line shown by help and on bad input.
func (c *Command) WithUsage(usage string) *Command {
	c.Usage = usage
	return c
}

// ModeratorOnly hides the command from non-moderators. They get no reply.
func (c *Command) ModeratorOnly() *Command {
	c.ModOnly = true
	return c
}

// Reply sends content to the channel the command came from.
func (ctx *CommandContext) Reply(content string) error {
	return ctx.Sender.Send(ctx.Ctx, ctx.Message.ChannelID, content)
}

// ReplyParts sends each part as a separate paced message.
func (ctx *CommandContext) ReplyParts(parts []string) error {
	return ctx.Sender.SendAll(ctx.Ctx, ctx.Message.ChannelID, parts)
}

// Author returns the user who sent the command.
func (ctx *CommandContext) Author() *discordgo.User {
	return ctx.Message.Author
}

// IsModerator reports whether the author holds moderator permissions in
// the channel. The lookup is done once per command.
func (ctx *CommandContext) IsModerator() bool {
	if ctx.moderator == nil {
		ok := IsModerator(ctx.Session, ctx.Message.Author.ID, ctx.Message.ChannelID)
		ctx.moderator = &ok
	}
	return *ctx.moderator
}

// ChannelRef routes later notices back to this channel.
func (ctx *CommandContext) ChannelRef() models.ChannelRef {
	return models.ChannelRef(ctx.Message.ChannelID)
}

// GuildID returns the guild the message was posted in.
func (ctx *CommandContext) GuildID() string {
	return ctx.Message.GuildID
}

// Arg returns the i-th argument or "".
func (ctx *CommandContext) Arg(i int) string {
	if i < 0 || i >= len(ctx.Args) {
		return ""
	}
	return ctx.Args[i]
}

// parseCommand splits "!warn @bob spamming links" into the command name,
// its arguments and the text after the first argument.
func parseCommand(prefix, content string) (name string, args []string, rest string, ok bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, "", false
	}
	body := strings.TrimPrefix(content, prefix)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", nil, "", false
	}
	name = strings.ToLower(fields[0])
	args = fields[1:]

	if len(args) > 0 {
		after := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(body), fields[0]))
		rest = strings.TrimSpace(strings.TrimPrefix(after, args[0]))
	}
	return name, args, rest, true
}
