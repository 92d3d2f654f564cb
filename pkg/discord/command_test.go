package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	channel string
	content string
}

type fakeSession struct {
	mu      sync.Mutex
	sent    []sentMessage
	perms   map[string]int64
	sendErr error
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{channelID, content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	p, ok := f.perms[userID]
	if !ok {
		return 0, errors.New("unknown member")
	}
	return p, nil
}

func (f *fakeSession) GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeSession) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.content
	}
	return out
}

func message(authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "chan",
		GuildID:   "guild",
		Content:   content,
		Author:    &discordgo.User{ID: authorID},
	}}
}

func newTestClient(s *fakeSession) *ExtendedClient {
	return NewClientWithSession(s, ClientOptions{Prefix: "!"})
}

func TestCommandCreation(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithUsage("!test <user>").
		ModeratorOnly()

	require.NotNil(t, cmd)
	assert.Equal(t, "test", cmd.Name)
	assert.Equal(t, "Test command", cmd.Description)
	assert.Equal(t, "test", cmd.Category)
	assert.Equal(t, "!test <user>", cmd.Usage)
	assert.True(t, cmd.ModOnly)
	assert.NotNil(t, cmd.Run)
}

func TestCommandCollection(t *testing.T) {
	cc := NewCommandCollection()
	cmd := NewCommand("ping", "Ping", "utils", nil)
	cc.Set("ping", cmd)

	got, ok := cc.Get("ping")
	assert.True(t, ok)
	assert.Same(t, cmd, got)
	assert.Equal(t, 1, cc.Size())

	_, ok = cc.Get("missing")
	assert.False(t, ok)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		content string
		name    string
		args    []string
		rest    string
		ok      bool
	}{
		{"!warn @bob spamming  links", "warn", []string{"@bob", "spamming", "links"}, "spamming  links", true},
		{"  !PING  ", "ping", []string{}, "", true},
		{"!warnings <@123>", "warnings", []string{"<@123>"}, "", true},
		{"hello !warn", "", nil, "", false},
		{"!", "", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			name, args, rest, ok := parseCommand("!", tt.content)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, SplitMessage("", 10))
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, SplitMessage("aaaa\nbbbb\ncccc", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, SplitMessage("abcdefghijk", 5))

	long := strings.Repeat("warning line\n", 100)
	for _, chunk := range SplitMessage(long, MessageLimit) {
		assert.LessOrEqual(t, len([]rune(chunk)), MessageLimit)
	}
}

func TestHandleMessageRouting(t *testing.T) {
	s := &fakeSession{perms: map[string]int64{"mod": discordgo.PermissionBanMembers, "viewer": 0}}
	c := newTestClient(s)

	var ran []string
	c.CommandHandler.RegisterCommand(NewCommand("echo", "Echo", "utils", func(ctx *CommandContext) error {
		ran = append(ran, ctx.Author().ID)
		return ctx.Reply(ctx.Rest)
	}))
	c.CommandHandler.RegisterCommand(NewCommand("secret", "Mods only", "mod", func(ctx *CommandContext) error {
		ran = append(ran, "secret:"+ctx.Author().ID)
		return nil
	}).ModeratorOnly())

	c.CommandHandler.HandleMessage(s, message("viewer", "!echo x hello there"), "self")
	c.CommandHandler.HandleMessage(s, message("viewer", "!secret"), "self")
	c.CommandHandler.HandleMessage(s, message("stranger", "!secret"), "self")
	c.CommandHandler.HandleMessage(s, message("mod", "!secret"), "self")
	c.CommandHandler.HandleMessage(s, message("self", "!echo x loop"), "self")

	bot := message("otherbot", "!echo x beep")
	bot.Author.Bot = true
	c.CommandHandler.HandleMessage(s, bot, "self")

	assert.Equal(t, []string{"viewer", "secret:mod"}, ran)
	assert.Equal(t, []string{"hello there"}, s.messages())
}

func TestExecuteApologizesOnFailure(t *testing.T) {
	s := &fakeSession{}
	c := newTestClient(s)
	c.CommandHandler.RegisterCommand(NewCommand("fail", "Fails", "utils", func(ctx *CommandContext) error {
		return errors.New("store down: 10.0.0.5")
	}))
	c.CommandHandler.RegisterCommand(NewCommand("boom", "Panics", "utils", func(ctx *CommandContext) error {
		panic("boom")
	}))

	c.CommandHandler.HandleMessage(s, message("u1", "!fail"), "self")
	assert.NotPanics(t, func() {
		c.CommandHandler.HandleMessage(s, message("u1", "!boom"), "self")
	})

	assert.Equal(t, []string{ApologyMessage, ApologyMessage}, s.messages())
}

func TestSenderPacesChunks(t *testing.T) {
	s := &fakeSession{}
	sender := NewSender(s, 20*time.Millisecond)

	start := time.Now()
	require.NoError(t, sender.SendAll(context.Background(), "chan", []string{"a", "b", "c"}))
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, s.messages())

	s.sendErr = errors.New("missing access")
	assert.Error(t, sender.Notify(context.Background(), "chan", "hi"))
}

func TestIsModerator(t *testing.T) {
	s := &fakeSession{perms: map[string]int64{
		"admin":  discordgo.PermissionAdministrator,
		"timer":  discordgo.PermissionModerateMembers,
		"helper": discordgo.PermissionSendMessages,
	}}
	assert.True(t, IsModerator(s, "admin", "chan"))
	assert.True(t, IsModerator(s, "timer", "chan"))
	assert.False(t, IsModerator(s, "helper", "chan"))
	assert.False(t, IsModerator(s, "ghost", "chan"))
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func(int) error {
		calls++
		if calls < 2 {
			return errors.New("gateway unavailable")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retry(context.Background(), 3, time.Millisecond, func(int) error {
		calls++
		return errors.New("bad token")
	})
	assert.EqualError(t, err, "bad token")
	assert.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retry(ctx, 3, time.Hour, func(int) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}
