// Package discord connects the bot to Discord. It routes prefixed chat
// commands, paces outgoing messages and executes confirmed bans.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		logger.Info(fmt.Sprintf(format, a...), "DiscordGo")
	}
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	Sender         *Sender
	StartTime      time.Time
	mu             sync.RWMutex
	isReady        bool
	handlersOnce   sync.Once
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command)
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Token  string
	Prefix string
	// Pacing is the minimum gap between two outgoing messages.
	Pacing time.Duration
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(opts ClientOptions) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(opts)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(opts ClientOptions) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	c := NewClientWithSession(session, opts)
	c.Session = session
	return c, nil
}

// NewClientWithSession builds a client that sends through s without a
// gateway connection. Start must not be called on it.
func NewClientWithSession(s Session, opts ClientOptions) *ExtendedClient {
	c := &ExtendedClient{
		Commands: NewCommandCollection(),
		Sender:   NewSender(s, opts.Pacing),
	}
	c.CommandHandler = NewCommandHandler(c, opts.Prefix)
	c.EventHandler = NewEventHandler(c)
	return c
}

// Start registers the core handlers once and opens the gateway connection.
func (c *ExtendedClient) Start() error {
	c.handlersOnce.Do(func() {
		c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			c.setReady(true)
			logger.Success("Bot conectado como: "+r.User.Username, "Client")
		})
		c.Session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
			c.setReady(false)
			logger.Warn("Conexión con Discord perdida", "Client")
		})
		c.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			selfID := ""
			if s.State != nil && s.State.User != nil {
				selfID = s.State.User.ID
			}
			c.CommandHandler.HandleMessage(s, m, selfID)
		})
	})

	c.StartTime = time.Now()
	return c.Session.Open()
}

// StartWithRetry calls Start up to attempts times, waiting delay between
// failures. It returns the last error when every attempt failed.
func (c *ExtendedClient) StartWithRetry(ctx context.Context, attempts int, delay time.Duration) error {
	return retry(ctx, attempts, delay, func(attempt int) error {
		err := c.Start()
		if err != nil {
			logger.Error(fmt.Sprintf("⚠️ Error al conectar (intento %d/%d): %v. Reintentando en %s.", attempt, attempts, err, delay), "Client")
			_ = c.Session.Close()
		}
		return err
	})
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	logger.Critical("❌ El bot terminó tras alcanzar el máximo de reintentos.", "Client")
	return err
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.setReady(false)

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

func (c *ExtendedClient) setReady(v bool) {
	c.mu.Lock()
	c.isReady = v
	c.mu.Unlock()
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// Latency returns the last gateway heartbeat round trip.
func (c *ExtendedClient) Latency() time.Duration {
	if c.Session == nil {
		return 0
	}
	return c.Session.HeartbeatLatency()
}
