// Package main is the entry point for the warnbot Discord bot.
// It initializes all systems and keeps the gateway connection alive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Defausha/warnbot/internal/bootstrap"
	"github.com/Defausha/warnbot/internal/commands"
	"github.com/Defausha/warnbot/internal/commands/utils"
	"github.com/Defausha/warnbot/internal/events"
	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/config"
	"github.com/Defausha/warnbot/pkg/discord"
	"github.com/Defausha/warnbot/pkg/errors"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/Defausha/warnbot/pkg/mqtt"
	"github.com/Defausha/warnbot/pkg/web"
)

const restartDelay = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando warnbot %s (%s)...", config.Version, config.BuildTime), "Main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		cancel()
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})

	// Storage
	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error abriendo el almacenamiento: %v", err), "Main")
		os.Exit(1)
	}
	defer storage.Close()

	// Discord client
	discordClient, err = discord.Init(discord.ClientOptions{
		Token:  cfg.BotToken,
		Prefix: cfg.Prefix,
		Pacing: cfg.PacingDelay,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	// Event sinks: websocket feed and, when configured, MQTT
	feed := web.NewHub()
	go feed.Run(ctx)
	sinks := moderation.MultiSink{feed}

	var mqttClient *mqtt.MqttCommunicator
	if cfg.MQTTEnabled() {
		clientID := "warnbot"
		if !cfg.IsProd() {
			clientID = "warnbot_canary"
		}
		mqttClient = mqtt.Init(mqtt.Options{
			Host:        cfg.MQTTHost,
			Port:        cfg.MQTTPort,
			Username:    cfg.MQTTUser,
			Password:    cfg.MQTTPassword,
			ClientID:    clientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		defer mqttClient.Destroy()
		sinks = append(sinks, mqtt.NewEventPublisher(mqttClient))
	} else {
		logger.Info("MQTT deshabilitado: no hay host configurado", "Main")
	}

	// Moderation core
	svc := moderation.NewService(moderation.ServiceOptions{
		Store:    moderation.NewStore(storage.Backend),
		Notifier: discordClient.Sender,
		Events:   sinks,
	})
	defer svc.Tracker().Stop()

	policy := moderation.NewPolicy(cfg.Retention(), storage.Policies)
	if err := policy.Load(ctx); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo cargar la política de retención guardada: %v", err), "Main")
	}

	sweeper := moderation.NewSweeper(moderation.SweeperOptions{
		Store:     svc.Store(),
		Policy:    policy,
		Notifier:  discordClient.Sender,
		Broadcast: models.ChannelRef(cfg.BroadcastChannel),
		Skip:      svc.Tracker().IsOpen,
		Events:    sinks,
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if mqttClient != nil {
		mqtt.RegisterHandlers(mqttClient, mqtt.Handlers{Warnings: svc, Policy: policy, Sweeper: sweeper})
	}

	// Commands and events
	commands.RegisterAll(discordClient, svc, utils.Options{
		Socials: cfg.SocialsText,
		Status:  statusRenderer(storage, svc, policy),
	})
	events.RegisterAll(discordClient)

	// Initialize web server
	webServer := web.Init(web.Options{
		WebhookURL: cfg.LogsWebServerHook,
		APISecret:  cfg.APISecret,
	})
	web.SetupAPIRoutes(webServer, web.API{
		Moderation:     svc,
		Retention:      policy,
		Feed:           feed,
		DefaultChannel: models.ChannelRef(cfg.BroadcastChannel),
		DatabaseStatus: storage.Status,
		BotReady:       discordClient.IsReady,
	})
	webServer.StartAsync(cfg.Port)

	// Start the bot
	if err := discordClient.StartWithRetry(ctx, cfg.MaxRestarts, restartDelay); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
		}
	}()

	logger.Success("warnbot iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
	case <-ctx.Done():
	}

	logger.System("Apagando warnbot...", "Main")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(fmt.Sprintf("Error deteniendo el servidor web: %v", err), "Main")
	}
}

// statusRenderer builds the body of !status.
func statusRenderer(storage *bootstrap.Storage, svc *moderation.Service, policy *moderation.Policy) func() string {
	return func() string {
		dbStatus, _ := storage.Status()
		open := svc.Tracker().OpenRituals()

		var b strings.Builder
		fmt.Fprintf(&b, "📦 Store: %s\n", dbStatus)
		fmt.Fprintf(&b, "🗓️ Retention: %d days\n", policy.Get().MaxAgeDays)
		fmt.Fprintf(&b, "⏳ Pending bans: %d", len(open))
		for _, p := range open {
			fmt.Fprintf(&b, "\n• @%s (expires %s)", p.User, p.OpenedAt.Add(moderation.ConfirmWindow).Format("15:04:05"))
		}
		return b.String()
	}
}
