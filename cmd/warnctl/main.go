// Package main is warnctl, the administration tool for the warnings store.
//
// Usage:
//
//	warnctl list <user>
//	warnctl clear <user>
//	warnctl sweep [--local]
//	warnctl import [--timezone Europe/Madrid] warnings.json
//	warnctl quarantine
//	warnctl policy show
//	warnctl policy set --days 30 --notify=false
//
// Storage settings come from the same environment as the bot. When a broker
// is configured, sweep and policy set reach the running bot over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Defausha/warnbot/internal/bootstrap"
	"github.com/Defausha/warnbot/pkg/config"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/mqtt"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	var remote requester
	if cfg.MQTTEnabled() {
		mc := mqtt.NewMqttCommunicator(mqtt.Options{
			Host:        cfg.MQTTHost,
			Port:        cfg.MQTTPort,
			Username:    cfg.MQTTUser,
			Password:    cfg.MQTTPassword,
			ClientID:    "warnctl",
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		defer mc.Destroy()
		if mc.IsConnected() {
			remote = mc
		} else {
			logger.Warn("Broker MQTT no disponible: no se podrá contactar con el bot", "warnctl")
		}
	}

	app := newApp(cfg, func(ctx context.Context) (*bootstrap.Storage, error) {
		return bootstrap.OpenStorage(ctx, cfg)
	}, remote)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			code = exit.ExitCode()
		}
		log.Close()
		os.Exit(code)
	}
}
