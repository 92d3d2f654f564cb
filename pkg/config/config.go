// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Defausha/warnbot/pkg/models"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken         string
	Prefix           string
	BroadcastChannel string
	SocialsText      string
	MaxRestarts      int
	PacingDelay      time.Duration

	// Storage
	StoreBackend string
	MongoDBURL   string
	DBName       string

	// MQTT
	MQTTHost        string
	MQTTPort        string
	MQTTUser        string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Web Server
	Port      string
	APISecret string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string

	// Retention
	AutoClearDays   int
	NotifyAutoClear bool

	// LegacyTimezone is the zone the old warnings.json timestamps were written in.
	LegacyTimezone string
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

func loadConfig() {
	_ = godotenv.Load()

	cfg = &Config{
		BotToken:         getEnv("botToken", ""),
		Prefix:           getEnv("prefix", "!"),
		BroadcastChannel: getEnv("broadcastChannel", ""),
		SocialsText:      getEnv("socialsText", ""),
		MaxRestarts:      getEnvInt("MAX_RESTARTS", 5),
		PacingDelay:      time.Duration(getEnvInt("messagePacingMs", 1000)) * time.Millisecond,

		StoreBackend: strings.ToLower(getEnv("storeBackend", "mongo")),
		MongoDBURL:   getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:       getEnv("dbName", "WarnBot"),

		// Empty host disables MQTT.
		MQTTHost:        getEnv("MQTT_Host", ""),
		MQTTPort:        getEnv("MQTT_Port", "1883"),
		MQTTUser:        getEnv("MQTT_User", ""),
		MQTTPassword:    getEnv("MQTT_Password", ""),
		MQTTTopicPrefix: getEnv("MQTT_TopicPrefix", "warnbot"),

		Port:      getEnv("PORT", "3000"),
		APISecret: getEnv("apiSecret", ""),

		Environment: getEnv("enviroment", "dev"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),

		AutoClearDays:   getEnvInt("autoclear_days", 30),
		NotifyAutoClear: getEnvBool("notify_autoclear", true),

		LegacyTimezone: getEnv("legacyTimezone", "Local"),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer variable, falling back on missing or bad input.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return b
}

// LegacyLocation resolves LegacyTimezone, falling back to the local zone.
func (c *Config) LegacyLocation() *time.Location {
	loc, err := time.LoadLocation(c.LegacyTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTHost != ""
}

// Retention returns the startup retention policy. An invalid horizon falls
// back to the default so the sweeper never runs with a zero cutoff.
func (c *Config) Retention() models.RetentionPolicy {
	p := models.RetentionPolicy{MaxAgeDays: c.AutoClearDays, NotifyOnSweep: c.NotifyAutoClear}
	if err := p.Validate(); err != nil {
		def := models.DefaultRetentionPolicy()
		p.MaxAgeDays = def.MaxAgeDays
	}
	return p
}
