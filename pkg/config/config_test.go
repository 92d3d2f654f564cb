package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	os.Setenv("botToken", "test-token")
	os.Setenv("PORT", "3001")
	os.Setenv("enviroment", "test")
	os.Setenv("messagePacingMs", "250")
	defer func() {
		os.Unsetenv("botToken")
		os.Unsetenv("PORT")
		os.Unsetenv("enviroment")
		os.Unsetenv("messagePacingMs")
	}()

	resetForTesting()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if config.BotToken != "test-token" {
		t.Errorf("BotToken = %v, want %v", config.BotToken, "test-token")
	}

	if config.Port != "3001" {
		t.Errorf("Port = %v, want %v", config.Port, "3001")
	}

	if config.Environment != "test" {
		t.Errorf("Environment = %v, want %v", config.Environment, "test")
	}

	if config.PacingDelay != 250*time.Millisecond {
		t.Errorf("PacingDelay = %v, want %v", config.PacingDelay, 250*time.Millisecond)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %v, want %v", got, "test-value")
	}

	if got := getEnv("NON_EXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want %v", got, "default")
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "12", 12},
		{"padded", " 4 ", 4},
		{"garbage", "twelve", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_INT", tt.value)
			defer os.Unsetenv("TEST_INT")

			if got := getEnvInt("TEST_INT", 7); got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "false")
	defer os.Unsetenv("TEST_BOOL")

	if got := getEnvBool("TEST_BOOL", true); got {
		t.Errorf("getEnvBool() = %v, want %v", got, false)
	}

	os.Setenv("TEST_BOOL", "nope")
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Errorf("getEnvBool() with bad value = %v, want default %v", got, true)
	}
}

func TestIsProd(t *testing.T) {
	resetForTesting()
	os.Setenv("enviroment", "prod")
	config, _ := Load()

	if !config.IsProd() {
		t.Error("IsProd() should return true when environment is 'prod'")
	}

	resetForTesting()
	os.Setenv("enviroment", "dev")
	config, _ = Load()

	if config.IsProd() {
		t.Error("IsProd() should return false when environment is not 'prod'")
	}

	os.Unsetenv("enviroment")
}

func TestGet(t *testing.T) {
	resetForTesting()

	config := Get()
	if config == nil {
		t.Fatal("Get() returned nil")
	}

	if config2 := Get(); config != config2 {
		t.Error("Get() should return the same config on subsequent calls")
	}
}

func TestRetention(t *testing.T) {
	c := &Config{AutoClearDays: 14, NotifyAutoClear: false}
	p := c.Retention()
	if p.MaxAgeDays != 14 || p.NotifyOnSweep {
		t.Errorf("Retention() = %+v, want {14 false}", p)
	}

	c.AutoClearDays = 0
	if got := c.Retention().MaxAgeDays; got != 30 {
		t.Errorf("Retention().MaxAgeDays with invalid input = %v, want %v", got, 30)
	}
}

func TestDefaultValues(t *testing.T) {
	for _, key := range []string{"botToken", "prefix", "mongodbUrl", "dbName", "storeBackend", "MQTT_Host",
		"MQTT_Port", "PORT", "enviroment", "autoclear_days", "notify_autoclear", "MAX_RESTARTS"} {
		os.Unsetenv(key)
	}

	resetForTesting()
	config, _ := Load()

	if config.Prefix != "!" {
		t.Errorf("Prefix default = %v, want %v", config.Prefix, "!")
	}

	if config.MongoDBURL != "mongodb://localhost:27017" {
		t.Errorf("MongoDBURL default = %v, want %v", config.MongoDBURL, "mongodb://localhost:27017")
	}

	if config.DBName != "WarnBot" {
		t.Errorf("DBName default = %v, want %v", config.DBName, "WarnBot")
	}

	if config.StoreBackend != "mongo" {
		t.Errorf("StoreBackend default = %v, want %v", config.StoreBackend, "mongo")
	}

	if config.MQTTEnabled() {
		t.Error("MQTT should be disabled without a host")
	}

	if config.MQTTPort != "1883" {
		t.Errorf("MQTTPort default = %v, want %v", config.MQTTPort, "1883")
	}

	if config.Port != "3000" {
		t.Errorf("Port default = %v, want %v", config.Port, "3000")
	}

	if config.AutoClearDays != 30 || !config.NotifyAutoClear {
		t.Errorf("retention defaults = %v/%v, want 30/true", config.AutoClearDays, config.NotifyAutoClear)
	}

	if config.MaxRestarts != 5 {
		t.Errorf("MaxRestarts default = %v, want %v", config.MaxRestarts, 5)
	}
}

func TestLegacyLocation(t *testing.T) {
	c := &Config{LegacyTimezone: "UTC"}
	if got := c.LegacyLocation(); got != time.UTC {
		t.Errorf("LegacyLocation() = %v, want UTC", got)
	}

	c.LegacyTimezone = "Not/AZone"
	if got := c.LegacyLocation(); got != time.Local {
		t.Errorf("LegacyLocation() with bad zone = %v, want Local", got)
	}
}
