package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 8005 {
			t.Errorf("expected server port 8005, got %d", config.Server.Port)
		}
		if config.Server.SendBatchSize != 100 {
			t.Errorf("expected batch size 100, got %d", config.Server.SendBatchSize)
		}
		if config.Server.SendBatchDelay != 100*time.Millisecond {
			t.Errorf("expected batch delay 100ms, got %v", config.Server.SendBatchDelay)
		}
		if config.Client.ReconnectInterval != 2*time.Second {
			t.Errorf("expected reconnect interval 2s, got %v", config.Client.ReconnectInterval)
		}
		if config.Client.HeartbeatInterval != 10*time.Second {
			t.Errorf("expected heartbeat interval 10s, got %v", config.Client.HeartbeatInterval)
		}
		if config.ListenAddr() != "localhost:8005" {
			t.Errorf("expected listen addr localhost:8005, got %s", config.ListenAddr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if *config != *DefaultConfig() {
			t.Errorf("created config doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[app]
home = "/srv/stereo"

[server]
host = "0.0.0.0"
port = 9000
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 9000 {
			t.Errorf("expected server port 9000, got %d", config.Server.Port)
		}
		if config.Client.HeartbeatInterval != 10*time.Second {
			t.Errorf("missing keys should keep defaults, got heartbeat %v", config.Client.HeartbeatInterval)
		}
		if got := config.DefaultCollectionPath(); got != "/srv/stereo/stereo.db" {
			t.Errorf("expected collection /srv/stereo/stereo.db, got %s", got)
		}
		if got := config.LogFilePath(); got != "/srv/stereo/stereo.log" {
			t.Errorf("expected log file /srv/stereo/stereo.log, got %s", got)
		}
	})

	t.Run("LoadConfig invalid", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport ="), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"STEREO_HOME":      "/data",
			"STEREO_VERBOSITY": "2",
			"STEREO_DEV":       "true",
		}
		config := DefaultConfig()
		if err := config.ApplyEnv(func(k string) string { return env[k] }); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.App.Home != "/data" || config.App.Verbosity != 2 || !config.App.Dev {
			t.Errorf("env not applied: %+v", config.App)
		}

		env["STEREO_VERBOSITY"] = "loud"
		if err := config.ApplyEnv(func(k string) string { return env[k] }); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
