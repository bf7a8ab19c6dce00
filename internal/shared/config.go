package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultCollectionName is the file name of the collection created in the home directory.
const DefaultCollectionName = "stereo.db"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	App     AppConfig     `toml:"app"`
	Server  ServerConfig  `toml:"server"`
	Client  ClientConfig  `toml:"client"`
	Search  SearchConfig  `toml:"search"`
	Logging LoggingConfig `toml:"logging"`
}

// AppConfig contains settings shared by every command.
type AppConfig struct {
	Home      string `toml:"home"`      // Directory holding the default collection and logs
	Verbosity int    `toml:"verbosity"` // 0 warn, 1 info, 2+ debug
	Dev       bool   `toml:"dev"`       // Skip serving static files
}

// ServerConfig contains HTTP/WebSocket server settings.
type ServerConfig struct {
	Host           string        `toml:"host"`
	Port           int           `toml:"port"`
	StaticDir      string        `toml:"static_dir"`
	SendBatchSize  int           `toml:"send_batch_size"`
	SendBatchDelay time.Duration `toml:"send_batch_delay"`
}

// ClientConfig contains settings for the duplex connection to a running backend.
type ClientConfig struct {
	URL               string        `toml:"url"`
	ReconnectInterval time.Duration `toml:"reconnect_interval"`
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"`
	RequestTimeout    time.Duration `toml:"request_timeout"`
}

// SearchConfig contains settings for the online catalogue lookups.
type SearchConfig struct {
	Limit             int     `toml:"limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BeatportURL       string  `toml:"beatport_url"`
	YouTubeURL        string  `toml:"youtube_url"`
	MusicBrainzURL    string  `toml:"musicbrainz_url"`
}

// LoggingConfig contains settings for the log file kept in the home directory.
type LoggingConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values from STEREO_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv("STEREO_HOME"); v != "" {
		c.App.Home = v
	}
	if v := getenv("STEREO_VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: STEREO_VERBOSITY=%q", ErrInvalidConfig, v)
		}
		c.App.Verbosity = n
	}
	if v := getenv("STEREO_DEV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: STEREO_DEV=%q", ErrInvalidConfig, v)
		}
		c.App.Dev = b
	}

	return nil
}

// HomeDir returns the configured home directory or the XDG data default.
func (c *Config) HomeDir() string {
	if c.App.Home != "" {
		return ExpandHome(c.App.Home)
	}
	return DefaultHome()
}

// DefaultCollectionPath is the collection every new connection starts with.
func (c *Config) DefaultCollectionPath() string {
	return filepath.Join(c.HomeDir(), DefaultCollectionName)
}

// LogFilePath is where the server writes its rotating log.
func (c *Config) LogFilePath() string {
	name := c.Logging.File
	if name == "" {
		name = "stereo.log"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.HomeDir(), name)
}

// ListenAddr joins the server host and port.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DefaultHome returns $XDG_DATA_HOME/stereo.
func DefaultHome() string {
	return filepath.Join(xdg.DataHome, "stereo")
}
