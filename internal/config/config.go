// Package config loads imessage-mcp configuration from an optional TOML file
// and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const DefaultPort = 7007

type Config struct {
	Data   DataConfig   `toml:"data"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Output OutputConfig `toml:"output"`

	HomeDir string `toml:"-"`
}

// DataConfig locates the two SQLite stores. Both are opened read-only.
type DataConfig struct {
	ChatDB     string `toml:"chat_db"`
	ContactsDB string `toml:"contacts_db"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type LogConfig struct {
	Level string `toml:"level"` // trace, debug, info, warn, error
}

type OutputConfig struct {
	Timezone string `toml:"timezone"` // IANA name for minimal-format times; empty means local
}

// DefaultHome returns the imessage-mcp home directory.
// Respects IMESSAGE_MCP_HOME.
func DefaultHome() string {
	if h := os.Getenv("IMESSAGE_MCP_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".imessage-mcp"
	}
	return filepath.Join(home, ".imessage-mcp")
}

// Defaults returns the configuration used when no file or env is set.
func Defaults() *Config {
	return &Config{
		HomeDir: DefaultHome(),
		Data: DataConfig{
			ChatDB:     "~/Library/Messages/chat.db",
			ContactsDB: "~/Library/Application Support/AddressBook/AddressBook-v22.abcddb",
		},
		Server: ServerConfig{Port: DefaultPort},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the configuration from path. If path is empty, uses
// <home>/config.toml; a missing file is not an error. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.HomeDir, "config.toml")
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else if explicit || !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Data.ChatDB = expandPath(cfg.Data.ChatDB)
	cfg.Data.ContactsDB = expandPath(cfg.Data.ContactsDB)

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("IMESSAGE_MCP_CHAT_DB"); v != "" {
		c.Data.ChatDB = v
	}
	if v := os.Getenv("IMESSAGE_MCP_CONTACTS_DB"); v != "" {
		c.Data.ContactsDB = v
	}
	if v := os.Getenv("IMESSAGE_MCP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("IMESSAGE_MCP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IMESSAGE_MCP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Location returns the zone used to render message times.
func (c *Config) Location() (*time.Location, error) {
	if c.Output.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Output.Timezone)
	if err != nil {
		return nil, fmt.Errorf("output timezone: %w", err)
	}
	return loc, nil
}

// LogLevel maps Log.Level to a zerolog level, defaulting to info.
func (c *Config) LogLevel() zerolog.Level {
	return ParseLevel(c.Log.Level)
}

func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
