// Package config loads server settings from defaults, an optional YAML file
// and CHAT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr         string
	AdminAddr    string
	DBPath       string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BcryptCost   int
	EventBuffer  int
}

type configFile struct {
	Server struct {
		Addr                string `yaml:"addr"`
		AdminAddr           string `yaml:"admin_addr"`
		ReadTimeoutSeconds  *int   `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds *int   `yaml:"write_timeout_seconds"`
		EventBuffer         int    `yaml:"event_buffer"`
	} `yaml:"server"`
	Store struct {
		Path       string `yaml:"path"`
		BcryptCost int    `yaml:"bcrypt_cost"`
	} `yaml:"store"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	return Config{
		Addr:         ":15001",
		AdminAddr:    ":9090",
		DBPath:       "chat.db",
		LogLevel:     "info",
		WriteTimeout: 30 * time.Second,
		EventBuffer:  128,
	}
}

// Load returns the layered configuration. An empty path or a missing file
// skips the YAML layer; a file that fails to parse is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.Addr = envString("CHAT_ADDR", cfg.Addr)
	cfg.AdminAddr = envString("CHAT_ADMIN_ADDR", cfg.AdminAddr)
	cfg.DBPath = envString("CHAT_DB_PATH", cfg.DBPath)
	cfg.LogLevel = envString("CHAT_LOG_LEVEL", cfg.LogLevel)
	cfg.ReadTimeout = time.Duration(envInt("CHAT_READ_TIMEOUT_SECONDS", int(cfg.ReadTimeout.Seconds()))) * time.Second
	cfg.WriteTimeout = time.Duration(envInt("CHAT_WRITE_TIMEOUT_SECONDS", int(cfg.WriteTimeout.Seconds()))) * time.Second
	cfg.BcryptCost = envInt("CHAT_BCRYPT_COST", cfg.BcryptCost)
	cfg.EventBuffer = envInt("CHAT_EVENT_BUFFER", cfg.EventBuffer)
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Server.Addr != "" {
		c.Addr = f.Server.Addr
	}
	if f.Server.AdminAddr != "" {
		c.AdminAddr = f.Server.AdminAddr
	}
	if f.Server.ReadTimeoutSeconds != nil {
		c.ReadTimeout = time.Duration(*f.Server.ReadTimeoutSeconds) * time.Second
	}
	if f.Server.WriteTimeoutSeconds != nil {
		c.WriteTimeout = time.Duration(*f.Server.WriteTimeoutSeconds) * time.Second
	}
	if f.Server.EventBuffer > 0 {
		c.EventBuffer = f.Server.EventBuffer
	}
	if f.Store.Path != "" {
		c.DBPath = f.Store.Path
	}
	if f.Store.BcryptCost > 0 {
		c.BcryptCost = f.Store.BcryptCost
	}
	if f.Log.Level != "" {
		c.LogLevel = f.Log.Level
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
