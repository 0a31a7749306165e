package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// TokenEnv overrides telegram.token when set, so the secret can stay out
// of the config file.
const TokenEnv = "RESPAWNBOT_TOKEN"

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Engine   EngineConfig   `yaml:"engine"`
	Notifier NotifierConfig `yaml:"notifier"`
	Digest   DigestConfig   `yaml:"digest"`
}

type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout string `yaml:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string     `yaml:"level"`
	Console bool       `yaml:"console"`
	File    FileConfig `yaml:"file"`
}

type FileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
}

type EngineConfig struct {
	LeadTime       string `yaml:"lead_time"`
	SettleOffset   string `yaml:"settle_offset"`
	UserTimezone   string `yaml:"user_timezone"`
	SystemTimezone string `yaml:"system_timezone"`
}

type NotifierConfig struct {
	RatePerSec int `yaml:"rate_per_sec"`
	Burst      int `yaml:"burst"`
}

type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

func defaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: "10s"},
		Logging:  LoggingConfig{Level: "info", Console: true},
		Storage:  StorageConfig{Path: "data/respawnbot.db", BusyTimeout: "5s"},
		Engine: EngineConfig{
			LeadTime:     "3m",
			SettleOffset: "1m",
			UserTimezone: "Europe/Moscow",
		},
		Digest: DigestConfig{Cron: "0 9 * * *"},
	}
}

// Validate checks everything that can fail before services spin up.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" && strings.TrimSpace(os.Getenv(TokenEnv)) == "" {
		return errors.New("telegram.token is empty (set it or " + TokenEnv + ")")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is empty")
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"engine.lead_time", c.Engine.LeadTime},
		{"engine.settle_offset", c.Engine.SettleOffset},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	for _, tz := range []struct{ path, raw string }{
		{"engine.user_timezone", c.Engine.UserTimezone},
		{"engine.system_timezone", c.Engine.SystemTimezone},
		{"digest.timezone", c.Digest.Timezone},
	} {
		if strings.TrimSpace(tz.raw) == "" {
			continue
		}
		if _, err := time.LoadLocation(tz.raw); err != nil {
			return fmt.Errorf("%s: %w", tz.path, err)
		}
	}
	return nil
}

// BotToken resolves the effective Telegram token.
func (c *Config) BotToken() string {
	if env := strings.TrimSpace(os.Getenv(TokenEnv)); env != "" {
		return env
	}
	return strings.TrimSpace(c.Telegram.Token)
}

// Duration fields are kept as strings in the file so they read
// naturally ("3m", "90s"). ParseDurationField parses one; blank means
// zero, negative is rejected. The path only feeds error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def for blank or zero values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	switch d, err := ParseDurationField(path, raw); {
	case err != nil:
		return 0, err
	case d > 0:
		return d, nil
	default:
		return def, nil
	}
}
