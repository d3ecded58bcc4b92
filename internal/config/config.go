// Package config loads daemon settings from a YAML file with environment
// overrides. An optional .env file is honoured for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "2m". Bare numbers are read as seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Diagnostics controls the diagnostic event producers.
type Diagnostics struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds all settings for the daemon.
type Config struct {
	HTTPPort      string      `yaml:"http_port"`
	DBPath        string      `yaml:"db_path"`
	WebhookSecret string      `yaml:"webhook_secret"`
	Diagnostics   Diagnostics `yaml:"diagnostics"`

	WorkerCount int `yaml:"worker_count"`
	QueueSize   int `yaml:"queue_size"`

	StuckAfter        Duration `yaml:"stuck_after"`
	SweepInterval     Duration `yaml:"sweep_interval"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	RecentEvents int `yaml:"recent_events"`
	RetainEvents int `yaml:"retain_events"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:          "8080",
		DBPath:            "./openclaw.db",
		Diagnostics:       Diagnostics{Enabled: true},
		WorkerCount:       4,
		QueueSize:         128,
		StuckAfter:        Duration(2 * time.Minute),
		SweepInterval:     Duration(30 * time.Second),
		HeartbeatInterval: Duration(time.Minute),
		RecentEvents:      256,
		RetainEvents:      10000,
		LogLevel:          "info",
	}
}

// Load reads configuration from the optional YAML file at path, then applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults + env only
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getenv("PORT", cfg.HTTPPort)
	cfg.DBPath = getenv("DB_PATH", cfg.DBPath)
	cfg.WebhookSecret = getenv("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.Diagnostics.Enabled = getenvBool("DIAGNOSTICS_ENABLED", cfg.Diagnostics.Enabled)
	cfg.WorkerCount = clampInt(getenvInt("WORKER_COUNT", cfg.WorkerCount), 1, 64)
	cfg.QueueSize = clampInt(getenvInt("QUEUE_SIZE", cfg.QueueSize), 8, 4096)
	cfg.RecentEvents = clampInt(getenvInt("RECENT_EVENTS", cfg.RecentEvents), 16, 8192)
	cfg.RetainEvents = clampInt(getenvInt("RETAIN_EVENTS", cfg.RetainEvents), 100, 1000000)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	return cfg, nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Provider hands out the current config snapshot and accepts replacements
// from the reload watcher. Readers never see a torn config.
type Provider struct {
	v atomic.Pointer[Config]
}

// NewProvider wraps an initial config.
func NewProvider(cfg Config) *Provider {
	p := &Provider{}
	p.v.Store(&cfg)
	return p
}

// Current returns the live snapshot.
func (p *Provider) Current() *Config {
	return p.v.Load()
}

// Swap replaces the snapshot.
func (p *Provider) Swap(cfg Config) {
	p.v.Store(&cfg)
}
