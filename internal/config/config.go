package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceEntry is one QLab host in the configured roster. The OSC
// protocol has no network discovery, so reachable devices are declared
// in the config file.
type DeviceEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Backend selects the control backend: "qlab" (OSC over UDP) or
	// "memory" (in-process, for developing without a QLab host).
	Backend        string        `yaml:"backend"`
	BackendTimeout time.Duration `yaml:"-"`
	Devices        []DeviceEntry `yaml:"devices"`

	// PollMinInterval bounds backend round trips from the polling
	// endpoints; faster requests are served from cache.
	PollMinInterval time.Duration `yaml:"-"`

	SnapshotCommand string `yaml:"snapshot_command"`

	AuditDBPath       string `yaml:"audit_db_path"`
	AuditHistoryLimit int    `yaml:"audit_history_limit"`

	// Millisecond forms of the durations, for the YAML file.
	BackendTimeoutMS  int `yaml:"backend_timeout_ms"`
	PollMinIntervalMS int `yaml:"poll_min_interval_ms"`
}

// Load builds the configuration: defaults, then the optional YAML file
// named by CUEBRIDGE_CONFIG, then env var overrides, then validation.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              5000,
		LogLevel:          "info",
		Backend:           "qlab",
		BackendTimeoutMS:  3000,
		PollMinIntervalMS: 200,
		AuditDBPath:       defaultAuditDBPath(),
		AuditHistoryLimit: 50,
		Devices: []DeviceEntry{
			{ID: "local", Name: "Local QLab", Host: "127.0.0.1", Port: 53000},
		},
	}

	if path := os.Getenv("CUEBRIDGE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envInt("PORT", cfg.Port)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.Backend = envStr("BACKEND", cfg.Backend)
	cfg.BackendTimeoutMS = envInt("BACKEND_TIMEOUT_MS", cfg.BackendTimeoutMS)
	cfg.PollMinIntervalMS = envInt("POLL_MIN_INTERVAL_MS", cfg.PollMinIntervalMS)
	cfg.SnapshotCommand = envStr("SNAPSHOT_CMD", cfg.SnapshotCommand)
	cfg.AuditDBPath = envStr("AUDIT_DB_PATH", cfg.AuditDBPath)
	cfg.AuditHistoryLimit = envInt("AUDIT_HISTORY_LIMIT", cfg.AuditHistoryLimit)

	cfg.BackendTimeout = time.Duration(cfg.BackendTimeoutMS) * time.Millisecond
	cfg.PollMinInterval = time.Duration(cfg.PollMinIntervalMS) * time.Millisecond

	for i := range cfg.Devices {
		if cfg.Devices[i].Port == 0 {
			cfg.Devices[i].Port = 53000 // QLab's default OSC port
		}
		if cfg.Devices[i].Name == "" {
			cfg.Devices[i].Name = cfg.Devices[i].ID
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.Backend != "qlab" && c.Backend != "memory" {
		return fmt.Errorf("BACKEND must be qlab or memory, got %q", c.Backend)
	}
	if c.BackendTimeoutMS < 1 {
		return fmt.Errorf("BACKEND_TIMEOUT_MS must be positive, got %d", c.BackendTimeoutMS)
	}
	if c.PollMinIntervalMS < 0 {
		return fmt.Errorf("POLL_MIN_INTERVAL_MS must not be negative, got %d", c.PollMinIntervalMS)
	}
	if c.AuditDBPath == "" {
		return fmt.Errorf("AUDIT_DB_PATH must not be empty")
	}
	if c.Backend == "qlab" && len(c.Devices) == 0 {
		return fmt.Errorf("qlab backend needs at least one device in the config file")
	}
	seen := make(map[string]bool)
	for i, d := range c.Devices {
		if d.ID == "" {
			return fmt.Errorf("devices[%d]: id must not be empty", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("devices[%d]: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = true
		if c.Backend == "qlab" && d.Host == "" {
			return fmt.Errorf("devices[%d]: host must not be empty", i)
		}
		if d.Port < 0 || d.Port > 65535 {
			return fmt.Errorf("devices[%d]: invalid port %d", i, d.Port)
		}
	}
	return nil
}

func defaultAuditDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cuebridge-audit.db"
	}
	return filepath.Join(home, ".cuebridge", "audit.db")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
