package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all agentconsole configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Agent backend endpoints
	Server ServerConfig `yaml:"server"`

	// Snapshot polling and task stream
	Polling PollingConfig `yaml:"polling"`

	// Incremental reveal pacing
	Render RenderConfig `yaml:"render"`

	// Outbound chat path
	Chat ChatConfig `yaml:"chat"`

	// Local durable settings store
	Storage StorageConfig `yaml:"storage"`

	// Console layout
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig locates the agent backend.
type ServerConfig struct {
	BaseURL        string `yaml:"base_url"`
	WSBaseURL      string `yaml:"ws_base_url"` // derived from base_url when empty
	RequestTimeout string `yaml:"request_timeout"`
}

// PollingConfig configures the snapshot monitors.
type PollingConfig struct {
	MemoryInterval string `yaml:"memory_interval"`
	StreamBackoff  string `yaml:"stream_backoff"`
	StreamEnabled  bool   `yaml:"stream_enabled"`
}

// RenderConfig configures character-by-character reveal.
type RenderConfig struct {
	BaseDelay         string `yaml:"base_delay"`
	WhitespaceFactor  int    `yaml:"whitespace_factor"`
	PunctuationFactor int    `yaml:"punctuation_factor"`
	Punctuation       string `yaml:"punctuation"`
	WordWrap          int    `yaml:"word_wrap"`
	Style             string `yaml:"style"` // auto, dark, light, notty
}

// ChatTransport selects how user messages reach the agent.
type ChatTransport string

const (
	ChatOverHTTP   ChatTransport = "http"
	ChatOverSocket ChatTransport = "socket"
)

// ChatConfig configures the chat channel.
type ChatConfig struct {
	Transport ChatTransport `yaml:"transport"`
}

// StorageConfig configures the local settings database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "agentconsole",
		Version: "0.3.0",

		Server: ServerConfig{
			BaseURL:        "http://localhost:4000",
			RequestTimeout: "0s",
		},

		Polling: PollingConfig{
			MemoryInterval: "2s",
			StreamBackoff:  "5s",
			StreamEnabled:  true,
		},

		Render: RenderConfig{
			BaseDelay:         "5ms",
			WhitespaceFactor:  2,
			PunctuationFactor: 10,
			Punctuation:       ".,!?;:",
			WordWrap:          80,
			Style:             "auto",
		},

		Chat: ChatConfig{
			Transport: ChatOverHTTP,
		},

		Storage: StorageConfig{
			Path: filepath.Join(".agentconsole", "console.db"),
		},

		UI: *DefaultUIConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("AGENTCONSOLE_URL"); u != "" {
		c.Server.BaseURL = u
	}
	if u := os.Getenv("AGENTCONSOLE_WS_URL"); u != "" {
		c.Server.WSBaseURL = u
	}
	if p := os.Getenv("AGENTCONSOLE_STORE"); p != "" {
		c.Storage.Path = p
	}
	if v := os.Getenv("AGENTCONSOLE_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// WebSocketBase returns the ws:// or wss:// root for socket channels.
func (c *Config) WebSocketBase() string {
	if c.Server.WSBaseURL != "" {
		return strings.TrimRight(c.Server.WSBaseURL, "/")
	}
	base := strings.TrimRight(c.Server.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// GetRequestTimeout returns the per-request timeout; zero means none.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 0)
}

// GetMemoryInterval returns the snapshot polling period.
func (c *Config) GetMemoryInterval() time.Duration {
	return parseDuration(c.Polling.MemoryInterval, 2*time.Second)
}

// GetStreamBackoff returns the delay before the single stream reconnect.
func (c *Config) GetStreamBackoff() time.Duration {
	return parseDuration(c.Polling.StreamBackoff, 5*time.Second)
}

// GetBaseDelay returns the per-character reveal delay.
func (c *Config) GetBaseDelay() time.Duration {
	return parseDuration(c.Render.BaseDelay, 5*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server base_url: %q", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server base_url must be http or https, got %q", u.Scheme)
	}
	if c.Server.WSBaseURL != "" {
		w, err := url.Parse(c.Server.WSBaseURL)
		if err != nil || (w.Scheme != "ws" && w.Scheme != "wss") {
			return fmt.Errorf("invalid server ws_base_url: %q", c.Server.WSBaseURL)
		}
	}
	switch c.Chat.Transport {
	case ChatOverHTTP, ChatOverSocket:
	default:
		return fmt.Errorf("invalid chat transport: %s (valid: http, socket)", c.Chat.Transport)
	}
	if c.Render.WhitespaceFactor < 1 || c.Render.PunctuationFactor < 1 {
		return fmt.Errorf("render factors must be >= 1")
	}
	if c.GetMemoryInterval() <= 0 {
		return fmt.Errorf("polling memory_interval must be positive")
	}
	return nil
}
