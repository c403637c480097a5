package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "agentconsole" {
		t.Errorf("expected Name=agentconsole, got %s", cfg.Name)
	}
	if cfg.GetMemoryInterval() != 2*time.Second {
		t.Errorf("expected 2s memory interval, got %v", cfg.GetMemoryInterval())
	}
	if cfg.GetStreamBackoff() != 5*time.Second {
		t.Errorf("expected 5s stream backoff, got %v", cfg.GetStreamBackoff())
	}
	if cfg.GetBaseDelay() != 5*time.Millisecond {
		t.Errorf("expected 5ms base delay, got %v", cfg.GetBaseDelay())
	}
	if cfg.GetRequestTimeout() != 0 {
		t.Errorf("expected no request timeout, got %v", cfg.GetRequestTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("AGENTCONSOLE_URL", "")
	t.Setenv("AGENTCONSOLE_WS_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.BaseURL = "https://agent.example:8443"
	cfg.Render.PunctuationFactor = 7
	cfg.Chat.Transport = ChatOverSocket

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.BaseURL != "https://agent.example:8443" {
		t.Errorf("expected BaseURL round trip, got %s", loaded.Server.BaseURL)
	}
	if loaded.Render.PunctuationFactor != 7 {
		t.Errorf("expected PunctuationFactor=7, got %d", loaded.Render.PunctuationFactor)
	}
	if loaded.Chat.Transport != ChatOverSocket {
		t.Errorf("expected socket transport, got %s", loaded.Chat.Transport)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("AGENTCONSOLE_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("URL overrides base and derives ws", func(t *testing.T) {
		t.Setenv("AGENTCONSOLE_URL", "https://remote:9000/")
		t.Setenv("AGENTCONSOLE_WS_URL", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://remote:9000/", cfg.Server.BaseURL)
		assert.Equal(t, "wss://remote:9000", cfg.WebSocketBase())
	})

	t.Run("explicit ws url wins", func(t *testing.T) {
		t.Setenv("AGENTCONSOLE_WS_URL", "ws://sockets:4001")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "ws://sockets:4001", cfg.WebSocketBase())
	})

	t.Run("debug switch", func(t *testing.T) {
		t.Setenv("AGENTCONSOLE_DEBUG", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("store path", func(t *testing.T) {
		t.Setenv("AGENTCONSOLE_STORE", "/tmp/console.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/console.db", cfg.Storage.Path)
	})
}

func TestWebSocketBase_FromHTTP(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "ws://localhost:4000", cfg.WebSocketBase())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no scheme", func(c *Config) { c.Server.BaseURL = "localhost:4000" }, true},
		{"ftp scheme", func(c *Config) { c.Server.BaseURL = "ftp://host" }, true},
		{"bad ws scheme", func(c *Config) { c.Server.WSBaseURL = "http://host" }, true},
		{"bad transport", func(c *Config) { c.Chat.Transport = "carrier-pigeon" }, true},
		{"zero factor", func(c *Config) { c.Render.PunctuationFactor = 0 }, true},
		{"socket transport", func(c *Config) { c.Chat.Transport = ChatOverSocket }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Polling.MemoryInterval = "soon"
	cfg.Polling.StreamBackoff = "-1s"
	cfg.Render.BaseDelay = ""

	assert.Equal(t, 2*time.Second, cfg.GetMemoryInterval())
	assert.Equal(t, 5*time.Second, cfg.GetStreamBackoff())
	assert.Equal(t, 5*time.Millisecond, cfg.GetBaseDelay())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("poll"))

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("poll"))

	lc.Categories = map[string]bool{"poll": false}
	assert.False(t, lc.IsCategoryEnabled("poll"))
	assert.True(t, lc.IsCategoryEnabled("stream"))

	lc.Format = "json"
	assert.True(t, lc.ToLogging().JSONFormat)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	t.Setenv("AGENTCONSOLE_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changed <- c }, nil)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save(path))

	// A truncate-then-write can surface an intermediate reload first.
	deadline := time.After(3 * time.Second)
	for seen := false; !seen; {
		select {
		case got := <-changed:
			seen = got.Logging.Level == "debug"
		case <-deadline:
			t.Fatal("expected reload after write")
		}
	}

	cancel()
	require.NoError(t, <-done)
}
