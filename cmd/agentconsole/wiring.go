package main

import (
	"agentconsole/internal/api"
	"agentconsole/internal/config"
	"agentconsole/internal/logging"
	"agentconsole/internal/render"
	"agentconsole/internal/session"
	"agentconsole/internal/store"
)

func newClient(c *config.Config) *api.Client {
	return api.New(c.Server.BaseURL, api.WithTimeout(c.GetRequestTimeout()))
}

func openStore(c *config.Config) (*store.KV, error) {
	return store.Open(c.Storage.Path)
}

func newPacer(c *config.Config) render.Pacer {
	return render.Pacer{
		Base:              c.GetBaseDelay(),
		WhitespaceFactor:  c.Render.WhitespaceFactor,
		PunctuationFactor: c.Render.PunctuationFactor,
		Punctuation:       c.Render.Punctuation,
	}
}

// newFormatter builds the rich form used once a reveal completes. A plain
// formatter is used when glamour cannot load the configured style.
func newFormatter(c *config.Config, wordWrap int) render.Formatter {
	if c.Render.Style == "plain" {
		return render.Plain
	}
	g, err := render.NewGlamourFormatter(c.Render.Style, wordWrap)
	if err != nil {
		logging.RenderDebug("glamour unavailable, using plain text: %v", err)
		return render.Plain
	}
	return g
}

func sessionOptions(c *config.Config, settings session.SettingsStore, formatter render.Formatter) session.Options {
	transport := session.ChatOverHTTP
	if c.Chat.Transport == config.ChatOverSocket {
		transport = session.ChatOverSocket
	}
	return session.Options{
		WSBase:         c.WebSocketBase(),
		ChatTransport:  transport,
		MemoryInterval: c.GetMemoryInterval(),
		StreamBackoff:  c.GetStreamBackoff(),
		StreamEnabled:  c.Polling.StreamEnabled,
		Pacer:          newPacer(c),
		Formatter:      formatter,
		Settings:       settings,
	}
}
