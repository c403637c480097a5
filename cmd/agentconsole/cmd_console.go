package main

import (
	"context"
	"errors"
	"fmt"

	"agentconsole/cmd/agentconsole/console"
	"agentconsole/internal/config"
	"agentconsole/internal/logging"
	"agentconsole/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// runConsole starts the interactive console and blocks until the user quits.
func runConsole(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	kv, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	wrap := int(float64(cfg.Render.WordWrap) * cfg.UI.SplitPaneRatio)
	ctl := session.New(newClient(cfg), console.NewBridge(send),
		sessionOptions(cfg, kv, newFormatter(cfg, wrap)))

	model := console.New(ctl, console.Config{
		SplitRatio:      cfg.UI.SplitPaneRatio,
		ScrollbackLines: cfg.UI.ScrollbackLines,
		Theme:           cfg.UI.Theme,
		Workspace:       workspace,
	}, send)
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctl.Run(gctx)
	})
	g.Go(func() error {
		err := config.Watch(gctx, configPath, func(next *config.Config) {
			logging.SetLevel(next.Logging.Level)
			logging.UI("config reloaded, log level %s", next.Logging.Level)
		}, func(err error) {
			logging.UIDebug("config watch: %v", err)
		})
		if err != nil {
			logging.UIDebug("config watch disabled: %v", err)
		}
		return nil
	})

	_, runErr := program.Run()
	cancel()
	waitErr := g.Wait()
	ctl.Close()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("console failed: %w", runErr)
	}
	return waitErr
}
