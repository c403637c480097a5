package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agentconsole/internal/api"
	"agentconsole/internal/reconcile"
	"agentconsole/internal/render"
	"agentconsole/internal/session"
	"agentconsole/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sendCmd sends one chat message and prints the reply
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one chat message and print the agent's reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		msg := strings.Join(args, " ")
		logger.Debug("sending chat message", zap.Int("length", len(msg)))
		reply, err := newClient(cfg).Chat(ctx, msg)
		if err != nil {
			return fmt.Errorf("chat failed: %s", api.ServerMessage(err, err.Error()))
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

// resetCmd starts a fresh conversation
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the conversation and print the new session id",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		id, err := newClient(cfg).Reset(ctx)
		if err != nil {
			return fmt.Errorf("failed to reset conversation: %s", api.ServerMessage(err, err.Error()))
		}
		logger.Info("conversation reset", zap.String("session", id))
		fmt.Fprintf(cmd.OutOrStdout(), "Conversation reset. Session: %s\n", id)
		return nil
	},
}

// statusCmd shows the backend's agent status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent status reported by the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		info, err := newClient(cfg).Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to query status: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend:      %s\n", cfg.Server.BaseURL)
		fmt.Fprintf(out, "Status:       %s\n", info.Status)
		fmt.Fprintf(out, "Current task: %s\n", orNone(info.CurrentTask))
		fmt.Fprintf(out, "Model:        %s\n", orNone(info.Model))
		fmt.Fprintf(out, "Session:      %v\n", info.SessionActive)
		return nil
	},
}

// tasksCmd lists the planner's tasks
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List, complete or delete planner tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		snap, err := newClient(cfg).Tasks(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch tasks: %w", err)
		}
		printTasks(cmd, reconcile.BuildTaskList(snap.Tasks.Items))
		return nil
	},
}

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := newClient(cfg).CompleteTask(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}
		logger.Info("task completed", zap.String("task", args[0]))
		fmt.Fprintln(cmd.OutOrStdout(), "Task completed!")
		return nil
	},
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := newClient(cfg).DeleteTask(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		logger.Info("task deleted", zap.String("task", args[0]))
		fmt.Fprintln(cmd.OutOrStdout(), "Task deleted!")
		return nil
	},
}

// uploadCmd uploads files or directories into the agent workspace
var uploadCmd = &cobra.Command{
	Use:   "upload [path...]",
	Short: "Upload files or directories to the agent workspace",
	Long: `Uploads each path. Directories are walked and every file is sent with
its path relative to the workspace, so the tree is preserved remotely.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		files, err := newClient(cfg).UploadPaths(ctx, workspace, args)
		if err != nil {
			return fmt.Errorf("upload failed: %s", api.ServerMessage(err, err.Error()))
		}
		logger.Info("upload complete", zap.Int("files", len(files)), zap.Strings("paths", args))
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Upload complete!")
		return nil
	},
}

var (
	settingsModel       string
	settingsAPIKey      string
	settingsTemperature float64
	settingsMaxTokens   int
)

// settingsCmd stores agent settings locally and pushes them to the backend
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update agent settings",
	Long: `Without flags, prints the locally stored settings. With flags, merges
them into the stored settings, saves them and pushes them to the backend,
initializing the agent when the backend asks for it.`,
	RunE: runSettings,
}

// watchCmd follows the backend without the interactive console
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print chat, status and task updates as plain lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		kv, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer kv.Close()

		opts := sessionOptions(cfg, kv, render.Plain)
		opts.Pacer = render.Pacer{Base: time.Microsecond, WhitespaceFactor: 1, PunctuationFactor: 1, Punctuation: render.DefaultPunctuation}
		ctl := session.New(newClient(cfg), newLineView(cmd.OutOrStdout()), opts)
		defer ctl.Close()
		return ctl.Run(ctx)
	},
}

func init() {
	tasksCmd.AddCommand(tasksCompleteCmd)
	tasksCmd.AddCommand(tasksDeleteCmd)

	settingsCmd.Flags().StringVar(&settingsModel, "model", "", "Model name")
	settingsCmd.Flags().StringVar(&settingsAPIKey, "api-key", "", "Provider API key")
	settingsCmd.Flags().Float64Var(&settingsTemperature, "temperature", 0, "Sampling temperature")
	settingsCmd.Flags().IntVar(&settingsMaxTokens, "max-tokens", 0, "Maximum tokens per reply")
}

func runSettings(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	kv, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	current, _, err := kv.LoadSettings(ctx)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("model") && !flags.Changed("api-key") && !flags.Changed("temperature") && !flags.Changed("max-tokens") {
		printSettings(cmd, current)
		return nil
	}
	if flags.Changed("model") {
		current.Model = settingsModel
	}
	if flags.Changed("api-key") {
		current.APIKey = settingsAPIKey
	}
	if flags.Changed("temperature") {
		current.Temperature = settingsTemperature
	}
	if flags.Changed("max-tokens") {
		current.MaxTokens = settingsMaxTokens
	}
	if err := kv.SaveSettings(ctx, current); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	client := newClient(cfg)
	msg, err := client.UpdateSettings(ctx, current)
	if err != nil {
		return fmt.Errorf("failed to save settings: %s", api.ServerMessage(err, err.Error()))
	}
	logger.Info("settings pushed", zap.String("model", current.Model), zap.String("reply", msg))
	if strings.Contains(msg, "updated") {
		fmt.Fprintln(out, "Settings saved successfully! Agent is updated")
		return nil
	}
	fmt.Fprintln(out, "Settings saved successfully! Initializing agent...")
	if _, err := client.Initialize(ctx); err != nil {
		logger.Warn("agent initialization failed", zap.Error(err))
		return fmt.Errorf("failed to initialize agent: %s", api.ServerMessage(err, err.Error()))
	}
	fmt.Fprintln(out, "Agent initialized successfully!")
	return nil
}

// commandContext cancels on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printTasks(cmd *cobra.Command, list reconcile.TaskList) {
	out := cmd.OutOrStdout()
	if list.Empty() {
		fmt.Fprintln(out, list.Placeholder)
		return
	}
	for _, row := range list.Rows {
		fmt.Fprintf(out, "%-6s %-10s %s\n", row.Key, row.Status, row.Name)
		if row.Description != "" {
			fmt.Fprintf(out, "       %s\n", row.Description)
		}
	}
}

func printSettings(cmd *cobra.Command, s types.Settings) {
	out := cmd.OutOrStdout()
	key := ""
	if s.APIKey != "" {
		key = "********"
	}
	fmt.Fprintf(out, "Model:       %s\n", orNone(s.Model))
	fmt.Fprintf(out, "API key:     %s\n", orNone(key))
	fmt.Fprintf(out, "Temperature: %g\n", s.Temperature)
	fmt.Fprintf(out, "Max tokens:  %d\n", s.MaxTokens)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return types.DetailNone
	}
	return s
}
