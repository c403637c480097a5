package main

import (
	"fmt"
	"os"
	"path/filepath"

	"agentconsole/internal/config"
	"agentconsole/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	serverURL  string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "agentconsole",
	Short: "Terminal console for an autonomous agent backend",
	Long: `agentconsole keeps a live view of an agent backend: chat, the task
planner, and the agent's terminal and notebook output.

Run without arguments to start the interactive console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if err := logging.Initialize(workspace, cfg.Logging.ToLogging()); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		logging.Boot("agentconsole %s: workspace %s, backend %s", cmd.Name(), workspace, cfg.Server.BaseURL)

		// The interactive console owns the terminal; it logs to files only.
		if cmd == cmd.Root() {
			return nil
		}

		encoder := zap.NewProductionEncoderConfig()
		encoder.EncodeTime = zapcore.ISO8601TimeEncoder
		level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		logger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoder),
			zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())),
			level,
		))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.agentconsole/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "Agent backend base URL (overrides config)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.BootError("%v", err)
		logging.CloseAll()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the workspace and reads the config file.
func loadConfig() error {
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}
		workspace = wd
	}
	if configPath == "" {
		configPath = filepath.Join(workspace, ".agentconsole", "config.yaml")
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		loaded.Server.BaseURL = serverURL
	}
	if verbose {
		loaded.Logging.DebugMode = true
		loaded.Logging.Level = "debug"
	}
	if !filepath.IsAbs(loaded.Storage.Path) {
		loaded.Storage.Path = filepath.Join(workspace, loaded.Storage.Path)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	cfg = loaded
	return nil
}
