package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentdesk/internal/config"
	"agentdesk/internal/logging"
	"agentdesk/internal/turn"
	"agentdesk/internal/tui"
)

const (
	version            = "v0.1.0"
	healthCheckTimeout = 2 * time.Second
)

var errUnsupportedProvider = errors.New("unsupported provider")

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "agentdesk: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		backendURL string
		agentID    string
	)

	cmd := &cobra.Command{
		Use:           "agentdesk",
		Short:         "agentdesk is a terminal console for approval-gated agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{Path: strings.TrimSpace(configPath)})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if url := strings.TrimSpace(backendURL); url != "" {
				cfg.Console.BackendURL = url
			}
			return runConsole(cfg, strings.TrimSpace(agentID))
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "Backend base URL (overrides console.backend_url)")
	cmd.Flags().StringVar(&agentID, "agent", "", "Open this agent directly instead of the portal")
	cmd.AddCommand(newServeCmd(&configPath))
	return cmd
}

func runConsole(cfg config.Config, agentID string) error {
	settings, err := cfg.ConsoleSettings()
	if err != nil {
		return fmt.Errorf("resolve console settings: %w", err)
	}
	logger, err := consoleLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := turn.NewClient(turn.ClientConfig{
		BaseURL: settings.BackendURL,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	app := tui.NewApp(tui.AppConfig{
		Version:           version,
		BackendURL:        client.BaseURL(),
		ThemeName:         cfg.TUI.Theme,
		ShowSheet:         cfg.TUI.ShowSheet,
		Transport:         client,
		Records:           client,
		RequestTimeout:    settings.RequestTimeout,
		HighlightInterval: settings.HighlightInterval,
		Agent:             agentID,
		Logger:            logger,
	})
	defer app.Close()

	logger.Info("console starting", zap.String("backend", client.BaseURL()))
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	if err := client.Health(ctx); err != nil {
		// The first turn reports the failure in the chat; keep starting.
		logger.Warn("backend health check failed", zap.Error(err))
	}
	cancel()

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// consoleLogger writes to a file because the terminal belongs to the UI.
func consoleLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	file := cfg.ConsoleLogFile()
	if file == "" {
		return zap.NewNop(), nil
	}
	return logging.NewOrNop(logging.Options{Level: level, File: file}), nil
}
