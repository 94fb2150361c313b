package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentdesk/internal/agent"
	"agentdesk/internal/checkpoint"
	"agentdesk/internal/config"
	"agentdesk/internal/ledger"
	"agentdesk/internal/llm"
	"agentdesk/internal/logging"
	"agentdesk/internal/server"
	"agentdesk/internal/tools"
)

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference backend over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{Path: strings.TrimSpace(*configPath)})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if a := strings.TrimSpace(addr); a != "" {
				cfg.Server.ListenAddr = a
			}

			level, err := cfg.LogLevel()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: level, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			provider, model, err := buildProviderFromConfig(cfg, logger)
			if err != nil {
				return fmt.Errorf("build provider: %w", err)
			}

			backend, err := buildBackend(cfg, provider, model, logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := logThreads(ctx, backend.Threads, logger); err != nil {
				logger.Warn("list stored threads", zap.Error(err))
			}

			logger.Info("backend listening",
				zap.String("addr", cfg.Server.ListenAddr),
				zap.String("data_dir", cfg.Server.DataDir),
				zap.String("model", model),
			)
			return backend.Server.ListenAndServe(ctx, cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.listen_addr)")
	return cmd
}

// backend bundles the served handler with the resources it owns.
type backend struct {
	Server *server.Server
	Ledger  *ledger.Ledger
	Threads *checkpoint.Store
	Runner  *agent.Runner
}

func (b *backend) Close() {
	if b.Ledger != nil {
		_ = b.Ledger.Close()
	}
}

func buildBackend(cfg config.Config, provider llm.Provider, model string, logger *zap.Logger) (*backend, error) {
	dataDir := strings.TrimSpace(cfg.Server.DataDir)

	store, err := ledger.Open(filepath.Join(dataDir, ledger.DefaultFileName))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	b := &backend{Ledger: store}

	registry, err := tools.NewSlipTools(store)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	threads, err := checkpoint.NewStore(checkpoint.DefaultDir(dataDir))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	b.Threads = threads

	maxTokens := cfg.Provider.Anthropic.MaxTokens
	runner, err := agent.New(agent.Config{
		Provider:     provider,
		ToolRegistry: registry,
		Store:        threads,
		Model:        model,
		System:       cfg.Server.SystemPrompt,
		MaxTokens:    maxTokens,
		MaxSteps:     cfg.Server.MaxSteps,
		AutoApprove:  cfg.Server.AutoApprove,
		Logger:       logger.Named("agent"),
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create agent: %w", err)
	}
	b.Runner = runner

	srv, err := server.New(server.Config{
		Agent:  runner,
		Ledger: store,
		Logger: logger.Named("http"),
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create server: %w", err)
	}
	b.Server = srv
	return b, nil
}

// logThreads reports the conversation threads a restarted backend can resume.
func logThreads(ctx context.Context, threads *checkpoint.Store, logger *zap.Logger) ([]checkpoint.ThreadInfo, error) {
	infos, err := threads.List(ctx)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("dir", threads.Dir()),
		zap.Int("threads", len(infos)),
	}
	if len(infos) > 0 {
		fields = append(fields,
			zap.String("latest", infos[0].ID),
			zap.Time("latest_updated_at", infos[0].UpdatedAt),
		)
	}
	logger.Info("stored threads", fields...)
	return infos, nil
}

func buildProviderFromConfig(cfg config.Config, logger *zap.Logger) (llm.Provider, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider.Default)) {
	case "", "anthropic":
		settings, err := cfg.AnthropicSettings()
		if err != nil {
			return nil, "", fmt.Errorf("resolve anthropic settings: %w", err)
		}
		if strings.TrimSpace(settings.APIKey) == "" {
			return nil, "", llm.ErrMissingAPIKey
		}

		provider := llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Version: settings.Version,
			Retry: llm.RetryPolicy{
				MaxRetries: settings.Retry.MaxRetries,
				BaseDelay:  settings.Retry.BaseDelay,
				MaxDelay:   settings.Retry.MaxDelay,
			},
			Logger: logger.Named("anthropic"),
		})
		return provider, settings.Model, nil
	default:
		return nil, "", fmt.Errorf("%w: %s", errUnsupportedProvider, cfg.Provider.Default)
	}
}
