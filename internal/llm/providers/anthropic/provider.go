package anthropicprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"agentdesk/internal/llm/core"
)

// Config configures the Anthropic provider.
type Config struct {
	APIKey     string
	BaseURL    string
	Version    string
	HTTPClient *http.Client
	Retry      core.RetryPolicy
	Logger     *zap.Logger
}

// Provider is a thin wrapper around the official anthropic-sdk-go client.
type Provider struct {
	apiKey string
	retry  core.RetryPolicy
	logger *zap.Logger

	client anthropic.Client
}

// New constructs a provider with sane defaults.
func New(cfg Config) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	version := strings.TrimSpace(cfg.Version)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	clientOptions := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0), // retries are driven by core.Do
	}
	if baseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(baseURL))
	}
	if version != "" {
		clientOptions = append(clientOptions, option.WithHeader("anthropic-version", version))
	}

	return &Provider{
		apiKey: apiKey,
		retry:  core.NormalizeRetryPolicy(cfg.Retry),
		logger: logger,
		client: anthropic.NewClient(clientOptions...),
	}
}

// Complete sends one Messages API request, retrying transient failures.
func (p *Provider) Complete(ctx context.Context, req *core.Request) (*core.Response, error) {
	if p == nil {
		return nil, errors.New("anthropic provider is nil")
	}
	if strings.TrimSpace(p.apiKey) == "" {
		return nil, core.ErrMissingAPIKey
	}

	params, err := toAnthropicSDKParams(req)
	if err != nil {
		return nil, err
	}

	var msg *anthropic.Message
	retry := core.MergeRetryPolicy(p.retry, req.Retry)
	err = core.Do(ctx, retry, func(attempt int) error {
		if attempt > 0 {
			p.logger.Info("retrying anthropic request", zap.Int("attempt", attempt), zap.String("model", req.Model))
		}
		out, err := p.client.Messages.New(ctx, params)
		if err != nil {
			wrapped := fmt.Errorf("anthropic messages: %w", err)
			if isRetryableProviderError(err) {
				return core.MarkRetryable(wrapped)
			}
			return wrapped
		}
		msg = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := fromSDKMessage(msg)
	p.logger.Debug("anthropic completion",
		zap.String("model", req.Model),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)
	return resp, nil
}
