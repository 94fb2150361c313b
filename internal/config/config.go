package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

const (
	defaultBackendURL         = "http://localhost:8000"
	defaultRequestTimeout     = "60s"
	defaultHighlightInterval  = "3s"
	defaultTUITheme           = "dark"
	defaultTUIShowSheet       = true
	defaultLogLevel           = "info"
	defaultListenAddr         = ":8000"
	defaultDataDir            = ".agentdesk"
	defaultMaxSteps           = 8
	defaultProviderName       = "anthropic"
	defaultAnthropicModel     = "claude-sonnet-4-20250514"
	defaultAnthropicVersion   = "2023-06-01"
	defaultAnthropicMaxTokens = 1024
	defaultRetryMaxRetries    = 3
	defaultRetryBaseDelay     = "300ms"
	defaultRetryMaxDelay      = "5s"
	defaultConfigRelativeDir  = ".config/agentdesk"
	defaultConfigFileName     = "config.toml"
	defaultLogFileName        = "agentdesk.log"

	envBackendURL        = "AGENTDESK_BACKEND_URL"
	envRequestTimeout    = "AGENTDESK_REQUEST_TIMEOUT"
	envHighlightInterval = "AGENTDESK_HIGHLIGHT_INTERVAL"
	envLogLevel          = "AGENTDESK_LOG_LEVEL"
	envLogFile           = "AGENTDESK_LOG_FILE"
	envListenAddr        = "AGENTDESK_LISTEN_ADDR"
	envDataDir           = "AGENTDESK_DATA_DIR"
	envProviderDefault   = "AGENTDESK_PROVIDER_DEFAULT"
	envAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	envAnthropicModel    = "AGENTDESK_ANTHROPIC_MODEL"
	envAnthropicBaseURL  = "AGENTDESK_ANTHROPIC_BASE_URL"
	envAnthropicVersion  = "AGENTDESK_ANTHROPIC_VERSION"
	envRetryMaxRetries   = "AGENTDESK_ANTHROPIC_RETRY_MAX_RETRIES"
	envRetryBaseDelay    = "AGENTDESK_ANTHROPIC_RETRY_BASE_DELAY"
	envRetryMaxDelay     = "AGENTDESK_ANTHROPIC_RETRY_MAX_DELAY"
)

// DefaultSystemPrompt instructs the backend agent.
const DefaultSystemPrompt = "You are a logistics assistant that manages shipping slips. " +
	"Use search_slip_info to look slips up and create_investigation_report to record investigations. " +
	"Keep answers short."

var (
	// ErrInvalidConfig indicates malformed configuration input.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the application configuration root.
type Config struct {
	Console  ConsoleConfig  `toml:"console"`
	TUI      TUIConfig      `toml:"tui"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Provider ProviderConfig `toml:"provider"`
}

// ConsoleConfig configures the interactive console's backend connection.
type ConsoleConfig struct {
	BackendURL        string `toml:"backend_url"`
	RequestTimeout    string `toml:"request_timeout"`
	HighlightInterval string `toml:"highlight_interval"`
}

// TUIConfig configures terminal UI defaults.
type TUIConfig struct {
	Theme     string `toml:"theme"`
	ShowSheet bool   `toml:"show_sheet"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	ListenAddr   string   `toml:"listen_addr"`
	DataDir      string   `toml:"data_dir"`
	MaxSteps     int      `toml:"max_steps"`
	SystemPrompt string   `toml:"system_prompt"`
	AutoApprove  []string `toml:"auto_approve"`
}

// ProviderConfig configures model providers.
type ProviderConfig struct {
	Default   string                  `toml:"default"`
	Anthropic AnthropicProviderConfig `toml:"anthropic"`
}

// AnthropicProviderConfig configures Anthropic-specific runtime values.
type AnthropicProviderConfig struct {
	APIKey    string      `toml:"api_key"`
	Model     string      `toml:"model"`
	BaseURL   string      `toml:"base_url"`
	Version   string      `toml:"version"`
	MaxTokens int         `toml:"max_tokens"`
	Retry     RetryConfig `toml:"retry"`
}

// RetryConfig stores retry policy as config-friendly values.
type RetryConfig struct {
	MaxRetries int    `toml:"max_retries"`
	BaseDelay  string `toml:"base_delay"`
	MaxDelay   string `toml:"max_delay"`
}

// LoadOptions controls config loading behavior.
type LoadOptions struct {
	Path string
}

// ConsoleSettings is the parsed console configuration.
type ConsoleSettings struct {
	BackendURL        string
	RequestTimeout    time.Duration
	HighlightInterval time.Duration
}

// AnthropicSettings is a validated Anthropic runtime settings snapshot.
type AnthropicSettings struct {
	APIKey    string
	Model     string
	BaseURL   string
	Version   string
	MaxTokens int
	Retry     AnthropicRetrySettings
}

// AnthropicRetrySettings is the parsed retry policy.
type AnthropicRetrySettings struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Default returns application defaults.
func Default() Config {
	return Config{
		Console: ConsoleConfig{
			BackendURL:        defaultBackendURL,
			RequestTimeout:    defaultRequestTimeout,
			HighlightInterval: defaultHighlightInterval,
		},
		TUI: TUIConfig{
			Theme:     defaultTUITheme,
			ShowSheet: defaultTUIShowSheet,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
		Server: ServerConfig{
			ListenAddr:   defaultListenAddr,
			DataDir:      defaultDataDir,
			MaxSteps:     defaultMaxSteps,
			SystemPrompt: DefaultSystemPrompt,
		},
		Provider: ProviderConfig{
			Default: defaultProviderName,
			Anthropic: AnthropicProviderConfig{
				Model:     defaultAnthropicModel,
				Version:   defaultAnthropicVersion,
				MaxTokens: defaultAnthropicMaxTokens,
				Retry: RetryConfig{
					MaxRetries: defaultRetryMaxRetries,
					BaseDelay:  defaultRetryBaseDelay,
					MaxDelay:   defaultRetryMaxDelay,
				},
			},
		},
	}
}

// Load reads config file then applies environment variable overrides.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = DefaultPath()
	}

	if err := mergeConfigFile(&cfg, path); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConsoleSettings returns the parsed console settings.
func (c Config) ConsoleSettings() (ConsoleSettings, error) {
	backendURL := strings.TrimSpace(c.Console.BackendURL)
	parsed, err := url.Parse(backendURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ConsoleSettings{}, fmt.Errorf("%w: console.backend_url %q must be an http(s) url", ErrInvalidConfig, backendURL)
	}
	timeout, err := parsePositiveDuration("console.request_timeout", c.Console.RequestTimeout)
	if err != nil {
		return ConsoleSettings{}, err
	}
	interval, err := parsePositiveDuration("console.highlight_interval", c.Console.HighlightInterval)
	if err != nil {
		return ConsoleSettings{}, err
	}
	return ConsoleSettings{
		BackendURL:        backendURL,
		RequestTimeout:    timeout,
		HighlightInterval: interval,
	}, nil
}

// AnthropicSettings returns validated settings suitable for runtime wiring.
func (c Config) AnthropicSettings() (AnthropicSettings, error) {
	baseDelay, err := time.ParseDuration(strings.TrimSpace(c.Provider.Anthropic.Retry.BaseDelay))
	if err != nil {
		return AnthropicSettings{}, fmt.Errorf("%w: parse anthropic retry base_delay: %v", ErrInvalidConfig, err)
	}
	maxDelay, err := time.ParseDuration(strings.TrimSpace(c.Provider.Anthropic.Retry.MaxDelay))
	if err != nil {
		return AnthropicSettings{}, fmt.Errorf("%w: parse anthropic retry max_delay: %v", ErrInvalidConfig, err)
	}
	if c.Provider.Anthropic.Retry.MaxRetries < 0 {
		return AnthropicSettings{}, fmt.Errorf("%w: anthropic retry max_retries must be >= 0", ErrInvalidConfig)
	}
	if c.Provider.Anthropic.MaxTokens <= 0 {
		return AnthropicSettings{}, fmt.Errorf("%w: provider.anthropic.max_tokens must be > 0", ErrInvalidConfig)
	}

	return AnthropicSettings{
		APIKey:    strings.TrimSpace(c.Provider.Anthropic.APIKey),
		Model:     strings.TrimSpace(c.Provider.Anthropic.Model),
		BaseURL:   strings.TrimSpace(c.Provider.Anthropic.BaseURL),
		Version:   strings.TrimSpace(c.Provider.Anthropic.Version),
		MaxTokens: c.Provider.Anthropic.MaxTokens,
		Retry: AnthropicRetrySettings{
			MaxRetries: c.Provider.Anthropic.Retry.MaxRetries,
			BaseDelay:  baseDelay,
			MaxDelay:   maxDelay,
		},
	}, nil
}

// LogLevel parses the configured log level.
func (c Config) LogLevel() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(c.Log.Level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}

// ConsoleLogFile is where the console writes its log. The terminal belongs to
// the UI, so the console never logs to stderr.
func (c Config) ConsoleLogFile() string {
	if file := strings.TrimSpace(c.Log.File); file != "" {
		return file
	}
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, defaultLogFileName)
}

func mergeConfigFile(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	overrideString(&cfg.Console.BackendURL, envBackendURL)
	overrideString(&cfg.Console.RequestTimeout, envRequestTimeout)
	overrideString(&cfg.Console.HighlightInterval, envHighlightInterval)
	overrideString(&cfg.Log.Level, envLogLevel)
	overrideString(&cfg.Log.File, envLogFile)
	overrideString(&cfg.Server.ListenAddr, envListenAddr)
	overrideString(&cfg.Server.DataDir, envDataDir)
	overrideString(&cfg.Provider.Default, envProviderDefault)
	if value, ok := os.LookupEnv(envAnthropicAPIKey); ok {
		cfg.Provider.Anthropic.APIKey = value
	}
	overrideString(&cfg.Provider.Anthropic.Model, envAnthropicModel)
	overrideString(&cfg.Provider.Anthropic.BaseURL, envAnthropicBaseURL)
	overrideString(&cfg.Provider.Anthropic.Version, envAnthropicVersion)
	if value, ok := os.LookupEnv(envRetryMaxRetries); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, envRetryMaxRetries, err)
		}
		cfg.Provider.Anthropic.Retry.MaxRetries = parsed
	}
	overrideString(&cfg.Provider.Anthropic.Retry.BaseDelay, envRetryBaseDelay)
	overrideString(&cfg.Provider.Anthropic.Retry.MaxDelay, envRetryMaxDelay)
	return nil
}

func overrideString(dst *string, env string) {
	if value, ok := os.LookupEnv(env); ok && strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func validate(cfg Config) error {
	if _, err := cfg.ConsoleSettings(); err != nil {
		return err
	}
	switch strings.TrimSpace(cfg.TUI.Theme) {
	case "dark", "light":
	default:
		return fmt.Errorf("%w: tui.theme must be dark or light, got %q", ErrInvalidConfig, cfg.TUI.Theme)
	}
	if _, err := cfg.LogLevel(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		return fmt.Errorf("%w: server.listen_addr is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Server.DataDir) == "" {
		return fmt.Errorf("%w: server.data_dir is required", ErrInvalidConfig)
	}
	if cfg.Server.MaxSteps <= 0 {
		return fmt.Errorf("%w: server.max_steps must be > 0", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Provider.Default) == "" {
		return fmt.Errorf("%w: provider.default is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Provider.Anthropic.Model) == "" {
		return fmt.Errorf("%w: provider.anthropic.model is required", ErrInvalidConfig)
	}
	if _, err := cfg.AnthropicSettings(); err != nil {
		return err
	}
	return nil
}

func parsePositiveDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be > 0", ErrInvalidConfig, field)
	}
	return d, nil
}

// DefaultDir is the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigRelativeDir)
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, defaultConfigFileName)
}
