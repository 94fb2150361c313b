package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Console.BackendURL != "http://localhost:8000" {
		t.Fatalf("Console.BackendURL = %q, want %q", cfg.Console.BackendURL, "http://localhost:8000")
	}
	if cfg.Console.HighlightInterval != "3s" {
		t.Fatalf("Console.HighlightInterval = %q, want %q", cfg.Console.HighlightInterval, "3s")
	}
	if !cfg.TUI.ShowSheet {
		t.Fatal("TUI.ShowSheet = false, want true")
	}
	if cfg.Server.MaxSteps != 8 {
		t.Fatalf("Server.MaxSteps = %d, want %d", cfg.Server.MaxSteps, 8)
	}
	if cfg.Provider.Default != "anthropic" {
		t.Fatalf("Provider.Default = %q, want %q", cfg.Provider.Default, "anthropic")
	}
	if cfg.Provider.Anthropic.Retry.MaxRetries != 3 {
		t.Fatalf("Provider.Anthropic.Retry.MaxRetries = %d, want %d", cfg.Provider.Anthropic.Retry.MaxRetries, 3)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("validate(Default()) error = %v", err)
	}
}

func TestLoadFromFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[console]
backend_url = "http://file.example:9000"
request_timeout = "30s"
highlight_interval = "5s"

[tui]
theme = "light"
show_sheet = false

[server]
listen_addr = ":9000"
data_dir = "/var/lib/agentdesk"
max_steps = 4

[provider.anthropic]
api_key = "file-key"
model = "file-model"

[provider.anthropic.retry]
max_retries = 9
base_delay = "900ms"
max_delay = "9s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("AGENTDESK_BACKEND_URL", "http://env.example:8080")
	t.Setenv("AGENTDESK_REQUEST_TIMEOUT", "15s")
	t.Setenv("AGENTDESK_DATA_DIR", "/tmp/agentdesk")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("AGENTDESK_ANTHROPIC_MODEL", "env-model")
	t.Setenv("AGENTDESK_ANTHROPIC_RETRY_MAX_RETRIES", "4")

	cfg, err := Load(LoadOptions{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	settings, err := cfg.ConsoleSettings()
	if err != nil {
		t.Fatalf("ConsoleSettings() error = %v", err)
	}
	if settings.BackendURL != "http://env.example:8080" {
		t.Fatalf("BackendURL = %q, want %q", settings.BackendURL, "http://env.example:8080")
	}
	if settings.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %s, want %s", settings.RequestTimeout, 15*time.Second)
	}
	if settings.HighlightInterval != 5*time.Second {
		t.Fatalf("HighlightInterval = %s, want %s", settings.HighlightInterval, 5*time.Second)
	}
	if cfg.TUI.Theme != "light" || cfg.TUI.ShowSheet {
		t.Fatalf("TUI = %+v, want light theme without sheet", cfg.TUI)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Fatalf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":9000")
	}
	if cfg.Server.DataDir != "/tmp/agentdesk" {
		t.Fatalf("DataDir = %q, want %q", cfg.Server.DataDir, "/tmp/agentdesk")
	}
	if cfg.Server.MaxSteps != 4 {
		t.Fatalf("MaxSteps = %d, want %d", cfg.Server.MaxSteps, 4)
	}
	if cfg.Server.SystemPrompt != DefaultSystemPrompt {
		t.Fatalf("SystemPrompt = %q, want default", cfg.Server.SystemPrompt)
	}
	if cfg.Provider.Anthropic.APIKey != "env-key" {
		t.Fatalf("APIKey = %q, want %q", cfg.Provider.Anthropic.APIKey, "env-key")
	}
	if cfg.Provider.Anthropic.Model != "env-model" {
		t.Fatalf("Model = %q, want %q", cfg.Provider.Anthropic.Model, "env-model")
	}
	if cfg.Provider.Anthropic.Retry.MaxRetries != 4 {
		t.Fatalf("MaxRetries = %d, want %d", cfg.Provider.Anthropic.Retry.MaxRetries, 4)
	}
	if cfg.Provider.Anthropic.Retry.BaseDelay != "900ms" {
		t.Fatalf("BaseDelay = %q, want %q", cfg.Provider.Anthropic.Retry.BaseDelay, "900ms")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.toml")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Fatalf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":8000")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "backend scheme", content: "[console]\nbackend_url = \"ftp://host\"\n"},
		{name: "timeout", content: "[console]\nrequest_timeout = \"soon\"\n"},
		{name: "zero interval", content: "[console]\nhighlight_interval = \"0s\"\n"},
		{name: "theme", content: "[tui]\ntheme = \"neon\"\n"},
		{name: "log level", content: "[log]\nlevel = \"loud\"\n"},
		{name: "max steps", content: "[server]\nmax_steps = 0\n"},
		{name: "max tokens", content: "[provider.anthropic]\nmax_tokens = -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config file: %v", err)
			}
			_, err := Load(LoadOptions{Path: path})
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadRejectsBadEnvRetries(t *testing.T) {
	t.Setenv("AGENTDESK_ANTHROPIC_RETRY_MAX_RETRIES", "many")

	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.toml")})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestAnthropicSettingsParsesRetryDurations(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Provider.Anthropic.APIKey = "test-key"
	cfg.Provider.Anthropic.Retry.MaxRetries = 6
	cfg.Provider.Anthropic.Retry.BaseDelay = "650ms"
	cfg.Provider.Anthropic.Retry.MaxDelay = "7s"

	settings, err := cfg.AnthropicSettings()
	if err != nil {
		t.Fatalf("AnthropicSettings() error = %v", err)
	}
	if settings.APIKey != "test-key" {
		t.Fatalf("APIKey = %q, want %q", settings.APIKey, "test-key")
	}
	if settings.MaxTokens != 1024 {
		t.Fatalf("MaxTokens = %d, want %d", settings.MaxTokens, 1024)
	}
	if settings.Retry.BaseDelay != 650*time.Millisecond {
		t.Fatalf("Retry.BaseDelay = %s, want %s", settings.Retry.BaseDelay, 650*time.Millisecond)
	}
	if settings.Retry.MaxDelay != 7*time.Second {
		t.Fatalf("Retry.MaxDelay = %s, want %s", settings.Retry.MaxDelay, 7*time.Second)
	}
}

func TestLogLevelAndFile(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Log.Level = "debug"
	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("LogLevel() error = %v", err)
	}
	if level != zapcore.DebugLevel {
		t.Fatalf("LogLevel() = %s, want debug", level)
	}

	cfg.Log.File = "/tmp/custom.log"
	if got := cfg.ConsoleLogFile(); got != "/tmp/custom.log" {
		t.Fatalf("ConsoleLogFile() = %q, want %q", got, "/tmp/custom.log")
	}
}
