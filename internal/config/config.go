package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type InterpreterKind string

const (
	InterpreterRules InterpreterKind = "rules"
	InterpreterGroq  InterpreterKind = "groq"
)

const (
	DefaultAPIBaseURL      = "http://127.0.0.1:8000/api"
	DefaultAPITimeout      = "10s"
	DefaultServerBind      = "127.0.0.1:8000"
	DefaultAPIEndpoint     = "/api"
	DefaultMCPEndpoint     = "/mcp"
	DefaultAssistantURL    = "https://api.groq.com/openai/v1"
	DefaultAssistantModel  = "llama-3.3-70b-versatile"
	DefaultAssistantKeyEnv = "GROQ_API_KEY"
)

type Config struct {
	API       APIConfig       `toml:"api"`
	UI        UIConfig        `toml:"ui"`
	Logging   LoggingConfig   `toml:"logging"`
	Server    ServerConfig    `toml:"server"`
	Assistant AssistantConfig `toml:"assistant"`
}

type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type UIConfig struct {
	DefaultFilter    string `toml:"default_filter"`
	ShowAssistant    bool   `toml:"show_assistant"`
	ShowDescriptions bool   `toml:"show_descriptions"`
}

type LoggingConfig struct {
	Level   string           `toml:"level"`
	DevFile DevFileLogConfig `toml:"dev_file"`
}

type DevFileLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	DBPath      string `toml:"db_path"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type AssistantConfig struct {
	Interpreter InterpreterKind `toml:"interpreter"`
	BaseURL     string          `toml:"base_url"`
	Model       string          `toml:"model"`
	APIKeyEnv   string          `toml:"api_key_env"`
}

func Default(dbPath string) Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		UI: UIConfig{
			DefaultFilter:    "ALL",
			ShowAssistant:    true,
			ShowDescriptions: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileLogConfig{
				Enabled: true,
				Dir:     ".taskdeck/log",
			},
		},
		Server: ServerConfig{
			Bind:        DefaultServerBind,
			DBPath:      dbPath,
			APIEndpoint: DefaultAPIEndpoint,
			MCPEndpoint: DefaultMCPEndpoint,
		},
		Assistant: AssistantConfig{
			Interpreter: InterpreterRules,
			BaseURL:     DefaultAssistantURL,
			Model:       DefaultAssistantModel,
			APIKeyEnv:   DefaultAssistantKeyEnv,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if _, err := c.APITimeout(); err != nil {
		return err
	}

	switch strings.ToUpper(strings.TrimSpace(c.UI.DefaultFilter)) {
	case "", "ALL", "NOT_STARTED", "IN_PROGRESS", "COMPLETED":
	default:
		return fmt.Errorf("invalid ui.default_filter: %q", c.UI.DefaultFilter)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if strings.TrimSpace(c.Server.DBPath) == "" {
		return errors.New("server.db_path is required")
	}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with '/': %q", name, endpoint)
		}
	}

	switch c.Assistant.Interpreter {
	case InterpreterRules:
	case InterpreterGroq:
		if err := validateHTTPURL("assistant.base_url", c.Assistant.BaseURL); err != nil {
			return err
		}
		if strings.TrimSpace(c.Assistant.Model) == "" {
			return errors.New("assistant.model is required for the groq interpreter")
		}
		if strings.TrimSpace(c.Assistant.APIKeyEnv) == "" {
			return errors.New("assistant.api_key_env is required for the groq interpreter")
		}
	default:
		return fmt.Errorf("invalid assistant.interpreter: %q", c.Assistant.Interpreter)
	}

	return nil
}

// APITimeout parses api.timeout; blank means the default.
func (c Config) APITimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.API.Timeout)
	if raw == "" {
		raw = DefaultAPITimeout
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid api.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("invalid api.timeout: %q must be positive", c.API.Timeout)
	}
	return timeout, nil
}

// Save validates cfg and writes it to path as TOML.
func Save(path string, cfg Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func validateHTTPURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q must be an http(s) url", field, raw)
	}
	return nil
}
