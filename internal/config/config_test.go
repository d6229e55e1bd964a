package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/taskdeck.db")
	if cfg.Server.DBPath != "/tmp/taskdeck.db" {
		t.Fatalf("unexpected db path %q", cfg.Server.DBPath)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Fatalf("unexpected api base url %q", cfg.API.BaseURL)
	}
	if cfg.UI.DefaultFilter != "ALL" || !cfg.UI.ShowAssistant {
		t.Fatalf("unexpected ui defaults %#v", cfg.UI)
	}
	if cfg.Assistant.Interpreter != InterpreterRules {
		t.Fatalf("unexpected interpreter %q", cfg.Assistant.Interpreter)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	timeout, err := cfg.APITimeout()
	if err != nil || timeout != 10*time.Second {
		t.Fatalf("APITimeout() = %v, %v", timeout, err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/taskdeck.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.DBPath != defaults.Server.DBPath {
		t.Fatalf("expected default db path, got %q", cfg.Server.DBPath)
	}
}

func TestLoadEmptyPathAndFileUseDefaults(t *testing.T) {
	defaults := Default("/tmp/taskdeck.db")
	if cfg, err := Load("  ", defaults); err != nil || cfg.API != defaults.API {
		t.Fatalf("Load(blank) = %#v, %v", cfg, err)
	}
	if cfg, err := Load(writeConfig(t, ""), defaults); err != nil || cfg.API != defaults.API {
		t.Fatalf("Load(empty file) = %#v, %v", cfg, err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://tasks.example.com/api"
timeout = "3s"

[ui]
default_filter = "in_progress"
show_assistant = false

[logging]
level = "debug"

[server]
bind = "0.0.0.0:9000"

[assistant]
interpreter = "groq"
model = "llama-3.1-8b-instant"
`)

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://tasks.example.com/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if timeout, _ := cfg.APITimeout(); timeout != 3*time.Second {
		t.Fatalf("unexpected timeout %v", timeout)
	}
	if cfg.UI.ShowAssistant {
		t.Fatal("expected assistant hidden from config override")
	}
	if !cfg.UI.ShowDescriptions {
		t.Fatal("expected unset keys to keep defaults")
	}
	if cfg.Server.Bind != "0.0.0.0:9000" || cfg.Server.DBPath != "/tmp/default.db" {
		t.Fatalf("unexpected server config %#v", cfg.Server)
	}
	if cfg.Assistant.Interpreter != InterpreterGroq || cfg.Assistant.APIKeyEnv != DefaultAssistantKeyEnv {
		t.Fatalf("unexpected assistant config %#v", cfg.Assistant)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		content string
		want    string
	}{
		"bad url":         {"[api]\nbase_url = \"ftp://x\"\n", "api.base_url"},
		"bad timeout":     {"[api]\ntimeout = \"soon\"\n", "api.timeout"},
		"negative":        {"[api]\ntimeout = \"-1s\"\n", "api.timeout"},
		"bad filter":      {"[ui]\ndefault_filter = \"SOMEDAY\"\n", "ui.default_filter"},
		"bad level":       {"[logging]\nlevel = \"loud\"\n", "logging.level"},
		"bad endpoint":    {"[server]\napi_endpoint = \"api\"\n", "server.api_endpoint"},
		"bad interpreter": {"[assistant]\ninterpreter = \"magic\"\n", "assistant.interpreter"},
		"broken toml":     {"[api\n", "decode toml"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content), Default("/tmp/default.db"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default("/tmp/taskdeck.db")
	cfg.UI.DefaultFilter = "IN_PROGRESS"
	cfg.API.Timeout = "3s"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path, Default("/other.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.UI.DefaultFilter != "IN_PROGRESS" || loaded.Server.DBPath != "/tmp/taskdeck.db" {
		t.Fatalf("unexpected round-trip config %#v", loaded)
	}
	if timeout, _ := loaded.APITimeout(); timeout != 3*time.Second {
		t.Fatalf("unexpected timeout %s", timeout)
	}

	bad := cfg
	bad.Assistant.Interpreter = "oracle"
	if err := Save(path, bad); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	if err := Save(" ", cfg); err == nil {
		t.Fatal("expected blank path to be rejected")
	}
}
