package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
bot:
  name: KaiDiLark
  app_id: cli_123
  app_secret: secret
  verification_token: vtok
  data_dir: /tmp/kaidibot
provider:
  api_key: sk-test
  model: gpt-4o
order:
  assistant: A1
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Name != "KaiDiLark" {
		t.Errorf("bot.name = %q", cfg.Bot.Name)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("provider.model = %q", cfg.Provider.Model)
	}
	if cfg.Workers != 8 {
		t.Errorf("default workers = %d", cfg.Workers)
	}
	if cfg.Server.Port != 7788 {
		t.Errorf("default server.port = %d", cfg.Server.Port)
	}
}

func TestLoadMissingFields(t *testing.T) {
	_, err := Load(writeConfig(t, "bot:\n  name: x\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGraceDefault(t *testing.T) {
	var o OrderConfig
	if o.Grace() != 48*time.Hour {
		t.Errorf("default grace = %v", o.Grace())
	}
	o.GracePeriod = "30m"
	if o.Grace() != 30*time.Minute {
		t.Errorf("grace = %v", o.Grace())
	}
}

func TestGracePeriodValidation(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+"  grace_period: soon\n"))
	if err == nil {
		t.Fatal("expected error for bad grace_period")
	}
}

func TestChatDefaults(t *testing.T) {
	var c ChatConfig
	if c.FlushInterval() != 700*time.Millisecond {
		t.Errorf("flush interval = %v", c.FlushInterval())
	}
	if c.MaxStreamDuration() != 5*time.Minute {
		t.Errorf("max stream = %v", c.MaxStreamDuration())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KAIDI_APP_ID", "cli_env")
	t.Setenv("KAIDI_APP_SECRET", "s")
	t.Setenv("KAIDI_VERIFICATION_TOKEN", "v")
	t.Setenv("KAIDI_ORDER_ASSISTANT", "A1")
	t.Setenv("KAIDI_OPENAI_API_KEY", "sk-env")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Provider.Type != "openai" || cfg.Provider.APIKey != "sk-env" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Bot.Name != "KaiDiLark" {
		t.Errorf("bot.name = %q", cfg.Bot.Name)
	}
}
