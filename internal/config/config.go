package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level kaidibot configuration.
type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Provider ProviderConfig `yaml:"provider"`
	Chat     ChatConfig     `yaml:"chat"`
	Order    OrderConfig    `yaml:"order"`
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Workers  int            `yaml:"workers"`
}

// BotConfig holds platform app credentials and identity.
type BotConfig struct {
	Name              string `yaml:"name"` // matched against the leading mention in group chats
	AppID             string `yaml:"app_id"`
	AppSecret         string `yaml:"app_secret"`
	VerificationToken string `yaml:"verification_token"`
	EncryptKey        string `yaml:"encrypt_key,omitempty"`
	DataDir           string `yaml:"data_dir"`
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Type    string `yaml:"type,omitempty"` // "openai" (default) or "anthropic"
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// ChatConfig tunes the streaming responder.
type ChatConfig struct {
	FlushIntervalMS  int `yaml:"flush_interval_ms,omitempty"` // default 700
	MaxStreamSeconds int `yaml:"max_stream_seconds,omitempty"` // default 300
}

// FlushInterval returns the configured throttle interval.
func (c ChatConfig) FlushInterval() time.Duration {
	if c.FlushIntervalMS <= 0 {
		return 700 * time.Millisecond
	}
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// MaxStreamDuration returns the hard cap on a single completion stream.
func (c ChatConfig) MaxStreamDuration() time.Duration {
	if c.MaxStreamSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.MaxStreamSeconds) * time.Second
}

// OrderConfig holds work-order settings.
type OrderConfig struct {
	Assistant     string `yaml:"assistant"`                // default operator user id
	GracePeriod   string `yaml:"grace_period,omitempty"`   // Go duration string, default 48h
	SweepSchedule string `yaml:"sweep_schedule,omitempty"` // cron spec, default hourly 01-18
}

// Grace returns the parsed grace period. Validate guarantees parseability.
func (c OrderConfig) Grace() time.Duration {
	if c.GracePeriod == "" {
		return 48 * time.Hour
	}
	d, err := time.ParseDuration(c.GracePeriod)
	if err != nil {
		return 48 * time.Hour
	}
	return d
}

// Schedule returns the sweep cron spec.
func (c OrderConfig) Schedule() string {
	if c.SweepSchedule == "" {
		return "0 1-18 * * *"
	}
	return c.SweepSchedule
}

// ServerConfig holds webhook listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AdminConfig holds admin REST server settings.
type AdminConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Key  string `yaml:"api_key,omitempty"` // Bearer auth, empty disables auth
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a minimal config from environment variables with KAIDI_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Bot: BotConfig{
			Name:              getenv("KAIDI_BOT_NAME", "KaiDiLark"),
			AppID:             os.Getenv("KAIDI_APP_ID"),
			AppSecret:         os.Getenv("KAIDI_APP_SECRET"),
			VerificationToken: os.Getenv("KAIDI_VERIFICATION_TOKEN"),
			EncryptKey:        os.Getenv("KAIDI_ENCRYPT_KEY"),
			DataDir:           getenv("KAIDI_DATA_DIR", "/data"),
		},
		Order: OrderConfig{
			Assistant:     os.Getenv("KAIDI_ORDER_ASSISTANT"),
			GracePeriod:   os.Getenv("KAIDI_ORDER_GRACE_PERIOD"),
			SweepSchedule: os.Getenv("KAIDI_ORDER_SWEEP_SCHEDULE"),
		},
		Server: ServerConfig{
			Host: getenv("KAIDI_HOST", "0.0.0.0"),
			Port: getenvInt("KAIDI_PORT", 7788),
		},
		Admin: AdminConfig{
			Host: getenv("KAIDI_ADMIN_HOST", "127.0.0.1"),
			Port: getenvInt("KAIDI_ADMIN_PORT", 8080),
			Key:  os.Getenv("KAIDI_ADMIN_KEY"),
		},
		Workers: getenvInt("KAIDI_WORKERS", 8),
	}

	if key := os.Getenv("KAIDI_ANTHROPIC_API_KEY"); key != "" {
		cfg.Provider = ProviderConfig{
			Type:   "anthropic",
			APIKey: key,
			Model:  getenv("KAIDI_MODEL", "claude-sonnet-4-20250514"),
		}
	} else if key := os.Getenv("KAIDI_OPENAI_API_KEY"); key != "" {
		cfg.Provider = ProviderConfig{
			Type:    "openai",
			APIKey:  key,
			BaseURL: os.Getenv("KAIDI_OPENAI_BASE_URL"),
			Model:   getenv("KAIDI_MODEL", "gpt-4o"),
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7788
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 8080
	}
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Bot.Name == "" {
		errs = append(errs, "bot.name is required")
	}
	if c.Bot.AppID == "" {
		errs = append(errs, "bot.app_id is required")
	}
	if c.Bot.AppSecret == "" {
		errs = append(errs, "bot.app_secret is required")
	}
	if c.Bot.VerificationToken == "" {
		errs = append(errs, "bot.verification_token is required")
	}
	if c.Bot.DataDir == "" {
		errs = append(errs, "bot.data_dir is required")
	}

	if c.Provider.APIKey == "" {
		errs = append(errs, "provider.api_key is required")
	}
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model is required")
	}
	switch c.Provider.Type {
	case "", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("provider.type %q is not supported", c.Provider.Type))
	}

	if c.Order.Assistant == "" {
		errs = append(errs, "order.assistant is required")
	}
	if c.Order.GracePeriod != "" {
		if _, err := time.ParseDuration(c.Order.GracePeriod); err != nil {
			errs = append(errs, fmt.Sprintf("order.grace_period %q is not a duration", c.Order.GracePeriod))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
