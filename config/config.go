package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	TelegramToken     string   `yaml:"telegram_token"`
	ChatID            string   `yaml:"chat_id"`
	CryptoPanicAPIKey string   `yaml:"cryptopanic_api_key"`
	Port              string   `yaml:"port" validate:"omitempty,numeric"`
	Currencies        []string `yaml:"currencies" validate:"dive,alphanum"`
	Filter            string   `yaml:"filter" validate:"omitempty,oneof=rising hot bullish bearish important saved lol"`
	Kind              string   `yaml:"kind" validate:"oneof=news media all"`
	PollIntervalSecs  int      `yaml:"poll_interval_secs" validate:"gte=1"`
	PollSchedule      string   `yaml:"poll_schedule"`
	Timezone          string   `yaml:"timezone" validate:"required,timezone"`
	FetchTimeoutSecs  int      `yaml:"fetch_timeout_secs" validate:"gte=1"`
	SendTimeoutSecs   int      `yaml:"send_timeout_secs" validate:"gte=1"`
	DeliveryPauseMs   int      `yaml:"delivery_pause_ms" validate:"gte=0"`
	SkipTitleLookup   bool     `yaml:"skip_title_lookup"`
	JournalPath       string   `yaml:"journal_path"`
	LogLevel          string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	Tracing           Tracing  `yaml:"tracing"`
}

// Tracing configures the OTLP trace exporter.
type Tracing struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`
}

var defaultCurrencies = []string{"BTC", "ETH", "XRP", "SOL", "BNB", "ADA"}

var validate = validator.New()

// Load reads configuration from a YAML file, applies defaults and environment
// overrides, then validates the result. A missing file is not an error so the
// bot can run from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding the real
// environment. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("CRYPTO_NEWS_BOT_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// PollInterval returns the fixed delay between cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// FetchTimeout returns the CryptoPanic request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// SendTimeout returns the Telegram request timeout.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSecs) * time.Second
}

// DeliveryPause returns the pause between consecutive deliveries.
func (c *Config) DeliveryPause() time.Duration {
	return time.Duration(c.DeliveryPauseMs) * time.Millisecond
}

func applyDefaults(cfg *Config) {
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = append([]string(nil), defaultCurrencies...)
	}
	if cfg.Filter == "" {
		cfg.Filter = "important"
	}
	if cfg.Kind == "" {
		cfg.Kind = "news"
	}
	if cfg.PollIntervalSecs == 0 {
		cfg.PollIntervalSecs = 600
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 15
	}
	if cfg.SendTimeoutSecs == 0 {
		cfg.SendTimeoutSecs = 10
	}
	if cfg.DeliveryPauseMs == 0 {
		cfg.DeliveryPauseMs = 1000
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = ":memory:"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) error {
	strVars := map[string]*string{
		"TELEGRAM_BOT_TOKEN":          &cfg.TelegramToken,
		"TELEGRAM_CHAT_ID":            &cfg.ChatID,
		"CRYPTOPANIC_API_KEY":         &cfg.CryptoPanicAPIKey,
		"PORT":                        &cfg.Port,
		"NEWS_FILTER":                 &cfg.Filter,
		"NEWS_KIND":                   &cfg.Kind,
		"POLL_SCHEDULE":               &cfg.PollSchedule,
		"LOG_LEVEL":                   &cfg.LogLevel,
		"JOURNAL_PATH":                &cfg.JournalPath,
		"OTEL_EXPORTER_OTLP_ENDPOINT": &cfg.Tracing.Endpoint,
	}
	for name, field := range strVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("TRACKED_CURRENCIES"); strings.TrimSpace(v) != "" {
		cfg.Currencies = splitCurrencies(v)
	}

	if v := strings.TrimSpace(os.Getenv("POLL_INTERVAL_SECS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POLL_INTERVAL_SECS: %w", err)
		}
		cfg.PollIntervalSecs = n
	}

	if v := strings.TrimSpace(os.Getenv("OTEL_TRACING_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_TRACING_ENABLED: %w", err)
		}
		cfg.Tracing.Enabled = enabled
	}

	return nil
}

func splitCurrencies(s string) []string {
	var codes []string
	for _, part := range strings.Split(s, ",") {
		if code := strings.ToUpper(strings.TrimSpace(part)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
