// Package config loads WebVision settings from a YAML file, environment
// variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WEBVISION_LLM_API_KEY.
const EnvPrefix = "WEBVISION"

// Config is the full settings tree.
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Profile ProfileConfig `mapstructure:"profile" yaml:"profile"`
}

// AgentConfig controls the control loop.
type AgentConfig struct {
	StepBudget     int    `mapstructure:"step_budget" yaml:"step_budget"`
	RecursionLimit int    `mapstructure:"recursion_limit" yaml:"recursion_limit"`
	StartURL       string `mapstructure:"start_url" yaml:"start_url"`
	PageTokenLimit int    `mapstructure:"page_token_limit" yaml:"page_token_limit"`
}

// LLMConfig selects and authenticates the reasoning provider.
type LLMConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Model             string  `mapstructure:"model" yaml:"model"`
	InsightModel      string  `mapstructure:"insight_model" yaml:"insight_model"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// BrowserConfig selects the browser driver.
type BrowserConfig struct {
	Driver       string   `mapstructure:"driver" yaml:"driver"`
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	Browser      string   `mapstructure:"browser" yaml:"browser"`
	MaxSessions  int      `mapstructure:"max_sessions" yaml:"max_sessions"`
	BlockedHosts []string `mapstructure:"blocked_hosts" yaml:"blocked_hosts"`
	AllowedHosts []string `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// StoreConfig selects run persistence. An empty DSN keeps runs in memory.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// ProfileConfig controls per-domain target profiles. An empty Dir disables them.
type ProfileConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Supported provider and driver names.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	DriverPlaywright  = "playwright"
	DriverChromedp    = "chromedp"
	BrowserChromium   = "chromium"
	BrowserFirefox    = "firefox"
	defaultStartURL   = "https://duckduckgo.com/"
	defaultServerAddr = ":5000"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Agent: AgentConfig{
			StepBudget:     25,
			RecursionLimit: 50,
			StartURL:       defaultStartURL,
			PageTokenLimit: 6000,
		},
		LLM: LLMConfig{
			Provider:          ProviderOpenAI,
			Model:             "gpt-4o",
			RequestsPerSecond: 2,
		},
		Browser: BrowserConfig{
			Driver:      DriverPlaywright,
			Headless:    true,
			Browser:     BrowserChromium,
			MaxSessions: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: defaultServerAddr,
		},
	}
}

// SetDefaults registers Default() with v so unset keys fall back to it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("agent.step_budget", d.Agent.StepBudget)
	v.SetDefault("agent.recursion_limit", d.Agent.RecursionLimit)
	v.SetDefault("agent.start_url", d.Agent.StartURL)
	v.SetDefault("agent.page_token_limit", d.Agent.PageTokenLimit)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.insight_model", d.LLM.InsightModel)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.requests_per_second", d.LLM.RequestsPerSecond)

	v.SetDefault("browser.driver", d.Browser.Driver)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.browser", d.Browser.Browser)
	v.SetDefault("browser.max_sessions", d.Browser.MaxSessions)
	v.SetDefault("browser.blocked_hosts", []string{})
	v.SetDefault("browser.allowed_hosts", []string{})

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.console", d.Log.Console)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("store.dsn", "")
	v.SetDefault("profile.dir", "")
}

// NewViper returns a viper instance with defaults and environment overrides
// wired. When path is empty it looks for webvision.yaml in the working
// directory and in DefaultDir. A missing file is not an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("webvision")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// apiKeyFromEnv falls back to the provider's conventional variable.
func apiKeyFromEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Agent.StepBudget <= 0 {
		errs = append(errs, fmt.Errorf("agent.step_budget must be positive, got %d", c.Agent.StepBudget))
	}
	if c.Agent.RecursionLimit <= c.Agent.StepBudget {
		errs = append(errs, fmt.Errorf("agent.recursion_limit (%d) must exceed agent.step_budget (%d)",
			c.Agent.RecursionLimit, c.Agent.StepBudget))
	}
	if c.Agent.PageTokenLimit < 0 {
		errs = append(errs, fmt.Errorf("agent.page_token_limit must not be negative"))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of openai, gemini", c.LLM.Provider))
	}
	if c.LLM.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("llm.requests_per_second must not be negative"))
	}
	switch c.Browser.Driver {
	case DriverPlaywright, DriverChromedp:
	default:
		errs = append(errs, fmt.Errorf("browser.driver %q is not one of playwright, chromedp", c.Browser.Driver))
	}
	switch c.Browser.Browser {
	case BrowserChromium, BrowserFirefox:
	default:
		errs = append(errs, fmt.Errorf("browser.browser %q is not one of chromium, firefox", c.Browser.Browser))
	}
	if c.Browser.Driver == DriverChromedp && c.Browser.Browser == BrowserFirefox {
		errs = append(errs, errors.New("browser.driver chromedp only supports chromium"))
	}
	if c.Browser.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("browser.max_sessions must be positive, got %d", c.Browser.MaxSessions))
	}
	return errors.Join(errs...)
}

// DefaultDir is ~/.webvision.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".webvision"), nil
}

// WriteFile writes c as YAML to path, creating parent directories. The API
// key is never written.
func (c Config) WriteFile(path string) error {
	c.LLM.APIKey = ""
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
