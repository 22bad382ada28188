// Package config defines the pipeline configuration, loaded through viper
// from a YAML file with environment-variable overrides.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete pipeline configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Lock       LockConfig       `mapstructure:"lock"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Roles      RolesConfig      `mapstructure:"roles"`
	Briefing   BriefingConfig   `mapstructure:"briefing"`
	Candidates CandidatesConfig `mapstructure:"candidates"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Dir is the log directory. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig locates the sqlite database backing strategies and leases.
type DatabaseConfig struct {
	// Path is the sqlite file path.
	Path string `mapstructure:"path"`
}

// LockConfig tunes the distributed lease lock.
type LockConfig struct {
	// TTL is the lease lifetime. A crashed holder's lease expires after
	// this long; live holders renew via heartbeat at TTL/3.
	TTL time.Duration `mapstructure:"ttl"`
	// StaleAfter is how long a held lock may exist before a second caller
	// treats the holder as stale and is allowed to block-wait instead of
	// returning deduplicated.
	StaleAfter time.Duration `mapstructure:"stale_after"`
	// AcquireWait bounds a blocking acquire. Blocking waits never run
	// forever; past this deadline the caller gets a lock error.
	AcquireWait time.Duration `mapstructure:"acquire_wait"`
	// PollInterval is how often a blocking acquire re-checks the lease.
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ProvidersConfig holds per-provider credentials and model selection.
// Credentials come from the environment in production; the mapstructure
// fields exist so tests and local setups can inject them through config.
type ProvidersConfig struct {
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Google    ProviderConfig `mapstructure:"google"`
}

// ProviderConfig configures one upstream generation provider.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// RolesConfig maps each pipeline role to an ordered provider fallback chain
// and a hard wall-clock timeout for calls in that role.
type RolesConfig struct {
	Research   RoleConfig `mapstructure:"research"`
	Strategist RoleConfig `mapstructure:"strategist"`
	Planner    RoleConfig `mapstructure:"planner"`
}

// RoleConfig is the chain and timeout for one role.
type RoleConfig struct {
	// Chain is the ordered list of provider names ("anthropic", "openai",
	// "google") tried in fallback order.
	Chain []string `mapstructure:"chain"`
	// Timeout bounds each provider call for this role.
	Timeout time.Duration `mapstructure:"timeout"`
}

// BriefingConfig tunes context gathering.
type BriefingConfig struct {
	// NewsWindowDays is the trailing freshness window for news items.
	NewsWindowDays int `mapstructure:"news_window_days"`
}

// CandidatesConfig bounds the generated candidate schema.
type CandidatesConfig struct {
	// Max caps how many candidates a ranking may contain.
	Max int `mapstructure:"max"`
	// MaxNameLength bounds candidate name text.
	MaxNameLength int `mapstructure:"max_name_length"`
	// MaxRationaleLength bounds candidate advisory text.
	MaxRationaleLength int `mapstructure:"max_rationale_length"`
}

// ConfigDir returns the directory where the config file lives.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vecto")
}

// DefaultDatabasePath returns the default sqlite location.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vecto.db"
	}
	return filepath.Join(home, ".local", "share", "vecto", "vecto.db")
}

// SetDefaults registers default values with viper so configuration works
// without a config file.
func SetDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.dir", "")

	viper.SetDefault("database.path", DefaultDatabasePath())

	viper.SetDefault("lock.ttl", "30s")
	viper.SetDefault("lock.stale_after", "3m")
	viper.SetDefault("lock.acquire_wait", "90s")
	viper.SetDefault("lock.poll_interval", "250ms")

	viper.SetDefault("providers.anthropic.model", "claude-sonnet-4-20250514")
	viper.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com")
	viper.SetDefault("providers.openai.model", "gpt-5")
	viper.SetDefault("providers.openai.base_url", "https://api.openai.com")
	viper.SetDefault("providers.google.model", "gemini-2.0-flash-001")
	viper.SetDefault("providers.google.base_url", "https://generativelanguage.googleapis.com")

	viper.SetDefault("roles.research.chain", []string{"google", "openai"})
	viper.SetDefault("roles.research.timeout", "20s")
	viper.SetDefault("roles.strategist.chain", []string{"anthropic", "openai"})
	viper.SetDefault("roles.strategist.timeout", "60s")
	viper.SetDefault("roles.planner.chain", []string{"openai", "anthropic", "google"})
	viper.SetDefault("roles.planner.timeout", "180s")

	viper.SetDefault("briefing.news_window_days", 3)

	viper.SetDefault("candidates.max", 8)
	viper.SetDefault("candidates.max_name_length", 120)
	viper.SetDefault("candidates.max_rationale_length", 500)
}

// Load unmarshals the current viper state into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
