// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Notion     NotionConfig     `mapstructure:"notion"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Curated    CuratedConfig    `mapstructure:"curated"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// GitHubConfig points at the hosting-platform account the showcase mirrors.
// Token is optional; without it unauthenticated rate limits apply.
type GitHubConfig struct {
	Owner    string `mapstructure:"owner"`
	Token    string `mapstructure:"token"`
	APIBase  string `mapstructure:"api_base"`
	PageSize int    `mapstructure:"page_size"`
}

// NotionConfig identifies the remote record database. Both fields must be
// set for reads and writes to happen; otherwise the store is a no-op.
type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
	APIBase    string `mapstructure:"api_base"`
}

// SummarizerConfig configures the language-model summarization stage.
// Without an API key the heuristic fallback carries the whole load.
type SummarizerConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	MaxReadmeChars int    `mapstructure:"max_readme_chars"`
	MaxTags        int    `mapstructure:"max_tags"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// WebhookConfig holds the shared secret for inbound event signatures.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

// CuratedConfig locates the hand-curated project list. Empty path means the
// embedded default list.
type CuratedConfig struct {
	Path string `mapstructure:"path"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROJECTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key, including empty credentials: Viper only
// resolves environment overrides for keys it knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("github.owner", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_base", "https://api.github.com")
	v.SetDefault("github.page_size", 100)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.api_base", "https://api.notion.com")
	v.SetDefault("summarizer.api_key", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("curated.path", "")
	v.SetDefault("summarizer.model", "claude-3-5-haiku-latest")
	v.SetDefault("summarizer.max_readme_chars", 6000)
	v.SetDefault("summarizer.max_tags", 8)
	v.SetDefault("summarizer.timeout_seconds", 30)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. Credentials stay
// optional; the paths that need them degrade instead of failing startup.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.GitHub.Owner == "" {
		return fmt.Errorf("github.owner must be set")
	}
	if c.GitHub.PageSize <= 0 || c.GitHub.PageSize > 100 {
		return fmt.Errorf("github.page_size must be in 1..100")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Summarizer.MaxReadmeChars <= 0 {
		return fmt.Errorf("summarizer.max_readme_chars must be > 0")
	}
	if c.Summarizer.MaxTags <= 0 {
		return fmt.Errorf("summarizer.max_tags must be > 0")
	}
	return nil
}

// HTTPTimeout converts the outbound timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
