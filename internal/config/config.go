// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

// Storage backends accepted by storage.backend.
const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Estimate      EstimateConfig      `mapstructure:"estimate"`
	CMS           CMSConfig           `mapstructure:"cms"`
	SearchConsole SearchConsoleConfig `mapstructure:"search_console"`
	SERP          SERPConfig          `mapstructure:"serp"`
	GenAI         GenAIConfig         `mapstructure:"genai"`
	Competitors   CompetitorsConfig   `mapstructure:"competitors"`
	Content       ContentConfig       `mapstructure:"content"`
	Automation    AutomationConfig    `mapstructure:"automation"`
	Storage       StorageConfig       `mapstructure:"storage"`
	DB            DBConfig            `mapstructure:"db"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the blog routes.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig bounds inbound handlers and outbound client calls.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// EstimateConfig bounds calculator input.
type EstimateConfig struct {
	DefaultRegion string  `mapstructure:"default_region"`
	MinSquareFeet float64 `mapstructure:"min_square_feet"`
	MaxSquareFeet float64 `mapstructure:"max_square_feet"`
}

// CMSConfig locates the headless CMS.
type CMSConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	APIToken        string `mapstructure:"api_token"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// SearchConsoleConfig holds OAuth credentials and query window settings.
type SearchConsoleConfig struct {
	SiteURL      string `mapstructure:"site_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	Endpoint     string `mapstructure:"endpoint"`
	LookbackDays int    `mapstructure:"lookback_days"`
	RowLimit     int    `mapstructure:"row_limit"`
}

// SERPConfig configures the ranking snapshot provider.
type SERPConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Location string `mapstructure:"location"`
	Results  int    `mapstructure:"results"`
}

// GenAIConfig configures the text generator.
type GenAIConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base_url"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
	Temperature     float32 `mapstructure:"temperature"`
}

// CompetitorsConfig controls competitor page analysis.
type CompetitorsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MaxPages      int    `mapstructure:"max_pages"`
	UserAgent     string `mapstructure:"user_agent"`
	RespectRobots bool   `mapstructure:"respect_robots"`
	// SkipDomains lists hosts ("example.com") or wildcards ("*.gov") never analyzed.
	SkipDomains []string `mapstructure:"skip_domains"`
}

// ContentConfig shapes generated drafts and keyword selection.
type ContentConfig struct {
	Brand          string   `mapstructure:"brand"`
	ServiceArea    string   `mapstructure:"service_area"`
	WordTarget     int      `mapstructure:"word_target"`
	MinImpressions float64  `mapstructure:"min_impressions"`
	ExcludeTerms   []string `mapstructure:"exclude_terms"`
}

// AutomationConfig sizes the worker pool and outbound limits.
type AutomationConfig struct {
	Concurrency       int                `mapstructure:"concurrency"`
	QueueDepth        int                `mapstructure:"queue_depth"`
	JobTimeoutSeconds int                `mapstructure:"job_timeout_seconds"`
	ProviderRPS       map[string]float64 `mapstructure:"provider_rps"`
}

// StorageConfig selects where draft markdown is written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the draft metadata table. An empty DSN keeps
// drafts in memory.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for draft notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROOFEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "ROOFEST_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

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
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key, including empty ones, so AutomaticEnv
// can resolve ROOFEST_* overrides during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("estimate.default_region", "national")
	v.SetDefault("estimate.min_square_feet", 100)
	v.SetDefault("estimate.max_square_feet", 100000)
	v.SetDefault("cms.base_url", "")
	v.SetDefault("cms.api_token", "")
	v.SetDefault("cms.cache_ttl_seconds", 300)
	v.SetDefault("search_console.site_url", "")
	v.SetDefault("search_console.client_id", "")
	v.SetDefault("search_console.client_secret", "")
	v.SetDefault("search_console.refresh_token", "")
	v.SetDefault("search_console.endpoint", "")
	v.SetDefault("search_console.lookback_days", 28)
	v.SetDefault("search_console.row_limit", 250)
	v.SetDefault("serp.base_url", "https://serpapi.com")
	v.SetDefault("serp.api_key", "")
	v.SetDefault("serp.location", "United States")
	v.SetDefault("serp.results", 10)
	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.model", "gemini-2.5-flash")
	v.SetDefault("genai.base_url", "")
	v.SetDefault("genai.max_output_tokens", 4096)
	v.SetDefault("genai.temperature", 0.7)
	v.SetDefault("competitors.enabled", false)
	v.SetDefault("competitors.max_pages", 3)
	v.SetDefault("competitors.user_agent", "roofestimate-bot/1.0")
	v.SetDefault("competitors.respect_robots", true)
	v.SetDefault("competitors.skip_domains", []string{})
	v.SetDefault("content.brand", "")
	v.SetDefault("content.service_area", "")
	v.SetDefault("content.word_target", 1200)
	v.SetDefault("content.min_impressions", 50)
	v.SetDefault("content.exclude_terms", []string{})
	v.SetDefault("automation.concurrency", 2)
	v.SetDefault("automation.queue_depth", 32)
	v.SetDefault("automation.job_timeout_seconds", 600)
	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "drafts")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "blog_drafts")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Automation.Concurrency <= 0 {
		return fmt.Errorf("automation.concurrency must be > 0")
	}
	if c.Automation.QueueDepth <= 0 {
		return fmt.Errorf("automation.queue_depth must be > 0")
	}
	if c.Automation.JobTimeoutSeconds <= 0 {
		return fmt.Errorf("automation.job_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Estimate.MinSquareFeet <= 0 || c.Estimate.MinSquareFeet >= c.Estimate.MaxSquareFeet {
		return fmt.Errorf("estimate.min_square_feet must be > 0 and below estimate.max_square_feet")
	}
	if c.GenAI.Temperature < 0 || c.GenAI.Temperature > 2 {
		return fmt.Errorf("genai.temperature must be within [0, 2]")
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, local, gcs", c.Storage.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// RequestTimeout is the per-request budget for inbound handlers and outbound calls.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// JobTimeout bounds one automation job.
func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.Automation.JobTimeoutSeconds) * time.Second
}

// CacheTTL is how long CMS listings are served from memory.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CMS.CacheTTLSeconds) * time.Second
}

// OpportunityOptions is the keyword filter derived from the content section.
func (c Config) OpportunityOptions() blog.OpportunityOptions {
	return blog.OpportunityOptions{
		MinImpressions: c.Content.MinImpressions,
		ExcludeTerms:   append([]string(nil), c.Content.ExcludeTerms...),
	}
}

// PromptOptions is the draft prompt shape derived from the content section.
func (c Config) PromptOptions() blog.PromptOptions {
	return blog.PromptOptions{
		Brand:       c.Content.Brand,
		ServiceArea: c.Content.ServiceArea,
		WordTarget:  c.Content.WordTarget,
	}
}
