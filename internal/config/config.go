// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/startup-finder/internal/model"
	"github.com/sells-group/startup-finder/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Render     RenderConfig     `yaml:"render" mapstructure:"render"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string            `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ScrapeConfig configures the web-scraping collector.
type ScrapeConfig struct {
	Sources       []model.SourceDescriptor `yaml:"sources" mapstructure:"sources"`
	MaxConcurrent int                      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RatePerSecond float64                  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	TimeoutSecs   int                      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RenderConfig configures the optional headless-render fetcher for
// JavaScript-heavy sources. Disabled unless a base URL is set.
type RenderConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Key           string `yaml:"key" mapstructure:"key"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	SettleMs      int    `yaml:"settle_ms" mapstructure:"settle_ms"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CollectConfig configures a collection run.
type CollectConfig struct {
	SnapshotPath    string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
	TargetCount     int    `yaml:"target_count" mapstructure:"target_count"`
	MaxConcurrent   int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	AdapterTimeoutS int    `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
}

// EnrichConfig configures the post-collection detail lookup.
type EnrichConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STARTUPFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "startups.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("scrape.max_concurrent", 4)
	v.SetDefault("scrape.rate_per_second", 2.0)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.sources", defaultSources())
	v.SetDefault("render.max_concurrent", 2)
	v.SetDefault("render.settle_ms", 2000)
	v.SetDefault("render.timeout_secs", 90)
	v.SetDefault("collect.snapshot_path", "startups_snapshot.json")
	v.SetDefault("collect.target_count", 30)
	v.SetDefault("collect.max_concurrent", 4)
	v.SetDefault("collect.adapter_timeout_secs", 300)
	v.SetDefault("enrich.max_concurrent", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// defaultSources lists the funding-news pages scraped when none are
// configured.
func defaultSources() []map[string]string {
	return []map[string]string{
		{"name": "TechCrunch Venture", "url": "https://techcrunch.com/category/venture/"},
		{"name": "EU-Startups", "url": "https://www.eu-startups.com/category/startups/"},
		{"name": "Tech Funding News", "url": "https://techfundingnews.com/category/funding/"},
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
