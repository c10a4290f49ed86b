package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultOutDir is where scrape output lands when no --out-dir is given.
const DefaultOutDir = "./06_Research_Library/Research_Dossiers/Competitor_Social"

// Config holds the full application configuration.
type Config struct {
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapeConfig holds batch scrape defaults. CLI flags override these.
type ScrapeConfig struct {
	OutDir          string  `yaml:"out_dir" mapstructure:"out_dir"`
	Formats         string  `yaml:"formats" mapstructure:"formats"`
	WaitForMs       int     `yaml:"wait_for_ms" mapstructure:"wait_for_ms"`
	TimeoutMs       int     `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	SleepSecs       float64 `yaml:"sleep_secs" mapstructure:"sleep_secs"`
	OnlyMainContent bool    `yaml:"only_main_content" mapstructure:"only_main_content"`
}

// StoreConfig configures the optional run history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Postgres pool sizing; zero keeps the store defaults.
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Firecrawl FirecrawlPricing `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// FirecrawlPricing holds Firecrawl pricing.
type FirecrawlPricing struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
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
	v.SetEnvPrefix("SOCIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Firecrawl key is also read from the names the Firecrawl tooling
	// uses; the first non-empty variable wins.
	if err := v.BindEnv("firecrawl.key", "FIRECRAWL_API_KEY", "FIRECRAWL_API_TOKEN", "SOCIAL_FIRECRAWL_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind firecrawl key")
	}

	// Defaults
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("scrape.out_dir", DefaultOutDir)
	v.SetDefault("scrape.formats", "")
	v.SetDefault("scrape.wait_for_ms", 0)
	v.SetDefault("scrape.timeout_ms", 30000)
	v.SetDefault("scrape.sleep_secs", 0.5)
	v.SetDefault("scrape.only_main_content", true)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("pricing.firecrawl.plan_monthly", 19.00)
	v.SetDefault("pricing.firecrawl.credits_included", 3000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "scrape":
		if strings.TrimSpace(c.Firecrawl.Key) == "" {
			return Errorf("missing FIRECRAWL_API_KEY or FIRECRAWL_API_TOKEN in environment")
		}
		return c.validateStore()
	case "dry-run":
		// Wait and timeout budgets are checked by the scrape command once
		// flags have been applied on top of the scrape section.
		return nil
	case "runs":
		if err := c.validateStore(); err != nil {
			return err
		}
		if c.Store.Driver == "none" || c.Store.Driver == "" {
			return Errorf("run history is disabled (set store.driver to sqlite or postgres)")
		}
		return nil
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return Errorf("store.database_url is required for the postgres driver")
		}
		if c.Store.MaxConns < 0 || c.Store.MinConns < 0 {
			return Errorf("store.max_conns and store.min_conns must not be negative")
		}
		return nil
	case "none", "":
		return nil
	default:
		return Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
