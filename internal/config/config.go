package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/birdsays/birdfact-cli/internal/llm"
)

// Config holds the full application configuration.
type Config struct {
	LLM      llm.Config     `yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Refdata  RefdataConfig  `yaml:"refdata" mapstructure:"refdata"`
	Twilio   TwilioConfig   `yaml:"twilio" mapstructure:"twilio"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SearchConfig configures the SearXNG metasearch endpoint.
type SearchConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	ResultsPath string `yaml:"results_path" mapstructure:"results_path"`
}

// FetchConfig configures website content fetching.
type FetchConfig struct {
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// PipelineConfig configures the fact pipeline.
type PipelineConfig struct {
	MaxDocsPerSpecies int      `yaml:"max_docs_per_species" mapstructure:"max_docs_per_species"`
	BlacklistDomains  []string `yaml:"blacklist_domains" mapstructure:"blacklist_domains"`
	GenTemperature    float64  `yaml:"gen_temperature" mapstructure:"gen_temperature"`
}

// StoreConfig configures the fact store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RefdataConfig configures the species reference databases.
type RefdataConfig struct {
	ImageDB  string `yaml:"image_db" mapstructure:"image_db"`
	LinkDB   string `yaml:"link_db" mapstructure:"link_db"`
	IndexURL string `yaml:"index_url" mapstructure:"index_url"`
}

// TwilioConfig holds Twilio messaging credentials and recipients.
type TwilioConfig struct {
	AccountSID string   `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken  string   `yaml:"auth_token" mapstructure:"auth_token"`
	From       string   `yaml:"from" mapstructure:"from"`
	Recipients []string `yaml:"recipients" mapstructure:"recipients"`
}

// ServerConfig configures the read-only HTTP API.
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
	v.SetEnvPrefix("BIRDFACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "hf.co/bartowski/Llama-3.3-70B-Instruct-GGUF:Q4_K_M")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.context_size", 15000)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("search.base_url", "http://localhost:8888")
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.requests_per_sec", 2.0)
	v.SetDefault("fetch.max_body_bytes", 4<<20)
	v.SetDefault("pipeline.max_docs_per_species", 3)
	v.SetDefault("pipeline.blacklist_domains", []string{"ebird.org", "birdsoftheworld.org"})
	v.SetDefault("pipeline.gen_temperature", 0.4)
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.path", "data")
	v.SetDefault("refdata.image_db", "data/bird_db.json")
	v.SetDefault("refdata.link_db", "data/bird_db_links.json")
	v.SetDefault("refdata.index_url", "https://birdsoftheworld.org/bow/specieslist")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks that the configuration is usable for the given mode.
// Modes correspond to command entry points: "run" covers the fact
// pipeline (run, batch, searchdb), "serve" the HTTP API, "send" Twilio
// delivery, and "build" the reference-data scraper.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.Search.BaseURL == "" {
			problems = append(problems, "search.base_url is required")
		}
		if c.LLM.Model == "" {
			problems = append(problems, "llm.model is required")
		}
		switch c.LLM.Provider {
		case "anthropic", "claude", "openai":
			if c.LLM.APIKey == "" {
				problems = append(problems, "llm.api_key is required for provider "+c.LLM.Provider)
			}
		}
		if c.Pipeline.MaxDocsPerSpecies < 1 {
			problems = append(problems, "pipeline.max_docs_per_species must be >= 1")
		}
		if c.LLM.ContextSize < 1 {
			problems = append(problems, "llm.context_size must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "send":
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
			problems = append(problems, "twilio.account_sid and twilio.auth_token are required")
		}
		if c.Twilio.From == "" || len(c.Twilio.Recipients) == 0 {
			problems = append(problems, "twilio.from and twilio.recipients are required")
		}
	case "build":
		if c.Refdata.IndexURL == "" {
			problems = append(problems, "refdata.index_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "json", "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for driver "+c.Store.Driver)
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for driver postgres")
		}
	default:
		problems = append(problems, "store.driver must be json, sqlite, or postgres")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
