package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

var (
	errNoNewsSource = errors.New("config: NEWS_API_TOKEN or RSS_FEEDS must be set")
	errBadLanguage  = errors.New("config: invalid NEWS_LANGUAGE")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	NewsAPIToken   string        `env:"NEWS_API_TOKEN"`
	NewsAPIBaseURL string        `env:"NEWS_API_BASE_URL" envDefault:"https://api.thenewsapi.com/v1/news"`
	NewsAPITimeout time.Duration `env:"NEWS_API_TIMEOUT" envDefault:"30s"`
	RSSFeeds       []string      `env:"RSS_FEEDS" envSeparator:","`

	Language         string `env:"NEWS_LANGUAGE" envDefault:"en"`
	MaxArticles      int    `env:"MAX_ARTICLES" envDefault:"25"`
	UseTimeframe     bool   `env:"USE_TIMEFRAME" envDefault:"false"`
	EnableExtraction bool   `env:"ENABLE_EXTRACTION" envDefault:"true"`

	CacheDir string        `env:"CACHE_DIR" envDefault:"./cache"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	LLMAPIKey   string  `env:"LLM_API_KEY"`
	LLMBaseURL  string  `env:"LLM_BASE_URL"`
	LLMModel    string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMRateRPS  float64 `env:"LLM_RATE_RPS" envDefault:"1"`
	LLMMaxInput int     `env:"LLM_MAX_INPUT_TOKENS" envDefault:"1024"`

	ExtractTimeout       time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"10s"`
	ExtractMaxConcurrent int           `env:"EXTRACT_MAX_CONCURRENT" envDefault:"3"`
	WebFetchRPS          float64       `env:"WEB_FETCH_RPS" envDefault:"2"`

	MetricsPort int `env:"METRICS_PORT" envDefault:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.NewsAPIToken == "" && len(c.RSSFeeds) == 0 {
		return errNoNewsSource
	}

	tag, err := language.Parse(c.Language)
	if err != nil {
		return fmt.Errorf("%w: %q", errBadLanguage, c.Language)
	}

	base, _ := tag.Base()
	c.Language = base.String()

	return nil
}
