package config

import (
	"os"
	"testing"
)

const (
	testEnvAPIToken = "NEWS_API_TOKEN"
	testEnvFeeds    = "RSS_FEEDS"
	testEnvLanguage = "NEWS_LANGUAGE"

	testAPIToken = "token-123"
	testErrLoad  = "Load() error = %v"
)

func TestLoad_MissingNewsSource(t *testing.T) {
	os.Unsetenv(testEnvAPIToken)
	os.Unsetenv(testEnvFeeds)

	_, err := Load()
	if err == nil {
		t.Error("expected error when neither NEWS_API_TOKEN nor RSS_FEEDS is set")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv(testEnvAPIToken, testAPIToken)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.NewsAPIToken != testAPIToken {
		t.Errorf("NewsAPIToken = %q, want %q", cfg.NewsAPIToken, testAPIToken)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(testEnvAPIToken, testAPIToken)

	// Explicitly unset variables that might be in .env to test actual defaults
	os.Unsetenv("APP_ENV")
	os.Unsetenv("LLM_MODEL")
	os.Unsetenv("NEWS_LANGUAGE")
	os.Unsetenv("MAX_ARTICLES")
	os.Unsetenv("CACHE_TTL")
	os.Unsetenv("EXTRACT_MAX_CONCURRENT")
	os.Unsetenv("METRICS_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLMModel default = %q, want %q", cfg.LLMModel, "gpt-4o-mini")
	}

	if cfg.Language != "en" {
		t.Errorf("Language default = %q, want %q", cfg.Language, "en")
	}

	if cfg.MaxArticles != 25 {
		t.Errorf("MaxArticles default = %d, want %d", cfg.MaxArticles, 25)
	}

	if cfg.CacheTTL.Hours() != 1 {
		t.Errorf("CacheTTL default = %v, want 1h", cfg.CacheTTL)
	}

	if cfg.ExtractMaxConcurrent != 3 {
		t.Errorf("ExtractMaxConcurrent default = %d, want %d", cfg.ExtractMaxConcurrent, 3)
	}

	if cfg.MetricsPort != 0 {
		t.Errorf("MetricsPort default = %d, want %d", cfg.MetricsPort, 0)
	}
}

func TestLoad_RSSFeeds(t *testing.T) {
	os.Unsetenv(testEnvAPIToken)
	t.Setenv(testEnvFeeds, "https://a.example/rss,https://b.example/feed.xml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if len(cfg.RSSFeeds) != 2 {
		t.Fatalf("RSSFeeds length = %d, want %d", len(cfg.RSSFeeds), 2)
	}

	if cfg.RSSFeeds[1] != "https://b.example/feed.xml" {
		t.Errorf("RSSFeeds[1] = %q, want %q", cfg.RSSFeeds[1], "https://b.example/feed.xml")
	}
}

func TestLoad_NormalizesLanguage(t *testing.T) {
	t.Setenv(testEnvAPIToken, testAPIToken)
	t.Setenv(testEnvLanguage, "en-US")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.Language != "en" {
		t.Errorf("Language = %q, want %q", cfg.Language, "en")
	}
}

func TestLoad_InvalidLanguage(t *testing.T) {
	t.Setenv(testEnvAPIToken, testAPIToken)
	t.Setenv(testEnvLanguage, "not a language")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid NEWS_LANGUAGE")
	}
}
