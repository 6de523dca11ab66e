// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes one method per
// operational mode:
//
//   - Process mode: run the workflow for a topic and print the result document
//   - Trending mode: report what is currently being written about
//   - Cached mode: list topics with cached search results
//   - Clear mode: drop the retrieval and summary caches
//   - Status mode: report agent capabilities and cache state
//
// The health and metrics sidecar runs alongside any mode when a port is set.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"newsagent/internal/agent"
	"newsagent/internal/cache"
	"newsagent/internal/config"
	"newsagent/internal/extract"
	"newsagent/internal/news"
	"newsagent/internal/observability"
	"newsagent/internal/summarize"
)

const (
	retrievalCacheFile = "retrieval.db"
	summaryCacheFile   = "summaries.db"

	janitorInterval = 10 * time.Minute
)

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg       *config.Config
	logger    *zerolog.Logger
	retrieval *cache.Store
	summaries *cache.Store
	agent     *agent.Agent
}

// New opens both cache stores and wires the retrieval and summarization
// services into an agent.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	retrieval, err := cache.Open(filepath.Join(cfg.CacheDir, retrievalCacheFile), logger)
	if err != nil {
		return nil, fmt.Errorf("open retrieval cache: %w", err)
	}

	summaries, err := cache.Open(filepath.Join(cfg.CacheDir, summaryCacheFile), logger)
	if err != nil {
		_ = retrieval.Close()

		return nil, fmt.Errorf("open summary cache: %w", err)
	}

	registry := news.NewRegistry()

	if cfg.NewsAPIToken != "" {
		registry.Register(news.NewNewsAPIProvider(news.NewsAPIConfig{
			APIToken: cfg.NewsAPIToken,
			BaseURL:  cfg.NewsAPIBaseURL,
			Timeout:  cfg.NewsAPITimeout,
		}))
	}

	if len(cfg.RSSFeeds) > 0 {
		registry.Register(news.NewRSSProvider(news.RSSConfig{
			Feeds:   cfg.RSSFeeds,
			Timeout: cfg.NewsAPITimeout,
		}, logger))
	}

	var extractor *extract.Extractor
	if cfg.EnableExtraction {
		extractLogger := logger.With().Str("component", "extract").Logger()
		extractor = extract.NewExtractor(extract.NewFetcher(cfg.WebFetchRPS, cfg.ExtractTimeout), cfg.ExtractTimeout, &extractLogger)
	}

	newsService := news.NewService(registry, retrieval, extractor, news.Config{
		CacheTTL:         cfg.CacheTTL,
		UseTimeframe:     cfg.UseTimeframe,
		EnableExtraction: cfg.EnableExtraction,
		MaxConcurrent:    cfg.ExtractMaxConcurrent,
		ArticleTimeout:   cfg.ExtractTimeout,
	}, logger)

	summaryService := summarize.NewService(summarize.New(cfg, logger), summaries, cfg, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		retrieval: retrieval,
		summaries: summaries,
		agent:     agent.New(newsService, summaryService, cfg.LLMModel, logger),
	}, nil
}

// Close releases both cache stores.
func (a *App) Close() error {
	return errors.Join(a.retrieval.Close(), a.summaries.Close())
}

// StartJanitors begins periodic expired-entry cleanup on both caches. The
// janitors stop when ctx is canceled.
func (a *App) StartJanitors(ctx context.Context) {
	go a.retrieval.Janitor(ctx, janitorInterval)
	go a.summaries.Janitor(ctx, janitorInterval)
}

// StartHealthServer starts the health check and metrics server. It blocks
// until ctx is canceled, and is a no-op when no port is configured.
func (a *App) StartHealthServer(ctx context.Context) error {
	if a.cfg.MetricsPort <= 0 {
		return nil
	}

	srv := observability.NewServer(a.cfg.MetricsPort, a.logger, a.retrieval, a.summaries)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunProcess runs the workflow for one topic and prints the result document.
func (a *App) RunProcess(ctx context.Context, topic string, maxArticles int, language string) error {
	a.logger.Info().Str("topic", topic).Msg("Starting process mode")

	return a.printJSON(a.agent.ProcessTopic(ctx, topic, maxArticles, language))
}

// RunTrending prints the current trending topics.
func (a *App) RunTrending(ctx context.Context, language string) error {
	a.logger.Info().Msg("Starting trending mode")

	return a.printJSON(a.agent.TrendingTopics(ctx, language))
}

type cachedTopicsResult struct {
	CachedTopics []string `json:"cached_topics"`
	Count        int      `json:"count"`
}

// RunCached prints the topics with cached search results.
func (a *App) RunCached(ctx context.Context) error {
	a.logger.Info().Msg("Starting cached mode")

	topics := a.agent.CachedTopics(ctx)

	return a.printJSON(cachedTopicsResult{CachedTopics: topics, Count: len(topics)})
}

type clearResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RunClear drops both caches and prints a confirmation.
func (a *App) RunClear(ctx context.Context) error {
	a.logger.Info().Msg("Starting clear mode")

	if err := a.agent.ClearCaches(ctx); err != nil {
		return fmt.Errorf("clear caches: %w", err)
	}

	return a.printJSON(clearResult{Status: "success", Message: "All caches cleared"})
}

// RunStatus prints the agent's capabilities and cache state.
func (a *App) RunStatus(ctx context.Context) error {
	a.logger.Info().Msg("Starting status mode")

	return a.printJSON(a.agent.Status(ctx))
}

func (a *App) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Println(string(data))

	return nil
}
