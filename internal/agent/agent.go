// Package agent drives topics through the retrieval, quality gating, and
// summarization workflow and assembles the result documents callers see.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsagent/internal/model"
	"newsagent/internal/observability"
)

const (
	defaultMaxArticles       = 20
	trendingTopicMaxArticles = 10
	defaultLanguage          = "en"
	statusTopicsShown        = 10

	agentType = "Adaptive News Agent"

	searchKeyPrefix = "search_"
)

// NewsSource covers the retrieval operations the workflow needs.
type NewsSource interface {
	Search(ctx context.Context, topic, language string, maxArticles int) []model.Article
	Trending(ctx context.Context, language string) []model.TrendingTopic
	CachedKeys(ctx context.Context) []string
	ClearCache(ctx context.Context) error
}

// Summarizer covers the summarization operations the workflow needs.
type Summarizer interface {
	SummarizeArticles(ctx context.Context, articles []model.Article, maxLen, minLen int) []model.Article
	Digest(ctx context.Context, articles []model.Article, maxLen int) model.Digest
	ClearCache(ctx context.Context) error
}

// Agent processes topics end to end and reports on its own state.
type Agent struct {
	news       NewsSource
	summarizer Summarizer
	modelName  string
	logger     *zerolog.Logger
}

func New(news NewsSource, summarizer Summarizer, modelName string, logger *zerolog.Logger) *Agent {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Agent{
		news:       news,
		summarizer: summarizer,
		modelName:  modelName,
		logger:     logger,
	}
}

// ProcessTopic runs the full workflow for one topic and returns the result
// document. The document echoes the topic as given, even when enhancement
// rewrote the query along the way. A panic anywhere in the run degrades to
// an error document instead of escaping.
func (a *Agent) ProcessTopic(ctx context.Context, topic string, maxArticles int, language string) (result *model.TopicResult) {
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}

	if language == "" {
		language = defaultLanguage
	}

	runID := uuid.New().String()
	runLogger := a.logger.With().Str("run_id", runID).Str("topic", topic).Logger()

	defer func() {
		if r := recover(); r != nil {
			runLogger.Error().Interface("panic", r).Msg("workflow panicked")
			observability.WorkflowRuns.WithLabelValues(model.StatusError).Inc()

			result = &model.TopicResult{
				Status:    model.StatusError,
				Message:   fmt.Sprintf("Workflow failed: %v", r),
				Topic:     topic,
				Timestamp: time.Now(),
			}
		}
	}()

	runLogger.Info().Int("max_articles", maxArticles).Str("language", language).Msg("processing topic")

	state := &State{
		Topic:       topic,
		Language:    language,
		MaxArticles: maxArticles,
		logger:      &runLogger,
	}

	a.run(ctx, state)

	if state.Err != "" {
		observability.WorkflowRuns.WithLabelValues(model.StatusError).Inc()

		return &model.TopicResult{
			Status:    model.StatusError,
			Message:   state.Err,
			Topic:     topic,
			Timestamp: time.Now(),
			Trace:     state.Trace,
		}
	}

	observability.WorkflowRuns.WithLabelValues(model.StatusSuccess).Inc()

	cachedCount := 0

	for i := range state.SummarizedArticles {
		if state.SummarizedArticles[i].Cached {
			cachedCount++
		}
	}

	runLogger.Info().
		Int("articles", len(state.SummarizedArticles)).
		Float64("quality_score", state.QualityScore).
		Int("retries", state.RetryCount).
		Msg("topic processed")

	digest := state.Digest

	return &model.TopicResult{
		Status:    model.StatusSuccess,
		Topic:     topic,
		Timestamp: time.Now(),
		Digest:    &digest,
		Articles:  state.SummarizedArticles,
		Metadata: &model.ResultMetadata{
			RunID:          runID,
			TotalArticles:  len(state.SummarizedArticles),
			Language:       language,
			CachedArticles: cachedCount,
			Sources:        distinctSources(state.SummarizedArticles),
			QualityScore:   state.QualityScore,
			RetryCount:     state.RetryCount,
			WorkflowSteps:  len(state.Trace),
		},
		Trace: state.Trace,
	}
}

// ProcessTrendingTopic runs the workflow for a topic picked from the trending
// list, with a smaller article budget than direct requests get.
func (a *Agent) ProcessTrendingTopic(ctx context.Context, topic, language string) *model.TopicResult {
	return a.ProcessTopic(ctx, topic, trendingTopicMaxArticles, language)
}

// TrendingTopics reports what is currently being written about.
func (a *Agent) TrendingTopics(ctx context.Context, language string) *model.TrendingResult {
	if language == "" {
		language = defaultLanguage
	}

	a.logger.Info().Str("language", language).Msg("fetching trending topics")

	return &model.TrendingResult{
		Status:    model.StatusSuccess,
		Topics:    a.news.Trending(ctx, language),
		Language:  language,
		Timestamp: time.Now(),
	}
}

// CachedTopics lists the distinct topics with cached search results, in
// cache key order.
func (a *Agent) CachedTopics(ctx context.Context) []string {
	seen := make(map[string]struct{})

	var topics []string

	for _, key := range a.news.CachedKeys(ctx) {
		if !strings.HasPrefix(key, searchKeyPrefix) {
			continue
		}

		parts := strings.SplitN(key, "_", 3)
		if len(parts) < 3 {
			continue
		}

		if _, ok := seen[parts[1]]; ok {
			continue
		}

		seen[parts[1]] = struct{}{}

		topics = append(topics, parts[1])
	}

	return topics
}

// ClearCaches drops both the retrieval and the summary caches.
func (a *Agent) ClearCaches(ctx context.Context) error {
	if err := a.news.ClearCache(ctx); err != nil {
		return fmt.Errorf("clear retrieval cache: %w", err)
	}

	if err := a.summarizer.ClearCache(ctx); err != nil {
		return fmt.Errorf("clear summary cache: %w", err)
	}

	a.logger.Info().Msg("all caches cleared")

	return nil
}

// Status reports the agent's capabilities and cache state.
func (a *Agent) Status(ctx context.Context) *model.AgentStatus {
	topics := a.CachedTopics(ctx)

	shown := topics
	if len(shown) > statusTopicsShown {
		shown = shown[:statusTopicsShown]
	}

	return &model.AgentStatus{
		Status:            model.StatusOnline,
		AgentType:         agentType,
		Model:             a.modelName,
		CachedTopicsCount: len(topics),
		CachedTopics:      shown,
		Capabilities: []string{
			"Intelligent news fetching",
			"Quality-based search enhancement",
			"Adaptive summarization",
			"Workflow-based processing",
			"Error recovery",
		},
		Timestamp: time.Now(),
	}
}

func distinctSources(articles []model.Article) []string {
	seen := make(map[string]struct{}, len(articles))
	sources := make([]string, 0, len(articles))

	for i := range articles {
		source := articles[i].Source
		if _, ok := seen[source]; ok {
			continue
		}

		seen[source] = struct{}{}

		sources = append(sources, source)
	}

	return sources
}
