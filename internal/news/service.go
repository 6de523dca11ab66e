package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newsagent/internal/cache"
	"newsagent/internal/extract"
	"newsagent/internal/model"
	"newsagent/internal/observability"
	"newsagent/internal/relevance"
)

const (
	// minRelevance keeps loosely related articles; the workflow's quality
	// gate decides whether the set as a whole is good enough.
	minRelevance = 0.1

	providerLimitFactor = 2
	providerLimitMax    = 100

	// shortContentMax is the text length below which an article is still
	// worth sending through full extraction.
	shortContentMax = 200

	timeframeWindow = 24 * time.Hour

	headlinesLimit       = 20
	trendingLimit        = 10
	trendingWordMinLen   = 4
	trendingTopicMinLen  = 3
	titleWordsPerArticle = 2

	logKeyTopic    = "topic"
	logKeyProvider = "provider"
	logKeyCacheKey = "key"
)

// Config carries the retrieval knobs the service needs.
type Config struct {
	CacheTTL         time.Duration
	UseTimeframe     bool
	EnableExtraction bool
	MaxConcurrent    int
	ArticleTimeout   time.Duration
}

// Service is the retrieval layer: it searches providers with fallback,
// normalizes and enriches the results, ranks them, and caches the outcome.
// Failures degrade to an empty result rather than an error so the workflow
// can decide how to proceed.
type Service struct {
	registry  *Registry
	cache     *cache.Store
	filter    *relevance.Filter
	extractor *extract.Extractor
	cfg       Config
	logger    *zerolog.Logger
}

func NewService(registry *Registry, store *cache.Store, extractor *extract.Extractor, cfg Config, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	return &Service{
		registry:  registry,
		cache:     store,
		filter:    relevance.NewFilter(),
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Search returns up to maxArticles articles about topic, ranked by relevance.
// Results are cached per topic, language, and limit; cached articles come
// back flagged so callers can report them as such.
func (s *Service) Search(ctx context.Context, topic, langCode string, maxArticles int) []model.Article {
	key := fmt.Sprintf("search_%s_%s_%d", topic, langCode, maxArticles)

	var cached []model.Article

	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str(logKeyCacheKey, key).Msg("search cache read failed")
	}

	if hit {
		observability.CacheHits.WithLabelValues("search").Inc()

		for i := range cached {
			cached[i].Cached = true
		}

		s.logger.Debug().Str(logKeyTopic, topic).Int("articles", len(cached)).Msg("serving search from cache")

		return cached
	}

	observability.CacheMisses.WithLabelValues("search").Inc()

	q := Query{
		Topic:    topic,
		Language: langCode,
		Limit:    providerLimit(maxArticles),
	}
	if s.cfg.UseTimeframe {
		q.PublishedAfter = time.Now().Add(-timeframeWindow)
	}

	fetched, provider, err := s.registry.SearchWithFallback(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Str(logKeyTopic, topic).Msg("news search failed")

		return []model.Article{}
	}

	articles := normalizeArticles(fetched)

	if s.cfg.EnableExtraction && s.extractor != nil {
		articles = s.enrich(ctx, articles)
	}

	ranked := s.filter.RankAndFilter(articles, topic, minRelevance, maxArticles)

	if err := s.cache.Set(ctx, key, ranked, s.cfg.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str(logKeyCacheKey, key).Msg("search cache write failed")
	}

	s.logger.Info().
		Str(logKeyTopic, topic).
		Str(logKeyProvider, string(provider)).
		Int("fetched", len(fetched)).
		Int("ranked", len(ranked)).
		Msg("news search completed")

	return ranked
}

// Trending returns the top trending topics derived from current headlines.
// The list is cached for half the configured TTL so it stays fresher than
// search results.
func (s *Service) Trending(ctx context.Context, langCode string) []model.TrendingTopic {
	key := fmt.Sprintf("trending_%s", langCode)

	var cached []model.TrendingTopic

	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str(logKeyCacheKey, key).Msg("trending cache read failed")
	}

	if hit {
		observability.CacheHits.WithLabelValues("trending").Inc()

		return cached
	}

	observability.CacheMisses.WithLabelValues("trending").Inc()

	headlines, provider, err := s.registry.HeadlinesWithFallback(ctx, langCode, headlinesLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("headlines fetch failed")

		return []model.TrendingTopic{}
	}

	topics := deriveTrending(headlines)

	if err := s.cache.Set(ctx, key, topics, s.cfg.CacheTTL/2); err != nil {
		s.logger.Warn().Err(err).Str(logKeyCacheKey, key).Msg("trending cache write failed")
	}

	s.logger.Info().
		Str(logKeyProvider, string(provider)).
		Int("headlines", len(headlines)).
		Int("topics", len(topics)).
		Msg("trending topics derived")

	return topics
}

// CachedKeys returns the non-expired keys of the retrieval cache.
func (s *Service) CachedKeys(ctx context.Context) []string {
	keys, err := s.cache.Keys(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache keys listing failed")

		return nil
	}

	return keys
}

// ClearCache removes all retrieval cache entries.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// enrich replaces thin article text with extracted full content. Articles
// whose extraction fails stay in the set, annotated, so downstream stages
// can decide what to do with them.
func (s *Service) enrich(ctx context.Context, articles []model.Article) []model.Article {
	var candidates []model.Article

	for _, a := range articles {
		if needsExtraction(&a) {
			candidates = append(candidates, a)
		}
	}

	if len(candidates) == 0 {
		return articles
	}

	extracted := s.extractor.ExtractBatch(ctx, candidates, s.cfg.MaxConcurrent, s.cfg.ArticleTimeout)

	byURL := make(map[string]model.Article, len(extracted))
	for _, a := range extracted {
		byURL[a.URL] = a
	}

	for i := range articles {
		if !needsExtraction(&articles[i]) {
			continue
		}

		if enriched, ok := byURL[articles[i].URL]; ok {
			if enriched.Extracted() && enriched.ExtractedContent != "" {
				enriched.TextContent = enriched.ExtractedContent
			}

			articles[i] = enriched

			continue
		}

		failed := false
		articles[i].ExtractionSuccess = &failed
		articles[i].ExtractionError = "extraction failed or timed out"
		observability.ExtractionFailures.Inc()
	}

	return articles
}

// needsExtraction reports whether an article's text is thin enough to be
// worth a full extraction attempt.
func needsExtraction(a *model.Article) bool {
	if !extract.Extractable(a.URL) {
		return false
	}

	if strings.Contains(a.TextContent, model.PaywallMarker) {
		return true
	}

	return len(strings.TrimSpace(a.TextContent)) <= shortContentMax
}

// normalizeArticles drops unusable entries and fills the defaults the rest
// of the pipeline relies on.
func normalizeArticles(raw []model.Article) []model.Article {
	out := make([]model.Article, 0, len(raw))

	for _, a := range raw {
		if strings.TrimSpace(a.Description) == "" && strings.TrimSpace(a.Snippet) == "" {
			continue
		}

		if strings.TrimSpace(a.Title) == "" {
			a.Title = "No title"
		}

		if strings.TrimSpace(a.Source) == "" {
			a.Source = "Unknown"
		}

		if strings.TrimSpace(a.Description) == "" {
			a.Description = a.Snippet
		}

		if a.TextContent == "" {
			if a.Snippet != "" {
				a.TextContent = a.Snippet
			} else {
				a.TextContent = a.Description
			}
		}

		out = append(out, a)
	}

	return out
}

func providerLimit(maxArticles int) int {
	limit := maxArticles * providerLimitFactor
	if limit > providerLimitMax {
		return providerLimitMax
	}

	return limit
}

// deriveTrending counts topic mentions across headlines. Candidates are an
// article's categories plus the first words of its title; each topic keeps
// the headline that first put it on the list.
func deriveTrending(articles []model.Article) []model.TrendingTopic {
	type entry struct {
		count    int
		display  string
		headline *model.Headline
	}

	caser := cases.Title(language.English)
	counts := make(map[string]*entry)

	var order []string

	for i := range articles {
		a := &articles[i]

		candidates := make([]string, 0, len(a.Categories)+titleWordsPerArticle)
		candidates = append(candidates, a.Categories...)

		words := strings.Fields(strings.ToLower(a.Title))
		if len(words) > titleWordsPerArticle {
			words = words[:titleWordsPerArticle]
		}

		for _, w := range words {
			if len(w) > trendingWordMinLen {
				candidates = append(candidates, w)
			}
		}

		for _, c := range candidates {
			if len(c) <= trendingTopicMinLen {
				continue
			}

			key := strings.ToLower(c)

			e, ok := counts[key]
			if !ok {
				e = &entry{
					display: caser.String(key),
					headline: &model.Headline{
						Title:       a.Title,
						URL:         a.URL,
						PublishedAt: a.PublishedAt,
					},
				}
				counts[key] = e
				order = append(order, key)
			}

			e.count++
		}
	}

	out := make([]model.TrendingTopic, 0, len(order))
	for _, key := range order {
		e := counts[key]
		out = append(out, model.TrendingTopic{
			Topic:         e.display,
			Count:         e.count,
			LatestArticle: e.headline,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	if len(out) > trendingLimit {
		out = out[:trendingLimit]
	}

	return out
}
