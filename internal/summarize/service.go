package summarize

import (
	"context"
	"crypto/md5" //nolint:gosec // content addressing only
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"newsagent/internal/cache"
	"newsagent/internal/config"
	"newsagent/internal/model"
	"newsagent/internal/observability"
)

const (
	// minSummarizableLength is the character floor below which text is not
	// worth sending to the model.
	minSummarizableLength = 50

	// maxInputWords approximates the 1024-token model input budget.
	maxInputWords = 1000

	maxAttempts = 3
	busyBackoff = 500 * time.Millisecond

	digestMinLength      = 30
	meaningfulContentMin = 100
	digestSnippetLen     = 200

	tooShortPlaceholder      = "Content not available for summarization (requires paid plan)."
	failedPlaceholder        = "Unable to generate summary due to technical limitations."
	articleFailedPlaceholder = "Unable to generate summary for this article."
	noArticlesDigest         = "No articles to summarize."
	noContentDigest          = "No content available for digest."
	paidPlanDigestFormat     = "Found %d articles, but full content requires a paid plan. Only titles and descriptions are available in the free tier."
)

// Service wraps the generation client with caching, input preprocessing,
// retry classification, and placeholder degradation. Failures never escape
// as errors; callers always get usable text.
type Service struct {
	client Client
	cache  *cache.Store
	model  string
	ttl    time.Duration
	logger *zerolog.Logger

	// genMu serializes generation; local inference backends do not tolerate
	// concurrent calls.
	genMu sync.Mutex
}

func NewService(client Client, store *cache.Store, cfg *config.Config, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Service{
		client: client,
		cache:  store,
		model:  cfg.LLMModel,
		ttl:    ttl,
		logger: logger,
	}
}

// Summarize returns a summary of text within the given word budgets. Results
// are cached by content, budgets, and model.
func (s *Service) Summarize(ctx context.Context, text string, maxLen, minLen int) model.Summary {
	if len(strings.TrimSpace(text)) < minSummarizableLength {
		return model.Summary{Text: tooShortPlaceholder, OriginalLength: len(text)}
	}

	key := s.cacheKey(text, maxLen, minLen)

	var cached model.Summary

	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("summary cache read failed")
	}

	if hit {
		observability.CacheHits.WithLabelValues("summary").Inc()

		cached.Cached = true

		return cached
	}

	observability.CacheMisses.WithLabelValues("summary").Inc()

	generated, err := s.generate(ctx, preprocess(text), maxLen, minLen)
	if err != nil {
		s.logger.Error().Err(err).Msg("all summarization attempts failed")
		observability.SummaryRequests.WithLabelValues("failed").Inc()

		return model.Summary{Text: failedPlaceholder, OriginalLength: len(text)}
	}

	observability.SummaryRequests.WithLabelValues("success").Inc()

	result := model.Summary{
		Text:           generated,
		OriginalLength: len(text),
		SummaryLength:  len(generated),
	}

	if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("summary cache write failed")
	}

	return result
}

// SummarizeArticles attaches a summary to every article. A canceled context
// degrades the remaining articles instead of aborting the set.
func (s *Service) SummarizeArticles(ctx context.Context, articles []model.Article, maxLen, minLen int) []model.Article {
	if len(articles) == 0 {
		return nil
	}

	s.logger.Info().Int("articles", len(articles)).Msg("summarizing articles")

	out := make([]model.Article, len(articles))

	for i, article := range articles {
		text := article.TextContent
		if text == "" {
			text = article.Description
		}

		if err := ctx.Err(); err != nil {
			s.logger.Error().Err(err).Str("title", article.Title).Msg("summarization aborted")

			article.Summary = articleFailedPlaceholder
			article.SummaryLength = 0
			article.OriginalLength = len(text)
			article.Cached = false
			out[i] = article

			continue
		}

		s.logger.Debug().Int("article", i+1).Int("total", len(articles)).Str("title", article.Title).Msg("summarizing article")

		summary := s.Summarize(ctx, text, maxLen, minLen)

		article.Summary = summary.Text
		article.SummaryLength = summary.SummaryLength
		article.OriginalLength = summary.OriginalLength
		article.Cached = summary.Cached
		out[i] = article
	}

	return out
}

// Digest summarizes the set as a whole from per-article summaries, falling
// back to raw text snippets for articles without one.
func (s *Service) Digest(ctx context.Context, articles []model.Article, maxLen int) model.Digest {
	if len(articles) == 0 {
		return model.Digest{Text: noArticlesDigest}
	}

	meaningful := 0

	for i := range articles {
		if hasMeaningfulContent(&articles[i]) {
			meaningful++
		}
	}

	if meaningful == 0 {
		return model.Digest{
			Text:         fmt.Sprintf(paidPlanDigestFormat, len(articles)),
			ArticleCount: len(articles),
		}
	}

	combined := combineForDigest(articles)
	if strings.TrimSpace(combined) == "" {
		return model.Digest{Text: noContentDigest, ArticleCount: len(articles)}
	}

	key := s.cacheKey("digest_"+combined, maxLen, digestMinLength)

	var cached model.Digest

	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("digest cache read failed")
	}

	if hit {
		observability.CacheHits.WithLabelValues("digest").Inc()

		cached.Cached = true

		return cached
	}

	observability.CacheMisses.WithLabelValues("digest").Inc()

	summary := s.Summarize(ctx, combined, maxLen, digestMinLength)

	result := model.Digest{Text: summary.Text, ArticleCount: len(articles)}

	if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("digest cache write failed")
	}

	return result
}

// ClearCache removes all summary cache entries.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

func (s *Service) generate(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			observability.SummaryRetries.Inc()
			s.logger.Info().Int("attempt", attempt).Msg("retrying summarization")
		}

		s.genMu.Lock()

		start := time.Now()
		out, err := s.client.Summarize(ctx, text, maxLen, minLen)

		observability.SummaryDuration.Observe(time.Since(start).Seconds())
		s.genMu.Unlock()

		if err == nil {
			return out, nil
		}

		lastErr = err

		switch {
		case errors.Is(err, ErrResourceExhausted):
			s.logger.Error().Err(err).Msg("summarizer out of resources")

			return "", err
		case errors.Is(err, ErrBusy):
			s.logger.Warn().Err(err).Int("attempt", attempt).Msg("summarizer busy, backing off")

			select {
			case <-time.After(busyBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		default:
			s.logger.Error().Err(err).Int("attempt", attempt).Msg("summarization attempt failed")
		}
	}

	return "", lastErr
}

func (s *Service) cacheKey(text string, maxLen, minLen int) string {
	content := fmt.Sprintf("%s_%d_%d_%s", text, maxLen, minLen, s.model)

	//nolint:gosec // cache keys are content addresses, not security material
	return fmt.Sprintf("%x", md5.Sum([]byte(content)))
}

// preprocess collapses whitespace and truncates to the model input budget,
// approximated by word count.
func preprocess(text string) string {
	words := strings.Fields(text)
	if len(words) > maxInputWords {
		words = words[:maxInputWords]
	}

	return strings.Join(words, " ")
}

func hasMeaningfulContent(a *model.Article) bool {
	text := strings.TrimSpace(a.TextContent)

	return len(text) > meaningfulContentMin && !strings.Contains(text, model.PaywallMarker)
}

// combineForDigest concatenates article summaries, substituting a truncated
// text snippet when a summary is missing or is itself a placeholder.
func combineForDigest(articles []model.Article) string {
	var sb strings.Builder

	for i := range articles {
		a := &articles[i]

		if a.Summary != "" && !strings.Contains(a.Summary, "Content not available") {
			sb.WriteString(a.Summary)
			sb.WriteString(" ")

			continue
		}

		text := a.TextContent
		if text == "" {
			text = a.Description
		}

		if text == "" || strings.Contains(text, model.PaywallMarker) {
			continue
		}

		sb.WriteString(truncateText(text, digestSnippetLen))
		sb.WriteString("... ")
	}

	return sb.String()
}

func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
