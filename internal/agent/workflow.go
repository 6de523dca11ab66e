package agent

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newsagent/internal/model"
	"newsagent/internal/observability"
)

const (
	minTopicLength   = 2
	qualityThreshold = 0.5
	maxEnhancements  = 2

	digestBase       = 200
	digestPerArticle = 10
	digestMaxLength  = 300
)

// step identifies one state of the workflow machine.
type step int

const (
	stepValidate step = iota
	stepFetch
	stepQualityCheck
	stepEnhance
	stepSummarize
	stepDigest
	stepFormat
	stepFail
	stepDone
)

func (s step) String() string {
	switch s {
	case stepValidate:
		return "validate_input"
	case stepFetch:
		return "fetch_news"
	case stepQualityCheck:
		return "quality_check"
	case stepEnhance:
		return "enhance_search"
	case stepSummarize:
		return "summarize_articles"
	case stepDigest:
		return "create_digest"
	case stepFormat:
		return "format_response"
	case stepFail:
		return "handle_error"
	default:
		return "done"
	}
}

// route is the decision taken after a quality check.
type route int

const (
	routeProceed route = iota
	routeEnhance
	routeError
)

// State carries one workflow run between steps. Topic mutates as search
// enhancement rewrites the query; callers keep the original themselves.
type State struct {
	Topic       string
	Language    string
	MaxArticles int

	Articles           []model.Article
	SummarizedArticles []model.Article
	Digest             model.Digest

	QualityScore float64
	RetryCount   int
	Err          string

	// Trace is the append-only log of what the run did, one timestamped
	// line per user-visible event.
	Trace []string

	logger *zerolog.Logger
}

func (s *State) appendTrace(msg string) {
	s.Trace = append(s.Trace, time.Now().Format(time.RFC3339)+" "+msg)
}

// run drives state through the machine until a terminal step.
func (a *Agent) run(ctx context.Context, s *State) {
	if s.logger == nil {
		s.logger = a.logger
	}

	current := stepValidate

	for current != stepDone {
		s.logger.Debug().Str("step", current.String()).Msg("running workflow step")

		switch current {
		case stepValidate:
			a.validate(s)
		case stepFetch:
			a.fetch(ctx, s)
		case stepQualityCheck:
			a.qualityCheck(s)
		case stepEnhance:
			a.enhance(s)
		case stepSummarize:
			a.summarize(ctx, s)
		case stepDigest:
			a.createDigest(ctx, s)
		case stepFormat:
			a.format(s)
		case stepFail:
			a.fail(s)

			return
		}

		current = next(current, s)
	}
}

// next picks the step that follows a completed one. An error routes straight
// to the terminal failure step no matter where the run is.
func next(current step, s *State) step {
	if s.Err != "" {
		return stepFail
	}

	switch current {
	case stepValidate:
		return stepFetch
	case stepFetch:
		return stepQualityCheck
	case stepQualityCheck:
		switch decide(s) {
		case routeEnhance:
			return stepEnhance
		case routeError:
			return stepFail
		default:
			return stepSummarize
		}
	case stepEnhance:
		return stepFetch
	case stepSummarize:
		return stepDigest
	case stepDigest:
		return stepFormat
	default:
		return stepDone
	}
}

// decide routes the workflow after a quality check. Errors take precedence,
// then enhancement while the score is below threshold and attempts remain.
func decide(s *State) route {
	if s.Err != "" {
		return routeError
	}

	if s.QualityScore < qualityThreshold && s.RetryCount < maxEnhancements {
		return routeEnhance
	}

	if len(s.Articles) == 0 {
		return routeError
	}

	return routeProceed
}

func (a *Agent) validate(s *State) {
	s.logger.Info().Msg("validating input")

	if len(strings.TrimSpace(s.Topic)) < minTopicLength {
		s.Err = "Topic must be at least 2 characters long"

		return
	}

	s.RetryCount = 0
	s.QualityScore = 0
	s.Articles = nil
	s.SummarizedArticles = nil
	s.Digest = model.Digest{}

	s.appendTrace("Summarize news about: " + s.Topic)
}

func (a *Agent) fetch(ctx context.Context, s *State) {
	s.logger.Info().Str("query", s.Topic).Msg("fetching news")

	if err := ctx.Err(); err != nil {
		s.Err = fmt.Sprintf("Failed to fetch news: %v", err)

		return
	}

	articles := a.news.Search(ctx, s.Topic, s.Language, s.MaxArticles)

	kept := make([]model.Article, 0, len(articles))

	for _, article := range articles {
		if article.ExtractionFailed() {
			continue
		}

		kept = append(kept, article)
	}

	s.Articles = kept
	s.appendTrace(fmt.Sprintf("Found %d articles about %s", len(kept), s.Topic))
}

func (a *Agent) qualityCheck(s *State) {
	if len(s.Articles) == 0 {
		s.QualityScore = 0
		s.Err = "No articles found for this topic. Please try a different search term."
	} else {
		s.QualityScore = qualityScore(s.Articles, s.MaxArticles)

		s.logger.Info().
			Float64("quality_score", s.QualityScore).
			Int("articles", len(s.Articles)).
			Msg("quality check completed")
	}

	observability.WorkflowQualityScore.Observe(s.QualityScore)
}

// qualityScore grades a result set on volume, content richness, and source
// diversity, each factor normalized to [0, 1].
func qualityScore(articles []model.Article, maxArticles int) float64 {
	if len(articles) == 0 {
		return 0
	}

	count := float64(len(articles))

	countScore := math.Min(count/float64(maxArticles), 1)

	var richness float64

	for i := range articles {
		richness += contentRichness(len(articles[i].TextContent))
	}

	contentScore := richness / count

	sources := make(map[string]struct{}, len(articles))

	for i := range articles {
		sources[articles[i].Source] = struct{}{}
	}

	diversityScore := math.Min(float64(len(sources))/math.Max(count*0.7, 1), 1)

	return (countScore + contentScore + diversityScore) / 3
}

func contentRichness(length int) float64 {
	switch {
	case length > 200:
		return 1.0
	case length > 100:
		return 0.7
	case length > 50:
		return 0.4
	default:
		return 0.1
	}
}

// enhance rewrites the query for another fetch attempt. Suffixes stack on
// the current topic, so a second attempt refines the first rewrite.
func (a *Agent) enhance(s *State) {
	s.RetryCount++
	observability.WorkflowRetries.Inc()

	strategies := []string{
		s.Topic + " news",
		s.Topic + " latest",
		s.Topic + " updates",
	}

	if s.RetryCount <= len(strategies) {
		s.Topic = strategies[s.RetryCount-1]
		s.appendTrace("Enhancing search with: " + s.Topic)
	}

	s.logger.Info().Str("query", s.Topic).Int("attempt", s.RetryCount).Msg("enhancing search")
}

func (a *Agent) summarize(ctx context.Context, s *State) {
	if err := ctx.Err(); err != nil {
		s.Err = fmt.Sprintf("Failed to summarize articles: %v", err)

		return
	}

	maxLen, minLen := summaryBudget(len(s.Articles))

	s.logger.Info().Int("articles", len(s.Articles)).Int("max_len", maxLen).Msg("summarizing articles")

	s.SummarizedArticles = a.summarizer.SummarizeArticles(ctx, s.Articles, maxLen, minLen)
	s.appendTrace(fmt.Sprintf("Summarized %d articles", len(s.SummarizedArticles)))
}

// summaryBudget tightens per-article word budgets as the set grows, keeping
// the combined digest input manageable.
func summaryBudget(count int) (maxLen, minLen int) {
	switch {
	case count > 15:
		return 100, 30
	case count > 10:
		return 130, 40
	default:
		return 150, 50
	}
}

func (a *Agent) createDigest(ctx context.Context, s *State) {
	if err := ctx.Err(); err != nil {
		s.Err = fmt.Sprintf("Failed to create digest: %v", err)

		return
	}

	s.logger.Info().Int("articles", len(s.SummarizedArticles)).Msg("creating digest")

	s.Digest = a.summarizer.Digest(ctx, s.SummarizedArticles, digestLength(len(s.SummarizedArticles)))
	s.appendTrace(fmt.Sprintf("Created executive summary covering %d articles", len(s.SummarizedArticles)))
}

// digestLength widens the digest budget with the article count, within bounds.
func digestLength(count int) int {
	length := digestBase + digestPerArticle*count
	if length > digestMaxLength {
		length = digestMaxLength
	}

	return length
}

func (a *Agent) format(s *State) {
	s.appendTrace("News summary completed successfully!")
	s.logger.Info().Msg("workflow completed")
}

func (a *Agent) fail(s *State) {
	msg := s.Err
	if msg == "" {
		msg = "Unknown error occurred"
	}

	s.logger.Error().Str("reason", msg).Msg("workflow failed")
	s.appendTrace("Error: " + msg)
}
