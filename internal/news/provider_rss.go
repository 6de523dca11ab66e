package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"newsagent/internal/model"
)

const rssDefaultTimeout = 30 * time.Second

var errAllFeedsFailed = errors.New("all rss feeds failed")

// RSSProvider serves articles from a fixed set of feeds. It backs the
// pipeline when no API token is configured and doubles as a fallback
// source behind the registry.
type RSSProvider struct {
	feeds  []string
	client *http.Client
	logger *zerolog.Logger
}

type RSSConfig struct {
	Feeds   []string
	Timeout time.Duration
}

func NewRSSProvider(cfg RSSConfig, logger *zerolog.Logger) *RSSProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = rssDefaultTimeout
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &RSSProvider{
		feeds:  cfg.Feeds,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *RSSProvider) Name() ProviderName {
	return ProviderRSS
}

func (p *RSSProvider) IsAvailable() bool {
	return len(p.feeds) > 0
}

// Search fetches every feed and keeps items mentioning any topic word.
func (p *RSSProvider) Search(ctx context.Context, q Query) ([]model.Article, error) {
	articles, err := p.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	words := searchWords(q.Topic)

	matched := make([]model.Article, 0, len(articles))

	for _, article := range articles {
		if len(words) == 0 || mentionsAny(article, words) {
			matched = append(matched, article)
		}
	}

	sortByRecency(matched)

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return matched, nil
}

// Headlines returns the most recent items across all feeds.
func (p *RSSProvider) Headlines(ctx context.Context, _ string, limit int) ([]model.Article, error) {
	articles, err := p.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	sortByRecency(articles)

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	return articles, nil
}

func (p *RSSProvider) fetchAll(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article

	failures := 0

	for _, feedURL := range p.feeds {
		parser := gofeed.NewParser()
		parser.Client = p.client

		feed, err := parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failures++

			p.logger.Warn().Err(err).Str("feed", feedURL).Msg("rss feed fetch failed")

			continue
		}

		for _, item := range feed.Items {
			articles = append(articles, feedItemToArticle(feed, item))
		}
	}

	if failures == len(p.feeds) {
		return nil, fmt.Errorf("%w: %d feeds", errAllFeedsFailed, failures)
	}

	return articles, nil
}

func feedItemToArticle(feed *gofeed.Feed, item *gofeed.Item) model.Article {
	article := model.Article{
		URL:         item.Link,
		Title:       item.Title,
		Description: stripMarkup(item.Description),
		Snippet:     stripMarkup(item.Content),
		Source:      feed.Title,
		Categories:  item.Categories,
	}

	if item.PublishedParsed != nil {
		article.PublishedAt = *item.PublishedParsed
	} else if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			article.PublishedAt = t
		}
	}

	if item.Image != nil {
		article.ImageURL = item.Image.URL
	}

	return article
}

// stripMarkup flattens feed HTML into plain text.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func searchWords(topic string) []string {
	var words []string

	for _, word := range strings.Fields(strings.ToLower(topic)) {
		if len(word) > 1 {
			words = append(words, word)
		}
	}

	return words
}

func mentionsAny(article model.Article, words []string) bool {
	haystack := strings.ToLower(article.Title + " " + article.Description + " " + article.Snippet)

	for _, word := range words {
		if strings.Contains(haystack, word) {
			return true
		}
	}

	return false
}

func sortByRecency(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
