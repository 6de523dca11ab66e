package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"newsagent/internal/model"
)

const (
	newsAPIDefaultBaseURL = "https://api.thenewsapi.com/v1/news"
	newsAPIDefaultTimeout = 30 * time.Second
	newsAPIDateLayout     = "2006-01-02"
	newsAPITopCategories  = "general,business,technology,sports"
	responseSnippetMaxLen = 200
)

var (
	errNewsAPIStatus = errors.New("newsapi unexpected status")
	errNewsAPIError  = errors.New("newsapi error payload")
)

// NewsAPIProvider talks to a TheNewsAPI-compatible HTTP endpoint.
type NewsAPIProvider struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

type NewsAPIConfig struct {
	APIToken string
	BaseURL  string
	Timeout  time.Duration
}

func NewNewsAPIProvider(cfg NewsAPIConfig) *NewsAPIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = newsAPIDefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = newsAPIDefaultTimeout
	}

	return &NewsAPIProvider{
		baseURL:    baseURL,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *NewsAPIProvider) Name() ProviderName {
	return ProviderNewsAPI
}

func (p *NewsAPIProvider) IsAvailable() bool {
	return p.apiToken != ""
}

// Search queries the "all" endpoint for articles matching the topic.
func (p *NewsAPIProvider) Search(ctx context.Context, q Query) ([]model.Article, error) {
	params := url.Values{}
	params.Set("search", q.Topic)
	params.Set("language", q.Language)
	params.Set("limit", strconv.Itoa(q.Limit))

	if !q.PublishedAfter.IsZero() {
		params.Set("published_after", q.PublishedAfter.Format(newsAPIDateLayout))
	}

	return p.request(ctx, "all", params)
}

// Headlines queries the "top" endpoint across the popular categories.
func (p *NewsAPIProvider) Headlines(ctx context.Context, language string, limit int) ([]model.Article, error) {
	params := url.Values{}
	params.Set("language", language)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("categories", newsAPITopCategories)

	return p.request(ctx, "top", params)
}

func (p *NewsAPIProvider) request(ctx context.Context, endpoint string, params url.Values) ([]model.Article, error) {
	if !p.IsAvailable() {
		return nil, errProviderNotFound
	}

	params.Set("api_token", p.apiToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create newsapi request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read newsapi response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if err := checkErrorPayload(body); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %d", errNewsAPIStatus, resp.StatusCode)
	}

	return parseArticles(body)
}

type newsAPIEnvelope struct {
	Data  []newsAPIArticle `json:"data"`
	Error *newsAPIError    `json:"error"`
}

type newsAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type newsAPIArticle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Snippet     string   `json:"snippet"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	PublishedAt string   `json:"published_at"`
	Source      string   `json:"source"`
	Categories  []string `json:"categories"`
}

func parseArticles(body []byte) ([]model.Article, error) {
	if err := checkErrorPayload(body); err != nil {
		return nil, err
	}

	var envelope newsAPIEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse newsapi json: %w", err)
	}

	articles := make([]model.Article, 0, len(envelope.Data))

	for _, item := range envelope.Data {
		article := model.Article{
			URL:         item.URL,
			Title:       item.Title,
			Description: item.Description,
			Snippet:     item.Snippet,
			Source:      item.Source,
			ImageURL:    item.ImageURL,
			Categories:  item.Categories,
		}

		if item.PublishedAt != "" {
			if t, err := dateparse.ParseAny(item.PublishedAt); err == nil {
				article.PublishedAt = t
			}
		}

		articles = append(articles, article)
	}

	return articles, nil
}

func checkErrorPayload(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] != '{' && trimmed[0] != '[' {
		msg := string(trimmed)
		if len(msg) > responseSnippetMaxLen {
			msg = msg[:responseSnippetMaxLen] + "..."
		}

		return fmt.Errorf("%w: %s", errNewsAPIError, msg)
	}

	var envelope newsAPIEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("%w: %s (%s)", errNewsAPIError, envelope.Error.Message, envelope.Error.Code)
	}

	return nil
}
