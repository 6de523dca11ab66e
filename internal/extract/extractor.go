// Package extract recovers full article bodies from publisher pages using
// an ordered chain of extraction strategies.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Method names reported in extraction results.
const (
	MethodReadability = "readability"
	MethodMetadata    = "metadata"
	MethodSelectors   = "selectors"
)

const (
	defaultMethodTimeout = 10 * time.Second
	minContentLength     = 100
)

var (
	ErrInvalidURL       = errors.New("invalid article URL")
	ErrBlockedDomain    = errors.New("domain is known to block scraping")
	ErrNoContent        = errors.New("no content found")
	ErrAllMethodsFailed = errors.New("all extraction methods failed")
)

// blockedDomains lists hosts that block scrapers or carry no article markup.
var blockedDomains = []string{
	"facebook.com", "twitter.com", "instagram.com", "linkedin.com",
	"youtube.com", "tiktok.com", "reddit.com",
}

// contentSelectors is ordered from most to least specific article container.
var contentSelectors = []string{
	"article",
	`[role="main"]`,
	".content",
	".article-content",
	".post-content",
	".entry-content",
	"main",
	".main-content",
}

// Result is the outcome of one extraction attempt.
type Result struct {
	Success bool
	Text    string
	Title   string
	Method  string
	Err     error
}

// Extractor runs the strategy chain over pages downloaded through a shared
// rate-limited fetcher. Each strategy attempt is bounded by its own timeout.
type Extractor struct {
	fetcher       *Fetcher
	methodTimeout time.Duration
	logger        *zerolog.Logger
}

func NewExtractor(fetcher *Fetcher, methodTimeout time.Duration, logger *zerolog.Logger) *Extractor {
	if methodTimeout <= 0 {
		methodTimeout = defaultMethodTimeout
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Extractor{fetcher: fetcher, methodTimeout: methodTimeout, logger: logger}
}

// Extractable reports whether a URL is worth an extraction attempt.
func Extractable(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Host)
	for _, blocked := range blockedDomains {
		if strings.Contains(host, blocked) {
			return false
		}
	}

	return true
}

// Extract downloads the page once and tries each strategy in order,
// keeping the first that yields normalized text longer than 100 characters.
func (e *Extractor) Extract(ctx context.Context, rawURL string) Result {
	if rawURL == "" {
		return Result{Err: ErrInvalidURL}
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return Result{Err: ErrInvalidURL}
	}

	if !Extractable(rawURL) {
		return Result{Err: ErrBlockedDomain}
	}

	body, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return Result{Err: fmt.Errorf("fetch page: %w", err)}
	}

	strategies := []struct {
		method string
		run    func([]byte, *url.URL) (string, string, error)
	}{
		{MethodReadability, e.extractReadability},
		{MethodMetadata, e.extractMetadata},
		{MethodSelectors, e.extractSelectors},
	}

	for _, strategy := range strategies {
		text, title, err := e.runStrategy(ctx, strategy.run, body, pageURL)
		if err != nil {
			e.logger.Debug().Err(err).Str("method", strategy.method).Str("url", rawURL).Msg("extraction method failed")
			continue
		}

		text = normalizeWhitespace(text)
		if len(text) <= minContentLength {
			e.logger.Debug().Str("method", strategy.method).Str("url", rawURL).Msg("extraction method found too little text")
			continue
		}

		e.logger.Debug().Str("method", strategy.method).Str("url", rawURL).Int("chars", len(text)).Msg("extracted article content")

		return Result{Success: true, Text: text, Title: title, Method: strategy.method}
	}

	return Result{Err: ErrAllMethodsFailed}
}

type strategyOutput struct {
	text  string
	title string
	err   error
}

// runStrategy bounds one strategy attempt by the method timeout. A timeout
// counts as a failure and the chain moves on.
func (e *Extractor) runStrategy(ctx context.Context, run func([]byte, *url.URL) (string, string, error), body []byte, pageURL *url.URL) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.methodTimeout)
	defer cancel()

	out := make(chan strategyOutput, 1)

	go func() {
		text, title, err := run(body, pageURL)
		out <- strategyOutput{text: text, title: title, err: err}
	}()

	select {
	case res := <-out:
		return res.text, res.title, res.err
	case <-ctx.Done():
		return "", "", fmt.Errorf("extraction method timed out: %w", ctx.Err())
	}
}

func (e *Extractor) extractReadability(body []byte, pageURL *url.URL) (string, string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", "", fmt.Errorf("readability parse: %w", err)
	}

	if strings.TrimSpace(article.TextContent) == "" {
		return "", "", ErrNoContent
	}

	return article.TextContent, article.Title, nil
}

// extractMetadata harvests description meta tags and paragraph text.
func (e *Extractor) extractMetadata(body []byte, _ *url.URL) (string, string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	var (
		title      string
		ogTitle    string
		parts      []string
		paragraphs []string
	)

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name, content := metaAttrs(n)
				switch strings.ToLower(name) {
				case "description", "og:description", "twitter:description":
					if content != "" {
						parts = append(parts, content)
					}
				case "og:title":
					ogTitle = content
				}
			case "p":
				if text := nodeText(n); text != "" {
					paragraphs = append(paragraphs, text)
				}

				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	text := strings.Join(append(parts, paragraphs...), " ")
	if strings.TrimSpace(text) == "" {
		return "", "", ErrNoContent
	}

	if ogTitle != "" {
		title = ogTitle
	}

	return text, title, nil
}

// extractSelectors walks a prioritized list of content selectors and falls
// back to full-page text.
func (e *Extractor) extractSelectors(body []byte, _ *url.URL) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse document: %w", err)
	}

	doc.Find("script,style").Remove()

	var content string

	for _, selector := range contentSelectors {
		selection := doc.Find(selector)
		if selection.Length() == 0 {
			continue
		}

		var parts []string

		selection.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, s.Text())
		})

		content = strings.Join(parts, " ")
		if len(normalizeWhitespace(content)) > minContentLength {
			break
		}
	}

	if len(normalizeWhitespace(content)) <= minContentLength {
		content = doc.Text()
	}

	content = normalizeWhitespace(content)
	if content == "" {
		return "", "", ErrNoContent
	}

	return content, strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func metaAttrs(n *html.Node) (string, string) {
	var name, content string

	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			name = attr.Val
		case "content":
			content = attr.Val
		}
	}

	return name, content
}

func nodeText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)

	return strings.TrimSpace(b.String())
}

// normalizeWhitespace collapses whitespace runs into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
