// Package model defines the value types shared across the news pipeline:
// articles, trending topics, and the result documents returned to callers.
package model

import "time"

// PaywallMarker is the placeholder some provider tiers return instead of the
// article body. Text carrying it is treated as missing content.
const PaywallMarker = "ONLY AVAILABLE IN PAID PLANS"

// Article is one retrieved news item. Retrieval normalization creates it;
// extraction, relevance scoring, and summarization fill in the derived fields.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Snippet     string    `json:"content"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	ImageURL    string    `json:"image_url,omitempty"`
	Categories  []string  `json:"categories,omitempty"`

	// TextContent holds the best available body text: snippet or description
	// after normalization, replaced only by a richer extraction.
	TextContent string `json:"text_content"`

	// ExtractedContent is the full text a successful extraction produced,
	// kept separately from TextContent so callers choose when to promote it.
	ExtractedContent string `json:"extracted_content,omitempty"`

	ExtractionSuccess *bool   `json:"extraction_success,omitempty"`
	ExtractionMethod  string  `json:"extraction_method,omitempty"`
	ExtractionError   string  `json:"extraction_error,omitempty"`
	RelevanceScore    float64 `json:"relevance_score,omitempty"`
	Summary           string  `json:"summary,omitempty"`
	SummaryLength     int     `json:"summary_length,omitempty"`
	OriginalLength    int     `json:"original_length,omitempty"`
	Cached            bool    `json:"cached,omitempty"`
}

// Extracted reports whether extraction was attempted and succeeded.
func (a *Article) Extracted() bool {
	return a.ExtractionSuccess != nil && *a.ExtractionSuccess
}

// ExtractionFailed reports whether extraction was attempted and failed.
func (a *Article) ExtractionFailed() bool {
	return a.ExtractionSuccess != nil && !*a.ExtractionSuccess
}

// Headline references the article that put a topic on the trending list.
type Headline struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// TrendingTopic is one entry of the ranked trending list.
type TrendingTopic struct {
	Topic         string    `json:"topic"`
	Count         int       `json:"count"`
	LatestArticle *Headline `json:"latest_article,omitempty"`
}
