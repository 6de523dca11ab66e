package model

import "time"

// Statuses used in result documents.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusOnline  = "online"
)

// Summary is the outcome of summarizing one piece of text.
type Summary struct {
	Text           string `json:"summary"`
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
	Cached         bool   `json:"cached"`
}

// Digest is the aggregate summary across a set of articles.
type Digest struct {
	Text         string `json:"digest"`
	ArticleCount int    `json:"article_count"`
	Cached       bool   `json:"cached"`
}

// ResultMetadata describes one completed workflow run.
type ResultMetadata struct {
	RunID          string   `json:"run_id"`
	TotalArticles  int      `json:"total_articles"`
	Language       string   `json:"language"`
	CachedArticles int      `json:"cached_articles"`
	Sources        []string `json:"sources"`
	QualityScore   float64  `json:"quality_score"`
	RetryCount     int      `json:"retry_count"`
	WorkflowSteps  int      `json:"workflow_steps"`
}

// TopicResult is the document returned for one processed topic.
type TopicResult struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Digest    *Digest         `json:"digest,omitempty"`
	Articles  []Article       `json:"articles,omitempty"`
	Metadata  *ResultMetadata `json:"metadata,omitempty"`
	Trace     []string        `json:"workflow_messages,omitempty"`
}

// TrendingResult is the document returned for a trending-topics request.
type TrendingResult struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Topics    []TrendingTopic `json:"trending_topics"`
	Language  string          `json:"language"`
	Timestamp time.Time       `json:"timestamp"`
}

// AgentStatus is the health and capability summary exposed to callers.
type AgentStatus struct {
	Status            string    `json:"status"`
	Message           string    `json:"message,omitempty"`
	AgentType         string    `json:"agent_type"`
	Model             string    `json:"model"`
	CachedTopicsCount int       `json:"cached_topics_count"`
	CachedTopics      []string  `json:"cached_topics"`
	Capabilities      []string  `json:"capabilities"`
	Timestamp         time.Time `json:"timestamp"`
}
