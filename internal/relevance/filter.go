// Package relevance scores articles against a search topic using stemmed
// keyword overlap with raw-word bonuses for title and body matches.
package relevance

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"

	"newsagent/internal/model"
)

const (
	baseScore         = 0.2
	wordPresenceBonus = 0.2
	titleMatchBoost   = 0.3
	minTokenLength    = 3
	minTopicWordLen   = 2
	noArticleKeywords = 0.3
	noTopicKeywords   = 0.5
)

// Stats summarizes the relevance scores attached to a ranked article set.
type Stats struct {
	Average float64 `json:"avg_relevance"`
	Min     float64 `json:"min_relevance"`
	Max     float64 `json:"max_relevance"`
	Total   int     `json:"total_articles"`
}

type Filter struct{}

func NewFilter() *Filter {
	return &Filter{}
}

// Score rates how well an article matches the search topic. Every scorable
// article gets the base score; keyword overlap and literal word matches in
// the title and body raise it, capped at 1.0.
func (f *Filter) Score(article *model.Article, topic string) float64 {
	topicKeywords := keywords(topic)
	if len(topicKeywords) == 0 {
		return noTopicKeywords
	}

	title := strings.ToLower(article.Title)
	articleText := title + " " + strings.ToLower(article.Description) + " " + strings.ToLower(article.TextContent)

	articleKeywords := keywords(articleText)
	if len(articleKeywords) == 0 {
		return noArticleKeywords
	}

	common := 0

	for token := range topicKeywords {
		if articleKeywords[token] {
			common++
		}
	}

	score := baseScore + float64(common)/float64(len(topicKeywords))

	for _, word := range topicWords(topic) {
		if strings.Contains(articleText, word) {
			score += wordPresenceBonus
		}

		if strings.Contains(title, word) {
			score += titleMatchBoost
		}
	}

	if score > 1.0 {
		return 1.0
	}

	return score
}

// RankAndFilter scores every article, drops those below minScore, and
// returns the survivors sorted by descending relevance. Ties keep their
// input order. A maxArticles of 0 means no limit.
func (f *Filter) RankAndFilter(articles []model.Article, topic string, minScore float64, maxArticles int) []model.Article {
	ranked := make([]model.Article, 0, len(articles))

	for i := range articles {
		score := f.Score(&articles[i], topic)
		if score < minScore {
			continue
		}

		article := articles[i]
		article.RelevanceScore = score
		ranked = append(ranked, article)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if maxArticles > 0 && len(ranked) > maxArticles {
		ranked = ranked[:maxArticles]
	}

	return ranked
}

// Stats reports the average, minimum, and maximum relevance over a ranked
// article set.
func (f *Filter) Stats(articles []model.Article) Stats {
	if len(articles) == 0 {
		return Stats{}
	}

	stats := Stats{
		Min:   articles[0].RelevanceScore,
		Max:   articles[0].RelevanceScore,
		Total: len(articles),
	}

	var sum float64

	for i := range articles {
		score := articles[i].RelevanceScore
		sum += score

		if score < stats.Min {
			stats.Min = score
		}

		if score > stats.Max {
			stats.Max = score
		}
	}

	stats.Average = sum / float64(len(articles))

	return stats
}

// keywords lowercases the text, splits on non-letters, drops stop words and
// short tokens, and stems what remains.
func keywords(text string) map[string]bool {
	tokens := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, word := range words {
		if len(word) >= minTokenLength && !isStopWord(word) {
			tokens[english.Stem(word, true)] = true
		}
	}

	return tokens
}

// topicWords returns the raw lowercase words of the topic used for the
// literal presence bonuses.
func topicWords(topic string) []string {
	var words []string

	for _, word := range strings.Fields(topic) {
		if len(word) >= minTopicWordLen {
			words = append(words, strings.ToLower(word))
		}
	}

	return words
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"up": true, "about": true, "into": true, "through": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"that": true, "which": true, "who": true, "whom": true, "this": true,
	"these": true, "those": true, "it": true, "its": true, "as": true,
	"not": true, "no": true, "nor": true, "so": true, "than": true,
	"too": true, "very": true, "just": true, "also": true, "there": true,
	"their": true, "they": true, "them": true, "then": true, "when": true,
	"where": true, "what": true, "how": true, "all": true, "each": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
}

func isStopWord(word string) bool {
	return stopWords[word]
}
