// Package summarize produces per-article summaries and whole-set digests
// through an OpenAI-compatible backend, with caching and bounded retries.
package summarize

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"newsagent/internal/config"
)

var (
	// ErrBusy marks transient backend pressure worth a backoff and retry.
	ErrBusy = errors.New("summarizer busy")
	// ErrResourceExhausted marks quota or capacity failures that retrying
	// cannot fix.
	ErrResourceExhausted = errors.New("summarizer resources exhausted")
)

// Client generates one summary per call. maxLen and minLen are word budgets.
type Client interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// New returns the OpenAI-backed client, or the deterministic mock when no
// API key is configured.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == "mock" {
		return &mockClient{}
	}

	return newOpenAIClient(cfg, logger)
}

type mockClient struct{}

// Summarize clips leading whole sentences until the word budget is spent.
// Output depends only on the input, which keeps tests stable.
func (c *mockClient) Summarize(_ context.Context, text string, maxLen, _ int) (string, error) {
	text = strings.Join(strings.Fields(text), " ")

	var (
		kept  []string
		words int
	)

	for _, sentence := range strings.Split(text, ". ") {
		n := len(strings.Fields(sentence))
		if words > 0 && words+n > maxLen {
			break
		}

		kept = append(kept, strings.TrimSuffix(sentence, "."))
		words += n

		if words >= maxLen {
			break
		}
	}

	out := strings.Join(kept, ". ")
	if out != "" && !strings.HasSuffix(out, ".") {
		out += "."
	}

	return out, nil
}
