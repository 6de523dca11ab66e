package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"newsagent/internal/config"
)

const (
	requestBurst = 5

	// completionTokenFactor converts the word budget into a generous token
	// ceiling for the completion.
	completionTokenFactor = 2
)

var errEmptyCompletion = errors.New("empty completion response")

type openaiClient struct {
	client      *openai.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

func newOpenAIClient(cfg *config.Config, logger *zerolog.Logger) *openaiClient {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	return &openaiClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.LLMModel,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.LLMRateRPS), requestBurst),
	}
}

func (c *openaiClient) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	prompt := fmt.Sprintf(
		"Summarize the following news content in %d to %d words. State the key facts directly and return only the summary text.\n\n%s",
		minLen, maxLen, text,
	)

	model := c.model
	if model == "" {
		model = openai.GPT4oMini
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxLen * completionTokenFactor,
		// omitempty drops a literal zero; the epsilon keeps generation deterministic
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classifyError folds backend failures into the retry classes the service
// understands: rate pressure and server errors are retryable, quota
// exhaustion is not.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Type == "insufficient_quota":
		return fmt.Errorf("%w: %s", ErrResourceExhausted, apiErr.Message)
	case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrBusy, apiErr.Message)
	case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrBusy, apiErr.Message)
	}

	return err
}
