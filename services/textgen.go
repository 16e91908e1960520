// services/textgen.go - Text generation client for the companion
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// GenerationConfig tunes a completion.
type GenerationConfig struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultGenerationConfig is used for companion replies.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.7, TopP: 0.95, MaxTokens: 2048}
}

// TextGenerator completes a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

var errEmptyCompletion = errors.New("empty completion")

// ChatCompleter is the part of the OpenAI client the generator needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures an OpenAIGenerator.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries uint64
	Timeout    time.Duration
}

// OpenAIGenerator calls a chat completion endpoint with exponential backoff.
type OpenAIGenerator struct {
	client          ChatCompleter
	model           string
	maxRetries      uint64
	timeout         time.Duration
	initialInterval time.Duration
	log             zerolog.Logger
}

// NewOpenAIGenerator builds a generator for an OpenAI compatible endpoint.
func NewOpenAIGenerator(cfg OpenAIConfig, log zerolog.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return NewOpenAIGeneratorWithClient(openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.MaxRetries, cfg.Timeout, log), nil
}

// NewOpenAIGeneratorWithClient wraps an existing client.
func NewOpenAIGeneratorWithClient(client ChatCompleter, model string, maxRetries uint64, timeout time.Duration, log zerolog.Logger) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIGenerator{
		client:          client,
		model:           model,
		maxRetries:      maxRetries,
		timeout:         timeout,
		initialInterval: 500 * time.Millisecond,
		log:             log.With().Str("component", "textgen").Logger(),
	}
}

// Generate returns the completion of prompt. Client errors other than rate
// limiting are not retried.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	op := func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			if isPermanentAPIError(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errEmptyCompletion
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return "", errEmptyCompletion
		}
		return text, nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.initialInterval
	exp.MaxElapsedTime = 2 * time.Minute
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, g.maxRetries), ctx)

	text, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		g.log.Warn().Err(err).Dur("retry_in", wait).Msg("text generation failed, retrying")
	})
	if err != nil {
		return "", &TransportError{Op: "generate text", Err: err}
	}
	return text, nil
}

func isPermanentAPIError(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.HTTPStatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}
