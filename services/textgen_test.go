package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter returns its scripted results in order, repeating the last.
type scriptedCompleter struct {
	mu      sync.Mutex
	results []completion
	calls   int
	lastReq openai.ChatCompletionRequest
}

type completion struct {
	text string
	err  error
}

func (c *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReq = req
	r := c.results[min(c.calls, len(c.results)-1)]
	c.calls++
	if r.err != nil {
		return openai.ChatCompletionResponse{}, r.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: r.text}}},
	}, nil
}

func newTestGenerator(c ChatCompleter, retries uint64) *OpenAIGenerator {
	g := NewOpenAIGeneratorWithClient(c, "test-model", retries, time.Second, zerolog.Nop())
	g.initialInterval = time.Millisecond
	return g
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	c := &scriptedCompleter{results: []completion{
		{err: &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "overloaded"}},
		{text: "   "},
		{text: " hello there "},
	}}
	g := newTestGenerator(c, 3)

	out, err := g.Generate(context.Background(), "hi", DefaultGenerationConfig())
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, 3, c.calls)

	assert.Equal(t, "test-model", c.lastReq.Model)
	require.Len(t, c.lastReq.Messages, 1)
	assert.Equal(t, "hi", c.lastReq.Messages[0].Content)
	assert.Equal(t, 2048, c.lastReq.MaxTokens)
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	c := &scriptedCompleter{results: []completion{
		{err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}},
	}}
	g := newTestGenerator(c, 5)

	_, err := g.Generate(context.Background(), "hi", DefaultGenerationConfig())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 1, c.calls)
}

func TestGenerateRetriesRateLimits(t *testing.T) {
	c := &scriptedCompleter{results: []completion{
		{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}},
		{text: "ok"},
	}}
	g := newTestGenerator(c, 2)

	out, err := g.Generate(context.Background(), "hi", DefaultGenerationConfig())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, c.calls)
}

func TestGenerateGivesUpAfterMaxRetries(t *testing.T) {
	c := &scriptedCompleter{results: []completion{{err: errors.New("connection reset")}}}
	g := newTestGenerator(c, 2)

	_, err := g.Generate(context.Background(), "hi", DefaultGenerationConfig())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 3, c.calls)
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{}, zerolog.Nop())
	assert.Error(t, err)

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test", BaseURL: "http://localhost:1/v1"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, openai.GPT4oMini, g.model)
}
