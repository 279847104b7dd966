package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
	"github.com/selivandex/crypto-digest/pkg/templates"
)

// ErrNoValidResponse covers every way a completion can fail to yield text
var ErrNoValidResponse = errors.New("no valid response received")

// Summarizer turns asset facts and headlines into a prose summary
type Summarizer interface {
	Summarize(ctx context.Context, req models.SummaryRequest) (string, error)
}

// ChatSummarizer calls an OpenAI-compatible chat completions endpoint (Groq by default)
type ChatSummarizer struct {
	client      *openai.Client
	renderer    templates.Renderer
	model       string
	temperature float32
	topP        float32
	maxTokens   int
}

// NewChatSummarizer creates new summarizer pointed at {BaseURL}{APIPath}
func NewChatSummarizer(cfg *config.LLMConfig, upstream *config.UpstreamConfig, renderer templates.Renderer) *ChatSummarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIPath, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: upstream.Timeout}

	return &ChatSummarizer{
		client:      openai.NewClientWithConfig(clientCfg),
		renderer:    renderer,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
	}
}

// BuildPrompt renders the per-asset user prompt
func BuildPrompt(renderer templates.Renderer, req models.SummaryRequest) (string, error) {
	return renderer.ExecuteTemplate(templates.SummaryPrompt, req)
}

// Summarize issues one non-streaming completion and returns its text.
// No retry: callers substitute a fallback on error.
func (s *ChatSummarizer) Summarize(ctx context.Context, req models.SummaryRequest) (string, error) {
	prompt, err := BuildPrompt(s.renderer, req)
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}

	logger.Debug("calling completion API",
		zap.String("model", s.model),
		zap.String("symbol", req.Quote.Symbol),
		zap.String("prompt", prompt),
	)

	startTime := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: s.temperature,
		TopP:        s.topP,
		MaxTokens:   s.maxTokens,
		Stream:      false,
		// Stop stays empty: omitempty leaves it out, which the API reads as null
	})
	if err != nil {
		logger.Warn("completion request failed",
			zap.String("symbol", req.Quote.Symbol),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrNoValidResponse, err)
	}

	if len(resp.Choices) == 0 {
		logger.Warn("unexpected completion response: no choices",
			zap.String("symbol", req.Quote.Symbol),
			zap.String("id", resp.ID),
		)
		return "", fmt.Errorf("%w: no choices in response", ErrNoValidResponse)
	}

	content := resp.Choices[0].Message.Content

	logger.Debug("completion response",
		zap.String("symbol", req.Quote.Symbol),
		zap.Duration("latency", time.Since(startTime)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return content, nil
}
