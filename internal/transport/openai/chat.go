package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/metrics"
)

// Compile-time checks.
var (
	_ domain.Generator     = (*ChatGenerator)(nil)
	_ domain.HealthChecker = (*ChatGenerator)(nil)
)

// ChatGenerator is a generation backend using the OpenAI-compatible /chat/completions API.
type ChatGenerator struct {
	client      *openai.Client
	temperature float32
	provider    string
	logger      *zap.Logger
}

// ChatConfig adds generation settings to the connection.
type ChatConfig struct {
	Config
	Temperature float32
}

// NewChatGenerator creates an OpenAI-compatible generation backend.
func NewChatGenerator(cfg *ChatConfig) *ChatGenerator {
	return &ChatGenerator{
		client:      newClient(&cfg.Config),
		temperature: cfg.Temperature,
		provider:    cfg.Provider,
		logger:      loggerOrNop(cfg.Logger),
	}
}

// Chat sends the conversation and returns the first choice.
func (g *ChatGenerator) Chat(ctx context.Context, model string, messages []domain.Message) (domain.ChatResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: g.temperature,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, model, "error").Inc()
		g.logger.Warn("chat completion failed",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.ChatResponse{}, parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, model, "error").Inc()
		return domain.ChatResponse{}, fmt.Errorf("empty chat completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return domain.ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *ChatGenerator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
