// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/config"
)

// GroqBaseURL is the OpenAI-compatible endpoint of the Groq API.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient implements schemas.LLMClient for any OpenAI-compatible chat
// completion API. Groq is the default deployment.
type OpenAIClient struct {
	client   *openai.Client
	provider config.LLMProvider
	logger   *zap.Logger
	config   config.LLMModelConfig
}

// NewOpenAIClient initializes the client. An empty endpoint selects the
// provider's public API.
func NewOpenAIClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s model name is required", cfg.Provider)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.Endpoint != "":
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	case cfg.Provider == config.ProviderGroq:
		clientCfg.BaseURL = GroqBaseURL
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientCfg),
		provider: cfg.Provider,
		logger:   logger.Named("llm_client." + string(cfg.Provider)),
		config:   cfg,
	}, nil
}

// Generate sends one chat completion request. It never retries.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	chatReq := c.buildRequest(req)

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("Chat completion request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", classify(ctx, string(c.provider), err)
	}

	if len(resp.Choices) == 0 {
		return "", classify(ctx, string(c.provider), fmt.Errorf("%w: response contained no choices", ErrModelUnavailable))
	}

	c.logger.Info("LLM generation complete",
		zap.String("model", c.config.Model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) buildRequest(req schemas.GenerationRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: float32(req.Options.Temperature),
		TopP:        c.config.TopP,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.Options.TopP > 0 {
		chatReq.TopP = float32(req.Options.TopP)
	}
	if req.Options.MaxTokens > 0 {
		chatReq.MaxTokens = req.Options.MaxTokens
	}
	if req.Options.ForceJSONFormat {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return chatReq
}

// Close is a no-op; the underlying HTTP client holds no resources that need releasing.
func (c *OpenAIClient) Close() error {
	return nil
}
