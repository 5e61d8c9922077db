package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/codesmith/internal/config"
	"github.com/xkilldash9x/codesmith/internal/metrics"
)

func TestNewProviderClient(t *testing.T) {
	logger, _ := setupTestLogger(t)

	for _, p := range []config.LLMProvider{config.ProviderGroq, config.ProviderOpenAI} {
		c, err := NewProviderClient(context.Background(), getValidLLMConfig(p), logger)
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, c)
	}

	c, err := NewProviderClient(context.Background(), getValidLLMConfig(config.ProviderGemini), logger)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, c)

	_, err = NewProviderClient(context.Background(), getValidLLMConfig("anthropic"), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown or unsupported LLM provider configured: 'anthropic'")
}

func TestNewClient(t *testing.T) {
	logger, logs := setupTestLogger(t)
	cfg := config.LLMRouterConfig{
		DefaultFastModel:     "fast",
		DefaultPowerfulModel: "big",
		CallTimeout:          time.Minute,
		RequestsPerMinute:    60,
		Models: map[string]config.LLMModelConfig{
			"fast": getValidLLMConfig(config.ProviderGroq),
			"big":  getValidLLMConfig(config.ProviderGemini),
		},
	}

	client, err := NewClient(context.Background(), cfg, logger, metrics.New())
	require.NoError(t, err)

	router, ok := client.(*LLMRouter)
	require.True(t, ok)
	assert.IsType(t, &Guard{}, router.clients["fast"])
	assert.IsType(t, &Guard{}, router.clients["powerful"])
	assert.Equal(t, 2, logs.FilterMessage("LLM client configured").Len())
	assert.NoError(t, client.Close())
}

func TestNewClient_MissingModel(t *testing.T) {
	logger, _ := setupTestLogger(t)
	cfg := config.LLMRouterConfig{
		DefaultFastModel:     "fast",
		DefaultPowerfulModel: "absent",
		Models: map[string]config.LLMModelConfig{
			"fast": getValidLLMConfig(config.ProviderGroq),
		},
	}

	_, err := NewClient(context.Background(), cfg, logger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `model "absent" for tier powerful is not configured`)
}
