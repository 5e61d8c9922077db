// -- internal/llmclient/factory.go --
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/config"
	"github.com/xkilldash9x/codesmith/internal/metrics"
)

// NewClient builds the tier router described by the configuration. Each
// tier's provider client is wrapped in a Guard carrying the configured call
// timeout and rate limit.
func NewClient(ctx context.Context, cfg config.LLMRouterConfig, logger *zap.Logger, rec *metrics.Recorder) (schemas.LLMClient, error) {
	tiers := []struct {
		tier schemas.ModelTier
		name string
	}{
		{schemas.TierFast, cfg.DefaultFastModel},
		{schemas.TierPowerful, cfg.DefaultPowerfulModel},
	}

	clients := make(map[schemas.ModelTier]schemas.LLMClient, len(tiers))
	for _, t := range tiers {
		modelCfg, ok := cfg.Models[t.name]
		if !ok {
			return nil, fmt.Errorf("model %q for tier %s is not configured", t.name, t.tier)
		}
		provider, err := NewProviderClient(ctx, modelCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tier client (%s): %w", t.tier, t.name, err)
		}
		clients[t.tier] = NewGuard(provider, t.tier, cfg.CallTimeout, cfg.RequestsPerMinute, rec, logger)
		logger.Info("LLM client configured",
			zap.String("tier", string(t.tier)),
			zap.String("provider", string(modelCfg.Provider)),
			zap.String("model", modelCfg.Model))
	}

	return NewLLMRouter(logger, clients[schemas.TierFast], clients[schemas.TierPowerful])
}

// NewProviderClient creates the raw client for a single model configuration.
func NewProviderClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s, %s]",
			cfg.Provider, config.ProviderGroq, config.ProviderOpenAI, config.ProviderGemini)
	}
}
