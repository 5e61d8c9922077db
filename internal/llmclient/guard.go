package llmclient

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/metrics"
)

// Guard decorates a client with the per-call policy every inference call
// must follow: an optional request rate limit, a hard timeout, error
// classification, and latency metrics.
type Guard struct {
	next    schemas.LLMClient
	tier    schemas.ModelTier
	timeout time.Duration
	limiter *rate.Limiter
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewGuard wraps next. A requestsPerMinute of 0 disables throttling; a
// timeout of 0 leaves the caller's deadline as the only bound.
func NewGuard(next schemas.LLMClient, tier schemas.ModelTier, timeout time.Duration, requestsPerMinute int, rec *metrics.Recorder, logger *zap.Logger) *Guard {
	g := &Guard{
		next:    next,
		tier:    tier,
		timeout: timeout,
		metrics: rec,
		logger:  logger.Named("llm_guard").With(zap.String("tier", string(tier))),
	}
	if requestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return g
}

// Generate applies the policy and forwards the request.
func (g *Guard) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", classify(ctx, "rate limiter", err)
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.next.Generate(callCtx, req)
	elapsed := time.Since(start)

	if err != nil {
		err = classify(callCtx, string(g.tier), err)
		status := metrics.CallError
		if errors.Is(err, ErrModelTimeout) {
			status = metrics.CallTimeout
		}
		g.metrics.RecordModelCall(g.tier, status, elapsed)
		g.logger.Warn("Model call failed", zap.Duration("duration", elapsed), zap.Error(err))
		return "", err
	}

	g.metrics.RecordModelCall(g.tier, metrics.CallOK, elapsed)
	g.logger.Debug("Model call complete", zap.Duration("duration", elapsed), zap.Int("response_len", len(resp)))
	return resp, nil
}

// Close closes the wrapped client.
func (g *Guard) Close() error {
	return g.next.Close()
}
