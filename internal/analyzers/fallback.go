package analyzers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// Fallback runs primary and switches to secondary when primary is unavailable.
// The switch is recorded as an informational finding so the report shows
// which tool actually ran.
type Fallback struct {
	primary   schemas.Analyzer
	secondary schemas.Analyzer
	logger    *zap.Logger
}

var _ schemas.Analyzer = (*Fallback)(nil)

func NewFallback(primary, secondary schemas.Analyzer, logger *zap.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Name() string { return f.primary.Name() }

func (f *Fallback) Analyze(ctx context.Context, source string) ([]schemas.Finding, bool) {
	if findings, ok := f.primary.Analyze(ctx, source); ok {
		return findings, true
	}

	f.logger.Info("Primary analyzer unavailable, using fallback",
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.secondary.Name()))

	findings, ok := f.secondary.Analyze(ctx, source)
	if !ok {
		return nil, false
	}
	note := schemas.Finding{
		Tool:     f.secondary.Name(),
		Severity: schemas.SeverityInfo,
		Message:  fmt.Sprintf("%s unavailable; checked with %s instead", f.primary.Name(), f.secondary.Name()),
	}
	return append([]schemas.Finding{note}, findings...), true
}
