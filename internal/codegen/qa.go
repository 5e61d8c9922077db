package codegen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/analyzers"
	"github.com/xkilldash9x/codesmith/internal/metrics"
)

// QAAggregator runs one quality pass over an artifact: format, then lint and
// type check side by side on the formatted snapshot, then the model review.
// Findings are merged in that fixed order whatever the completion order.
type QAAggregator struct {
	toolbox  *analyzers.Toolbox
	reviewer *Reviewer
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

func NewQAAggregator(toolbox *analyzers.Toolbox, reviewer *Reviewer, rec *metrics.Recorder, logger *zap.Logger) *QAAggregator {
	return &QAAggregator{toolbox: toolbox, reviewer: reviewer, metrics: rec, logger: logger.Named("qa")}
}

// Run returns a fresh report for code. Analyzer problems never fail the pass
// by themselves; a failed review call or a cancelled context is returned as
// an error.
func (q *QAAggregator) Run(ctx context.Context, language, code string, history *History) (*schemas.QAReport, error) {
	start := time.Now()
	suite := q.toolbox.For(language)
	report := &schemas.QAReport{}

	// 1. Format. May replace the artifact.
	code, formatFindings := q.format(ctx, suite.Formatter, code, report)

	// 2 + 3. Lint and type check are read-only against the same snapshot.
	var lintFindings, typeFindings []schemas.Finding
	var g errgroup.Group
	g.Go(func() error {
		lintFindings = q.analyze(ctx, suite.Linter, schemas.SourceLinter, code)
		return nil
	})
	g.Go(func() error {
		typeFindings = q.analyze(ctx, suite.TypeChecker, schemas.SourceTypeChecker, code)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings := make([]schemas.Finding, 0, len(formatFindings)+len(lintFindings)+len(typeFindings)+1)
	findings = append(findings, formatFindings...)
	findings = append(findings, lintFindings...)
	findings = append(findings, typeFindings...)

	// 4. Review sees everything the analyzers said.
	review, err := q.reviewer.Review(ctx, language, code, findings, history)
	if err != nil {
		return nil, err
	}
	findings = append(findings, review)

	report.Findings = findings
	report.Code = code
	q.metrics.RecordQAReport(report)

	q.logger.Info("QA pass complete",
		zap.String("summary", report.Summary()),
		zap.Bool("reformatted", report.Reformatted),
		zap.Int("findings", len(report.Findings)),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

func (q *QAAggregator) format(ctx context.Context, f schemas.Formatter, code string, report *schemas.QAReport) (string, []schemas.Finding) {
	formatted, available, err := f.Check(ctx, code)
	switch {
	case !available:
		return code, []schemas.Finding{q.unavailable(f.Name(), schemas.SourceFormatter, err)}
	case err != nil:
		q.logger.Warn("Format check failed", zap.String("formatter", f.Name()), zap.Error(err))
		return code, []schemas.Finding{{
			Source:   schemas.SourceFormatter,
			Tool:     f.Name(),
			Severity: schemas.SeverityInfo,
			Message:  fmt.Sprintf("format check could not complete: %v", err),
		}}
	case formatted:
		return code, nil
	}

	fixed, err := f.Fix(ctx, code)
	if err != nil {
		q.logger.Warn("Formatter fix failed", zap.String("formatter", f.Name()), zap.Error(err))
		return code, []schemas.Finding{{
			Source:   schemas.SourceFormatter,
			Tool:     f.Name(),
			Severity: schemas.SeverityError,
			Rule:     "format-fix",
			Message:  fmt.Sprintf("formatter could not fix the code: %v", err),
		}}
	}

	report.Reformatted = true
	return fixed, []schemas.Finding{{
		Source:   schemas.SourceFormatter,
		Tool:     f.Name(),
		Severity: schemas.SeverityInfo,
		Rule:     "reformatted",
		Message:  "code was reformatted",
	}}
}

func (q *QAAggregator) analyze(ctx context.Context, a schemas.Analyzer, source, code string) []schemas.Finding {
	findings, ok := a.Analyze(ctx, code)
	if !ok {
		return []schemas.Finding{q.unavailable(a.Name(), source, nil)}
	}
	out := make([]schemas.Finding, len(findings))
	for i, f := range findings {
		f.Source = source
		out[i] = f
	}
	return out
}

// unavailable records a tool that could not run as an informational finding.
func (q *QAAggregator) unavailable(name, source string, cause error) schemas.Finding {
	q.metrics.RecordAnalyzerUnavailable(name)
	fields := []zap.Field{zap.String("analyzer", name), zap.String("source", source)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	q.logger.Info("Analyzer unavailable", fields...)
	return schemas.Finding{
		Source:   source,
		Tool:     name,
		Severity: schemas.SeverityInfo,
		Rule:     "unavailable",
		Message:  fmt.Sprintf("%s unavailable, check skipped", name),
	}
}
