package codegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/analyzers"
	"github.com/xkilldash9x/codesmith/internal/artifact"
	"github.com/xkilldash9x/codesmith/internal/metrics"
	"github.com/xkilldash9x/codesmith/internal/observability"
)

// WriterFactory returns the artifact writer for a target language. The
// language is only known once requirements are extracted.
type WriterFactory func(language string) schemas.ArtifactWriter

// Dependencies are the collaborators an Agent is built from.
type Dependencies struct {
	LLM     schemas.LLMClient
	Toolbox *analyzers.Toolbox
	Writers WriterFactory
	Metrics *metrics.Recorder // optional
	Logger  *zap.Logger
}

// Agent drives one request at a time through extraction, the bounded
// generate/QA loop, and persistence.
type Agent struct {
	extractor   *RequirementExtractor
	synthesizer *Synthesizer
	qa          *QAAggregator
	writers     WriterFactory
	metrics     *metrics.Recorder
	logger      *zap.Logger
	newRunID    func() string
}

// NewAgent wires the pipeline stages around one model client.
func NewAgent(deps Dependencies) (*Agent, error) {
	if deps.LLM == nil {
		return nil, errors.New("an LLM client is required")
	}
	if deps.Toolbox == nil {
		return nil, errors.New("an analyzer toolbox is required")
	}
	if deps.Writers == nil {
		return nil, errors.New("an artifact writer factory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = observability.GetLogger()
	}
	logger = logger.Named("codegen")

	return &Agent{
		extractor:   NewRequirementExtractor(deps.LLM, logger),
		synthesizer: NewSynthesizer(deps.LLM, deps.Metrics, logger),
		qa:          NewQAAggregator(deps.Toolbox, NewReviewer(deps.LLM, logger), deps.Metrics, logger),
		writers:     deps.Writers,
		metrics:     deps.Metrics,
		logger:      logger,
		newRunID:    func() string { return uuid.New().String() },
	}, nil
}

// run is the per-request working set. It is owned by a single Run call.
type run struct {
	state  AttemptState
	final  FinalState
	logger *zap.Logger
}

// Run processes request to a terminal state. The returned FinalState is always
// populated, including the code produced so far. The error is non-nil for a
// failed model call, cancellation (ErrRunAborted), or a failed write
// (artifact.ErrWriteFailed). Exhausting the retry budget is not an error:
// the state ends in StageFailTerminal with LastError set.
func (a *Agent) Run(ctx context.Context, request string) (final FinalState, err error) {
	r := &run{
		final: FinalState{
			RunID:     a.newRunID(),
			Request:   request,
			Stage:     StageGenerate,
			StartedAt: time.Now().UTC(),
		},
	}
	r.logger = observability.ForRun(a.logger, r.final.RunID)
	defer func() {
		final.RetryCount = r.state.RetryCount
		final.History = r.state.History.Entries()
		final.Duration = time.Since(final.StartedAt)
	}()

	if strings.TrimSpace(request) == "" {
		r.final.Stage = StageFailTerminal
		r.final.LastError = "request is empty"
		return r.final, errors.New("request must not be empty")
	}

	r.logger.Info("Run started", zap.String("request", request))

	if err := ctx.Err(); err != nil {
		return a.abort(r, err)
	}
	req, err := a.extractor.Extract(ctx, request, &r.state.History)
	if err != nil {
		return a.fail(ctx, r, err)
	}
	r.final.Requirements = req

	var (
		code   string
		report *schemas.QAReport
		stage  = StageGenerate
	)
	for !stage.Terminal() {
		if err := ctx.Err(); err != nil {
			return a.abort(r, err)
		}
		r.final.Stage = stage
		r.logger.Debug("Entering stage",
			zap.String(observability.FieldStage, string(stage)),
			zap.Int(observability.FieldRetryCount, r.state.RetryCount))

		switch stage {
		case StageGenerate:
			code, err = a.synthesizer.Synthesize(ctx, SynthesisInput{
				Requirements: req,
				Code:         code,
				Prior:        report,
				LastError:    r.state.LastError,
			}, &r.state.History)
			if err != nil {
				return a.fail(ctx, r, err)
			}
			r.final.Attempts++
			r.final.Code = code
			stage = StageQA

		case StageQA:
			report, err = a.qa.Run(ctx, req.Language, code, &r.state.History)
			if err != nil {
				return a.fail(ctx, r, err)
			}
			code = report.Code
			r.final.Code = code
			r.final.Report = report
			r.final.QAReport = report.String()
			r.state.ApplyReport(report)
			stage = StageDecide

		case StageDecide:
			stage = r.state.Next()
			r.logger.Info("QA decision",
				zap.String("next", string(stage)),
				zap.Int(observability.FieldRetryCount, r.state.RetryCount),
				zap.String("last_error", r.state.LastError))

		case StageSave:
			stage = StageDone
			path, saveErr := a.writers(req.Language).Save(req.Task, code)
			if saveErr != nil {
				if !errors.Is(saveErr, artifact.ErrWriteFailed) {
					saveErr = fmt.Errorf("%w: %v", artifact.ErrWriteFailed, saveErr)
				}
				r.final.Stage = StageDone
				r.final.LastError = saveErr.Error()
				a.metrics.RecordRun(metrics.OutcomeWriteFailed)
				r.logger.Error("Failed to save artifact", zap.Error(saveErr))
				return r.final, saveErr
			}
			r.final.OutputPath = path
		}
	}

	r.final.Stage = stage
	if stage == StageFailTerminal {
		r.final.LastError = r.state.LastError
		a.metrics.RecordRun(metrics.OutcomeExhausted)
		r.logger.Warn("Retries exhausted",
			zap.Int(observability.FieldRetryCount, r.state.RetryCount),
			zap.String("last_error", r.state.LastError))
		return r.final, nil
	}

	a.metrics.RecordRun(metrics.OutcomeSaved)
	r.logger.Info("Run complete",
		zap.String("output_path", r.final.OutputPath),
		zap.Int(observability.FieldRetryCount, r.state.RetryCount),
		zap.Int("attempts", r.final.Attempts))
	return r.final, nil
}

// fail ends the run after a stage error. Errors caused by cancellation are
// reported as aborts.
func (a *Agent) fail(ctx context.Context, r *run, err error) (FinalState, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return a.abort(r, ctxErr)
	}
	r.final.Stage = StageFailTerminal
	r.final.LastError = err.Error()
	a.metrics.RecordRun(metrics.OutcomeModelError)
	r.logger.Error("Run failed", zap.Error(err), zap.Int(observability.FieldRetryCount, r.state.RetryCount))
	return r.final, err
}

func (a *Agent) abort(r *run, cause error) (FinalState, error) {
	err := fmt.Errorf("%w: %w", ErrRunAborted, cause)
	r.final.Stage = StageFailTerminal
	r.final.LastError = err.Error()
	a.metrics.RecordRun(metrics.OutcomeAborted)
	r.logger.Warn("Run aborted", zap.Error(cause))
	return r.final, err
}
