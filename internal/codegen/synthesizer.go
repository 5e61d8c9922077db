package codegen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/llmutil"
	"github.com/xkilldash9x/codesmith/internal/metrics"
)

// SynthesisInput is everything the synthesizer may look at for one attempt.
type SynthesisInput struct {
	Requirements schemas.RequirementSpec
	// Code is the current artifact, empty on the first attempt.
	Code string
	// Prior is the report of the previous QA pass, nil on the first attempt.
	Prior *schemas.QAReport
	// LastError is the controller's failure marker.
	LastError string
}

// IsRevision decides between the initial and the revision prompt.
func (in SynthesisInput) IsRevision() bool {
	return in.LastError != "" || in.Prior.HasBlockingIssues()
}

// Synthesizer produces or revises a code artifact with one powerful-tier call.
type Synthesizer struct {
	llm     schemas.LLMClient
	metrics *metrics.Recorder
	logger  *zap.Logger
}

func NewSynthesizer(llm schemas.LLMClient, rec *metrics.Recorder, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, metrics: rec, logger: logger.Named("synthesizer")}
}

// Synthesize returns the new artifact. A model failure is returned as is,
// wrapped; it is never retried here.
func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput, history *History) (string, error) {
	revision := in.IsRevision()

	var prompt string
	kind := metrics.AttemptInitial
	if revision {
		prompt = revisionPrompt(in.Requirements, in.Code, in.Prior, in.LastError)
		kind = metrics.AttemptRevision
	} else {
		prompt = initialPrompt(in.Requirements)
	}
	s.metrics.RecordGenerationAttempt(kind)

	s.logger.Info("Requesting code from model", zap.String("kind", kind), zap.String("language", in.Requirements.Language))
	resp, err := s.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
		Options:      schemas.GenerationOptions{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("code %s failed: %w", kind, err)
	}

	code := llmutil.ExtractCodeBlock(resp, in.Requirements.LanguageTag())
	if revision {
		added, removed := lineChanges(in.Code, code)
		history.RecordRevision(prompt, resp, added, removed)
		s.logger.Debug("Revision received", zap.Int("lines_added", added), zap.Int("lines_removed", removed))
	} else {
		history.Record(StepGenerate, prompt, resp)
	}
	return code, nil
}
