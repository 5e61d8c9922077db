package codegen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/llmutil"
)

// RequirementExtractor turns a free-text request into a RequirementSpec with
// one fast-tier model call.
type RequirementExtractor struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

func NewRequirementExtractor(llm schemas.LLMClient, logger *zap.Logger) *RequirementExtractor {
	return &RequirementExtractor{llm: llm, logger: logger.Named("requirements")}
}

// Extract never fails on bad model output: anything that is not a JSON object
// yields DefaultRequirementSpec(request). Only a failed model call is
// returned as an error. The call is not retried.
func (e *RequirementExtractor) Extract(ctx context.Context, request string, history *History) (schemas.RequirementSpec, error) {
	prompt := requirementsPrompt(request)
	resp, err := e.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: requirementsSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{Temperature: 0, ForceJSONFormat: true},
	})
	if err != nil {
		return schemas.RequirementSpec{}, fmt.Errorf("requirement extraction failed: %w", err)
	}
	history.Record(StepRequirements, prompt, resp)

	obj, err := llmutil.DecodeObject(resp)
	if err != nil {
		e.logger.Warn("Failed to parse requirements, using defaults",
			zap.Error(err),
			zap.String("response", llmutil.Truncate(resp, 200)))
		return schemas.DefaultRequirementSpec(request), nil
	}

	spec := coerceRequirements(obj).WithDefaults(request)
	e.logger.Debug("Requirements extracted",
		zap.String("language", spec.Language),
		zap.String("output_format", spec.OutputFormat),
		zap.Int("constraints", len(spec.Constraints)))
	return spec, nil
}

// coerceRequirements picks the recognized keys out of a decoded object. Keys
// of the wrong shape are treated as absent; unknown keys are ignored.
func coerceRequirements(obj map[string]interface{}) schemas.RequirementSpec {
	return schemas.RequirementSpec{
		Language:     stringField(obj, "language"),
		Task:         stringField(obj, "task"),
		OutputFormat: stringField(obj, "output_format"),
		Constraints:  listField(obj, "constraints"),
	}
}

func stringField(obj map[string]interface{}, key string) string {
	if s, ok := obj[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// listField accepts a list of scalars or a single string.
func listField(obj map[string]interface{}, key string) []string {
	switch v := obj[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []interface{}:
		var out []string
		for _, item := range v {
			switch item.(type) {
			case map[string]interface{}, []interface{}, nil:
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
