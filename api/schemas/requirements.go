package schemas

import "strings"

// Default values used when the model omits a requirement key or its output
// cannot be parsed.
const (
	DefaultLanguage     = "python"
	DefaultOutputFormat = "standard"
)

// RequirementSpec is the structured description of a code generation task.
// It is produced once per run by the requirement extractor and not modified
// afterwards.
type RequirementSpec struct {
	Language     string   `json:"language" yaml:"language"`
	Task         string   `json:"task" yaml:"task"`
	OutputFormat string   `json:"output_format" yaml:"output_format"`
	Constraints  []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// DefaultRequirementSpec is the fallback record for a request whose
// requirements could not be extracted.
func DefaultRequirementSpec(request string) RequirementSpec {
	return RequirementSpec{
		Language:     DefaultLanguage,
		Task:         request,
		OutputFormat: DefaultOutputFormat,
	}
}

// WithDefaults fills absent keys deterministically: language and output
// format fall back to the package defaults, task falls back to the request.
func (r RequirementSpec) WithDefaults(request string) RequirementSpec {
	if strings.TrimSpace(r.Language) == "" {
		r.Language = DefaultLanguage
	}
	if strings.TrimSpace(r.Task) == "" {
		r.Task = request
	}
	if strings.TrimSpace(r.OutputFormat) == "" {
		r.OutputFormat = DefaultOutputFormat
	}
	return r
}

// LanguageTag is the lowercase language name used for fenced code blocks.
func (r RequirementSpec) LanguageTag() string {
	return strings.ToLower(strings.TrimSpace(r.Language))
}
