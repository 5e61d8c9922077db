package schemas

import (
	"context"
)

// -- LLM Client Schemas & Interface --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Requirement extraction and code review.
	TierPowerful ModelTier = "powerful" // Code generation and revision.
)

// GenerationOptions provides detailed parameters to control the text generation
// process of the LLM, such as creativity (temperature) and output format.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, asks the model to output a JSON object.
	TopP            float64 `json:"top_p"`             // Nucleus sampling parameter.
	MaxTokens       int     `json:"max_tokens"`        // Upper bound on completion length; 0 uses the model default.
}

// GenerationRequest encapsulates a complete request to the LLM, including the
// system and user prompts, the desired model tier, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`   // The specific query or input from the user.
	Tier         ModelTier         `json:"tier"`          // The desired model tier (fast or powerful).
	Options      GenerationOptions `json:"options"`       // Advanced generation parameters.
}

// LLMClient defines a standard interface for interacting with a Large Language
// Model, abstracting the specifics of the underlying provider (Groq, OpenAI, Gemini).
//
// Generate is a single blocking inference call. Implementations never retry on
// their own; failures are reported wrapped around llmclient.ErrModelUnavailable
// or llmclient.ErrModelTimeout.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client (e.g., network connections, SDK resources).
	Close() error
}

// -- Static Analysis Interfaces --

// Analyzer wraps one static analysis tool. Analyze never returns an error for a
// missing or crashing tool: it reports available=false instead so a QA pass can
// carry on without it.
type Analyzer interface {
	// Name identifies the tool in findings (e.g., "ruff", "mypy").
	Name() string
	// Analyze inspects the source text and returns normalized findings.
	Analyze(ctx context.Context, source string) (findings []Finding, available bool)
}

// Formatter wraps a code formatter with a check mode and a fix mode.
type Formatter interface {
	Name() string
	// Check reports whether source is already canonically formatted.
	// available is false when the tool could not be run at all.
	Check(ctx context.Context, source string) (formatted bool, available bool, err error)
	// Fix returns the canonically formatted source.
	Fix(ctx context.Context, source string) (string, error)
}

// -- Persistence Interface --

// ArtifactWriter persists the final code artifact of a run.
type ArtifactWriter interface {
	// Save writes content under a filesystem-safe name derived from name and
	// returns the path written.
	Save(name, content string) (string, error)
}
