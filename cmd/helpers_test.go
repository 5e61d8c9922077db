package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/config"
	"github.com/xkilldash9x/codesmith/internal/metrics"
	"github.com/xkilldash9x/codesmith/internal/mocks"
)

const sumCode = "def add(a: int, b: int) -> int:\n    return a + b\n"

// newTestConfig returns the default configuration with every external tool
// disabled and output going to a temp directory.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.AnalysisCfg.Formatter.Enabled = false
	cfg.AnalysisCfg.Linter.Enabled = false
	cfg.AnalysisCfg.TypeChecker.Enabled = false
	cfg.AnalysisCfg.SyntaxFallback = false
	cfg.OutputCfg.Dir = filepath.Join(t.TempDir(), "generated_code")
	return cfg
}

// newScriptedLLM answers requirement, synthesis and review calls.
func newScriptedLLM(code, review string) *mocks.MockLLMClient {
	llm := new(mocks.MockLLMClient)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Options.ForceJSONFormat
	})).Return(`{"language": "python", "task": "add two numbers", "output_format": "function"}`, nil)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierPowerful
	})).Return("```python\n"+code+"```", nil)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierFast && !req.Options.ForceJSONFormat
	})).Return(review, nil)
	llm.On("Close").Return(nil)
	return llm
}

// withLLMFactory swaps the client factory used by NewRootCommand.
func withLLMFactory(t *testing.T, llm schemas.LLMClient) {
	t.Helper()
	orig := defaultLLMFactory
	defaultLLMFactory = func(context.Context, config.LLMRouterConfig, *zap.Logger, *metrics.Recorder) (schemas.LLMClient, error) {
		return llm, nil
	}
	t.Cleanup(func() { defaultLLMFactory = orig })
}

// writeConfigFile writes a YAML config disabling the external tools.
func writeConfigFile(t *testing.T, outDir string) string {
	t.Helper()
	content := `
logger:
  level: fatal
analysis:
  formatter:
    enabled: false
  linter:
    enabled: false
  type_checker:
    enabled: false
  syntax_fallback: false
output:
  dir: ` + outDir + `
`
	path := filepath.Join(t.TempDir(), "codesmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
