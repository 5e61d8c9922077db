package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/internal/codegen"
	"github.com/xkilldash9x/codesmith/internal/metrics"
	"github.com/xkilldash9x/codesmith/internal/mocks"
)

func TestRunGenerate_Success(t *testing.T) {
	cfg := newTestConfig(t)
	llm := newScriptedLLM(sumCode, "The code works.")
	reportPath := filepath.Join(t.TempDir(), "run.json")
	metricsPath := filepath.Join(t.TempDir(), "codesmith.prom")
	cfg.MetricsCfg.Textfile = metricsPath

	var out bytes.Buffer
	final, err := runGenerate(context.Background(), &out, cfg, llm, metrics.New(), zap.NewNop(),
		"write a function that adds two numbers", generateOptions{ReportPath: reportPath, PrintCode: true})
	require.NoError(t, err)
	require.NotNil(t, final)

	wantPath := filepath.Join(cfg.Output().Dir, "add-two-numbers.py")
	assert.Equal(t, codegen.StageDone, final.Stage)
	assert.Equal(t, wantPath, final.OutputPath)
	assert.Equal(t, 1, final.Attempts)

	saved, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, sumCode, string(saved))

	assert.Contains(t, out.String(), "Saved "+wantPath+" after 1 attempt(s)")
	assert.Contains(t, out.String(), "return a + b")

	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), `"stage": "DONE"`)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "codesmith_")
}

func TestRunGenerate_RetriesExhausted(t *testing.T) {
	cfg := newTestConfig(t)
	llm := newScriptedLLM(sumCode, "There is a critical bug: the function is broken.")
	reportPath := filepath.Join(t.TempDir(), "run.sarif")

	var out bytes.Buffer
	final, err := runGenerate(context.Background(), &out, cfg, llm, metrics.New(), zap.NewNop(),
		"add two numbers", generateOptions{ReportPath: reportPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	require.NotNil(t, final)

	assert.Equal(t, codegen.StageFailTerminal, final.Stage)
	assert.Equal(t, codegen.MaxRetries, final.Attempts)
	assert.Empty(t, final.OutputPath)
	assert.Contains(t, out.String(), "Failed at FAIL_TERMINAL after 3 attempt(s)")
	assert.Contains(t, out.String(), "[review] error objecting")

	_, statErr := os.Stat(cfg.Output().Dir)
	assert.True(t, os.IsNotExist(statErr), "nothing is written for a failed run")

	sarifOut, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(sarifOut), `"ruleId": "model/objecting"`)
}

func TestRunGenerate_ReportFormatFlagWins(t *testing.T) {
	cfg := newTestConfig(t)
	llm := newScriptedLLM(sumCode, "Looks good.")
	reportPath := filepath.Join(t.TempDir(), "run.json")

	_, err := runGenerate(context.Background(), new(bytes.Buffer), cfg, llm, metrics.New(), zap.NewNop(),
		"add two numbers", generateOptions{ReportPath: reportPath, ReportFormat: "yaml"})
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stage: DONE")
}

func TestRunGenerate_BadReportFormat(t *testing.T) {
	cfg := newTestConfig(t)
	llm := newScriptedLLM(sumCode, "Looks good.")

	final, err := runGenerate(context.Background(), new(bytes.Buffer), cfg, llm, metrics.New(), zap.NewNop(),
		"add two numbers", generateOptions{ReportPath: filepath.Join(t.TempDir(), "run.out"), ReportFormat: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: xml")
	// The artifact is still saved.
	require.NotNil(t, final)
	assert.FileExists(t, final.OutputPath)
}

func TestApplyGenerateFlags(t *testing.T) {
	cfg := newTestConfig(t)
	before := cfg.Output().Dir

	applyGenerateFlags(cfg, generateOptions{})
	assert.Equal(t, before, cfg.Output().Dir)
	assert.Equal(t, "yaml", cfg.Output().ReportFormat)

	applyGenerateFlags(cfg, generateOptions{OutDir: "out", ReportFormat: "sarif", MetricsFile: "m.prom"})
	assert.Equal(t, "out", cfg.Output().Dir)
	assert.Equal(t, "sarif", cfg.Output().ReportFormat)
	assert.Equal(t, "m.prom", cfg.Metrics().Textfile)
}

func TestGenerateCmd_EndToEnd(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	cfgPath := writeConfigFile(t, filepath.Join(t.TempDir(), "ignored"))
	llm := newScriptedLLM(sumCode, "The code works.")
	withLLMFactory(t, llm)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "generate", "--out-dir", outDir, "add", "two", "numbers"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.FileExists(t, filepath.Join(outDir, "add-two-numbers.py"))
	assert.Contains(t, out.String(), "Saved ")
	llm.AssertCalled(t, "Close")
}

func TestGenerateCmd_RequiresRequest(t *testing.T) {
	root := NewRootCommand()
	root.PersistentPreRunE = nil
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"generate"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestApplyGenerateFlags_OnlyExplicitValues(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("SetOutputDir", "out").Once()
	cfg.On("SetMetricsTextfile", "m.prom").Once()

	applyGenerateFlags(cfg, generateOptions{OutDir: "out", MetricsFile: "m.prom", PrintCode: true})

	cfg.AssertExpectations(t)
	cfg.AssertNotCalled(t, "SetReportFormat", mock.Anything)
}
