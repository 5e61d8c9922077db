// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Logger() config.LoggerConfig {
	return m.Called().Get(0).(config.LoggerConfig)
}

func (m *MockConfig) LLM() config.LLMRouterConfig {
	return m.Called().Get(0).(config.LLMRouterConfig)
}

func (m *MockConfig) Analysis() config.AnalysisConfig {
	return m.Called().Get(0).(config.AnalysisConfig)
}

func (m *MockConfig) Output() config.OutputConfig {
	return m.Called().Get(0).(config.OutputConfig)
}

func (m *MockConfig) Metrics() config.MetricsConfig {
	return m.Called().Get(0).(config.MetricsConfig)
}

func (m *MockConfig) SetOutputDir(dir string)        { m.Called(dir) }
func (m *MockConfig) SetReportFormat(format string)  { m.Called(format) }
func (m *MockConfig) SetMetricsTextfile(path string) { m.Called(path) }

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// Generate provides a mock function for LLM calls. A cancelled context
// short-circuits like a real client would.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Analyzer Mocks --

// MockAnalyzer mocks the schemas.Analyzer interface.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Name() string {
	return m.Called().String(0)
}

func (m *MockAnalyzer) Analyze(ctx context.Context, source string) ([]schemas.Finding, bool) {
	args := m.Called(ctx, source)
	var findings []schemas.Finding
	if f := args.Get(0); f != nil {
		findings = f.([]schemas.Finding)
	}
	return findings, args.Bool(1)
}

// MockFormatter mocks the schemas.Formatter interface.
type MockFormatter struct {
	mock.Mock
}

func (m *MockFormatter) Name() string {
	return m.Called().String(0)
}

func (m *MockFormatter) Check(ctx context.Context, source string) (bool, bool, error) {
	args := m.Called(ctx, source)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockFormatter) Fix(ctx context.Context, source string) (string, error) {
	args := m.Called(ctx, source)
	return args.String(0), args.Error(1)
}

// -- Artifact Writer Mock --

// MockArtifactWriter mocks the schemas.ArtifactWriter interface and keeps
// every successful write for inspection.
type MockArtifactWriter struct {
	mock.Mock
	mu     sync.Mutex
	Writes map[string]string
}

func (m *MockArtifactWriter) Save(name, content string) (string, error) {
	args := m.Called(name, content)
	if args.Error(1) == nil {
		m.mu.Lock()
		if m.Writes == nil {
			m.Writes = make(map[string]string)
		}
		m.Writes[args.String(0)] = content
		m.mu.Unlock()
	}
	return args.String(0), args.Error(1)
}
