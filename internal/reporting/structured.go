package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/codesmith/internal/codegen"
	"github.com/xkilldash9x/codesmith/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runDocument is the serialized form of one run.
type runDocument struct {
	codegen.FinalState `yaml:",inline"`
	Succeeded          bool   `json:"succeeded" yaml:"succeeded"`
	Summary            string `json:"summary" yaml:"summary"`
}

func newRunDocument(state *codegen.FinalState) runDocument {
	return runDocument{
		FinalState: *state,
		Succeeded:  state.Succeeded(),
		Summary:    state.Report.Summary(),
	}
}

// encoder is satisfied by both the yaml.v3 and jsoniter stream encoders.
type encoder interface {
	Encode(v interface{}) error
}

// StructuredReporter streams one document per run. YAML output is a
// multi-document stream; JSON output is one indented object per run.
type StructuredReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	enc     encoder
	flush   func() error
	format  string
	written int
	logger  *zap.Logger
}

// NewYAMLReporter creates a reporter that writes YAML documents.
func NewYAMLReporter(writer io.WriteCloser) *StructuredReporter {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	return &StructuredReporter{
		writer: writer,
		enc:    enc,
		flush:  enc.Close,
		format: FormatYAML,
		logger: observability.GetLogger().Named("yaml_reporter"),
	}
}

// NewJSONReporter creates a reporter that writes indented JSON objects.
func NewJSONReporter(writer io.WriteCloser) *StructuredReporter {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return &StructuredReporter{
		writer: writer,
		enc:    enc,
		flush:  func() error { return nil },
		format: FormatJSON,
		logger: observability.GetLogger().Named("json_reporter"),
	}
}

// Write encodes state immediately.
func (r *StructuredReporter) Write(state *codegen.FinalState) error {
	if state == nil {
		return fmt.Errorf("cannot report a nil run state")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.enc.Encode(newRunDocument(state)); err != nil {
		return fmt.Errorf("failed to encode %s report: %w", r.format, err)
	}
	r.written++
	return nil
}

// Close flushes the encoder and closes the writer.
func (r *StructuredReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var flushErr error
	if r.written > 0 {
		flushErr = r.flush()
	}
	closeErr := r.writer.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush %s report: %w", r.format, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Debug("Report written", zap.String("format", r.format), zap.Int("runs", r.written))
	return nil
}
