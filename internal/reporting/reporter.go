package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xkilldash9x/codesmith/internal/codegen"
)

// Supported report formats.
const (
	FormatYAML  = "yaml"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Reporter writes the final state of a generation run to an output.
type Reporter interface {
	// Write records the final state of one run.
	Write(state *codegen.FinalState) error
	// Close flushes the report and closes the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// FormatForPath infers a report format from the file extension of path,
// returning fallback when the extension is not recognized.
func FormatForPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".sarif":
		return FormatSARIF
	default:
		return fallback
	}
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatYAML, "yml", FormatJSON, FormatSARIF:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case FormatSARIF:
		return NewSARIFReporter(writer, toolVersion), nil
	case FormatJSON:
		return NewJSONReporter(writer), nil
	default:
		return NewYAMLReporter(writer), nil
	}
}
