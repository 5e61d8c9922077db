package analyzers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// mypyLine matches `path:12:5: error: message  [code]`. The column and the
// trailing code are optional. The path may itself contain a colon.
var mypyLine = regexp.MustCompile(`^.+?:(\d+):(?:(\d+):)?\s*(error|warning|note):\s*(.*?)(?:\s+\[([\w-]+)\])?$`)

// Mypy wraps the mypy static type checker. mypy cannot read a program from
// stdin, so the source is written to a temporary file for each check.
type Mypy struct {
	cmd    Command
	logger *zap.Logger
}

var _ schemas.Analyzer = (*Mypy)(nil)

func NewMypy(cmd Command, logger *zap.Logger) *Mypy {
	return &Mypy{cmd: cmd, logger: logger.Named("mypy")}
}

func (m *Mypy) Name() string { return "mypy" }

// Analyze type checks source. Exit status 0 and 1 are normal outcomes. mypy
// also exits 2 for blocking errors such as a syntax error, so the report is
// still parsed; a status above 1 with no diagnostics means mypy itself failed.
func (m *Mypy) Analyze(ctx context.Context, source string) ([]schemas.Finding, bool) {
	path, err := writeTempSource(source)
	if err != nil {
		m.logger.Warn("mypy input could not be written", zap.Error(err))
		return nil, false
	}
	defer os.Remove(path)

	args := []string{
		"--show-column-numbers",
		"--show-error-codes",
		"--no-error-summary",
		"--no-color-output",
		"--ignore-missing-imports",
		path,
	}
	res, err := m.cmd.run(ctx, nil, args, "")
	if err != nil {
		m.logger.Warn("mypy could not be run", zap.Error(err))
		return nil, false
	}

	findings := parseMypyOutput(res.Stdout)
	if res.ExitCode > 1 && len(findings) == 0 {
		m.logger.Warn("mypy failed", zap.Int("exit_code", res.ExitCode), zap.String("stderr", firstLine(res.Stderr)))
		return nil, false
	}
	return findings, true
}

// writeTempSource saves source to a new .py file and returns its path.
func writeTempSource(source string) (string, error) {
	f, err := os.CreateTemp("", "codesmith-*.py")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}

// parseMypyOutput turns mypy's line oriented report into findings. Lines that
// don't look like diagnostics are skipped.
func parseMypyOutput(out []byte) []schemas.Finding {
	var findings []schemas.Finding
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		m := mypyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		row, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		findings = append(findings, schemas.Finding{
			Tool:     "mypy",
			Severity: schemas.ParseSeverity(m[3]),
			Rule:     m[5],
			Message:  m[4],
			Location: &schemas.Location{Line: row, Column: col},
		})
	}
	return findings
}
