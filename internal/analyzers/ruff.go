package analyzers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// DefaultIgnoredRules are the ruff rule prefixes that never produce a
// finding: docstring rules, unused imports, naming conventions.
var DefaultIgnoredRules = []string{"D", "F401", "N"}

// ruffSeverity maps rule code prefixes onto severities. Longest prefix wins;
// codes matching nothing are informational.
var ruffSeverity = map[string]schemas.Severity{
	"F":   schemas.SeverityError,   // pyflakes: undefined names, bad calls
	"E9":  schemas.SeverityError,   // syntax and io errors
	"PLE": schemas.SeverityError,   // pylint errors
	"E":   schemas.SeverityWarning, // pycodestyle errors
	"W":   schemas.SeverityWarning,
	"B":   schemas.SeverityWarning, // bugbear
	"S":   schemas.SeverityWarning, // bandit
	"PLW": schemas.SeverityWarning,
	"ARG": schemas.SeverityWarning,
}

// ruffDiagnostic is one entry of `ruff check --output-format=json`.
type ruffDiagnostic struct {
	Code     *string `json:"code"`
	Message  string  `json:"message"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

// Ruff wraps the ruff linter.
type Ruff struct {
	cmd     Command
	ignored []string
	logger  *zap.Logger
}

var _ schemas.Analyzer = (*Ruff)(nil)

// NewRuff creates the linter adapter. ignored lists rule code prefixes to drop.
func NewRuff(cmd Command, ignored []string, logger *zap.Logger) *Ruff {
	return &Ruff{cmd: cmd, ignored: ignored, logger: logger.Named("ruff")}
}

func (r *Ruff) Name() string { return "ruff" }

// Analyze lints source and returns the findings that survive the ignore list.
func (r *Ruff) Analyze(ctx context.Context, source string) ([]schemas.Finding, bool) {
	res, err := r.cmd.run(ctx, []string{"check"}, []string{"--output-format=json", "--exit-zero", "--no-cache", "--stdin-filename", "artifact.py", "-"}, source)
	if err != nil {
		r.logger.Warn("ruff could not be run", zap.Error(err))
		return nil, false
	}
	if res.ExitCode != 0 {
		r.logger.Warn("ruff failed", zap.Int("exit_code", res.ExitCode), zap.String("stderr", firstLine(res.Stderr)))
		return nil, false
	}

	findings, err := parseRuffOutput(res.Stdout, r.ignored)
	if err != nil {
		r.logger.Warn("ruff output could not be parsed", zap.Error(err))
		return nil, false
	}
	return findings, true
}

// parseRuffOutput converts ruff's JSON diagnostics into findings, in file order.
func parseRuffOutput(out []byte, ignored []string) ([]schemas.Finding, error) {
	var diags []ruffDiagnostic
	if err := json.Unmarshal(out, &diags); err != nil {
		return nil, fmt.Errorf("failed to decode ruff output: %w", err)
	}

	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Location.Row != diags[j].Location.Row {
			return diags[i].Location.Row < diags[j].Location.Row
		}
		return diags[i].Location.Column < diags[j].Location.Column
	})

	findings := make([]schemas.Finding, 0, len(diags))
	for _, d := range diags {
		code := "syntax-error"
		severity := schemas.SeverityError
		if d.Code != nil && *d.Code != "" {
			code = *d.Code
			if isIgnoredRule(code, ignored) {
				continue
			}
			severity = ruffRuleSeverity(code)
		}
		findings = append(findings, schemas.Finding{
			Tool:     "ruff",
			Severity: severity,
			Rule:     code,
			Message:  d.Message,
			Location: &schemas.Location{Line: d.Location.Row, Column: d.Location.Column},
		})
	}
	return findings, nil
}

// isIgnoredRule reports whether code falls under one of the ignored prefixes.
// A prefix matches only at a boundary between letters and digits, so "N"
// covers N801 but not NPY002.
func isIgnoredRule(code string, ignored []string) bool {
	for _, prefix := range ignored {
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		if len(code) == len(prefix) || isDigit(code[len(prefix)]) || isDigit(prefix[len(prefix)-1]) {
			return true
		}
	}
	return false
}

func ruffRuleSeverity(code string) schemas.Severity {
	best := ""
	for prefix := range ruffSeverity {
		if strings.HasPrefix(code, prefix) && len(prefix) > len(best) && isIgnoredRule(code, []string{prefix}) {
			best = prefix
		}
	}
	if best == "" {
		return schemas.SeverityInfo
	}
	return ruffSeverity[best]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
